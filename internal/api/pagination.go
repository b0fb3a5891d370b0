package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const maxPageSize = 100

var errInvalidPage = &service.Error{Kind: service.ErrNotFound, Message: "Invalid page."}

// pagination reads ?page and ?limit. A malformed page is an error; a
// malformed or out of range limit falls back to the default.
func pagination(c *gin.Context, defaultLimit int) (types.Pagination, error) {
	page := types.Pagination{Page: 1, Limit: defaultLimit}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, errInvalidPage
		}
		page.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page.Limit = min(n, maxPageSize)
		}
	}
	return page, nil
}

// respondPage writes a {count, next, previous, results} page. Requesting a
// page past the end of a non-empty listing is a 404.
func respondPage(c *gin.Context, page types.Pagination, total int64, results interface{}) {
	if page.Page > 1 && int64(page.Offset()) >= total {
		respondError(c, errInvalidPage)
		return
	}

	resp := types.PageResponse{Count: total, Results: results}
	if int64(page.Offset()+page.Limit) < total {
		next := pageURL(c, page.Page+1)
		resp.Next = &next
	}
	if page.Page > 1 {
		prev := pageURL(c, page.Page-1)
		resp.Previous = &prev
	}
	c.JSON(http.StatusOK, resp)
}

// pageURL is the absolute URL of the current request with page replaced.
// Page 1 is addressed without a page parameter.
func pageURL(c *gin.Context, n int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := c.Request.URL.Query()
	if n <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(n))
	}

	u := scheme + "://" + c.Request.Host + c.Request.URL.Path
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}
