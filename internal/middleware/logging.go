package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pageza/foodgram/backend/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an ID and logs it when it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}
		c.Header(requestIDHeader, requestID)
		ctx := logging.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logging.Ctx(ctx).Error()
		case status >= 400:
			event = logging.Ctx(ctx).Warn()
		default:
			event = logging.Ctx(ctx).Info()
		}
		if id, ok := UserIDFromContext(c); ok {
			event = event.Str("user_id", id.String())
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request completed")
	}
}
