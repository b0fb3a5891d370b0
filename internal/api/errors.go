package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// respondError writes the error envelope for err. Domain errors carry their
// own message; anything else is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrNotMember):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	}

	var domainErr *service.Error
	if status == http.StatusInternalServerError || !errors.As(err, &domainErr) {
		logging.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{Errors: "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, types.ErrorResponse{Errors: domainErr.Message})
}

// respondBindingError reports a request body that failed to decode or validate.
func respondBindingError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{Errors: bindingMessage(err)})
}

func bindingMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		msgs := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return strings.Join(msgs, " ")
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return "Request body is empty."
	case errors.As(err, &syntaxErr):
		return "Malformed JSON."
	case errors.As(err, &typeErr):
		return fmt.Sprintf("%s: Expected %s.", typeErr.Field, typeErr.Type)
	}
	return "Invalid request body."
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": This field is required."
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s: Ensure this list has at least %s item(s).", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: Ensure this field has at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("%s: Ensure this value is greater than or equal to %s.", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: Ensure this field has no more than %s characters.", field, fe.Param())
	case "email":
		return field + ": Enter a valid email address."
	case "username":
		return field + ": Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}
	return field + ": Invalid value."
}
