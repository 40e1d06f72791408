package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/repository"
	"github.com/phillip/church-cms-go/utils"
)

// ErrorHandler renders the last error attached with c.Error as the standard
// failure envelope. It is the only place errors become responses.
func ErrorHandler(logger zerolog.Logger, production bool) gin.HandlerFunc {
	logger = logger.With().Str("component", "errors").Logger()
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr := Resolve(err)
		status := appErr.Kind.Status()

		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Err(err).
			Str("request_id", RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Msg("request failed")

		c.JSON(status, envelope(appErr, production))
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery(logger zerolog.Logger, production bool) gin.HandlerFunc {
	logger = logger.With().Str("component", "recovery").Logger()
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := string(debug.Stack())
				logger.Error().
					Str("request_id", RequestID(c)).
					Str("path", c.Request.URL.Path).
					Interface("panic", rec).
					Str("stack", stack).
					Msg("panic recovered")

				appErr := &apperr.Error{Kind: apperr.KindServer, Message: "Server Error", Stack: stack}
				c.AbortWithStatusJSON(http.StatusInternalServerError, envelope(appErr, production))
			}
		}()
		c.Next()
	}
}

func envelope(e *apperr.Error, production bool) gin.H {
	body := gin.H{"success": false, "message": e.Message}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields
	}
	if !production && e.Kind == apperr.KindServer {
		if e.Err != nil {
			body["error"] = e.Err.Error()
		}
		if e.Stack != "" {
			body["stack"] = e.Stack
		}
	}
	return body
}

// Resolve maps any error onto the taxonomy by inspecting its shape.
func Resolve(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}

	var uploadErr *utils.UploadError
	if errors.As(err, &uploadErr) {
		return apperr.Upload(uploadErr.Message)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.Validation(ValidationFields(verrs)...)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.EOF):
		return apperr.BadRequest("Invalid request body")
	case errors.Is(err, utils.ErrTokenExpired):
		return apperr.TokenExpired()
	case errors.Is(err, utils.ErrMissingToken), errors.Is(err, utils.ErrInvalidToken):
		return apperr.Unauthenticated("Not authorized, token failed")
	case errors.Is(err, repository.ErrDuplicate), mongo.IsDuplicateKeyError(err):
		return apperr.Conflict("Duplicate field value entered")
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound("Resource not found")
	}

	return apperr.Server("Server Error", err)
}

// ValidationFields converts validator failures into field-keyed messages.
func ValidationFields(verrs validator.ValidationErrors) []apperr.FieldError {
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: defaultMessage(fe)})
	}
	return fields
}

func defaultMessage(fe validator.FieldError) string {
	label := Humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "enum", "oneof":
		return "Invalid " + strings.ToLower(label)
	default:
		return label + " is invalid"
	}
}

// Humanize turns "maxAttendees" into "Max attendees".
func Humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case i == 0:
			b.WriteString(strings.ToUpper(string(r)))
		case r >= 'A' && r <= 'Z':
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
