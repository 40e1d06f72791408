package controllers

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/middleware"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/utils"
)

var clockPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

var registerOnce sync.Once

// RegisterValidators installs the custom tags on gin's validator and makes
// failures report json field names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
			e, ok := fl.Field().Interface().(models.Enumerator)
			return ok && e.Valid()
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return clockPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := utils.ParseDate(fl.Field().String())
			return err == nil
		})
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.Split(f.Tag.Get(tag), ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// fieldMessages overrides the generic validator wording per json field.
type fieldMessages map[string]string

var eventMessages = fieldMessages{
	"title":        "Title must be between 3 and 200 characters",
	"description":  "Description must be between 10 and 2000 characters",
	"category":     "Invalid event category",
	"date":         "Invalid date format",
	"time":         "Time must be in HH:MM format",
	"location":     "Location must be between 3 and 200 characters",
	"maxAttendees": "Max attendees must be a positive integer",
	"status":       "Invalid event status",
	"organizer":    "Invalid organizer",
}

var noticeMessages = fieldMessages{
	"title":          "Title must be between 3 and 200 characters",
	"content":        "Content must be between 10 and 5000 characters",
	"summary":        "Summary must not exceed 500 characters",
	"category":       "Invalid notice category",
	"priority":       "Invalid priority level",
	"targetAudience": "Invalid target audience",
	"publishDate":    "Invalid date format",
	"expiryDate":     "Invalid date format",
}

var userMessages = fieldMessages{
	"name":            "Name must be between 2 and 100 characters",
	"email":           "Please provide a valid email",
	"password":        "Password must be at least 6 characters long",
	"newPassword":     "Password must be at least 6 characters long",
	"role":            "Invalid role",
	"gender":          "Gender must be Male, Female, or Other",
	"maritalStatus":   "Invalid marital status",
	"dateOfBirth":     "Invalid date format",
	"membershipDate":  "Invalid date format",
	"ministries":      "Invalid ministry",
	"phone":           "Please provide a valid phone number",
	"currentPassword": "Current password is required",
}

// sanitizer is implemented by inputs carrying free text. Validation runs on
// the cleaned values so markup-only input fails the length and required rules.
type sanitizer interface {
	sanitize()
}

// bind decodes the request into dst and converts failures into the taxonomy.
// required maps json fields that may not be blank; a true value also makes the
// field mandatory, which is the create case.
func bind(c *gin.Context, dst any, messages fieldMessages, required map[string]bool) error {
	err := c.ShouldBind(dst)
	var verrs validator.ValidationErrors
	if err != nil && !errors.As(err, &verrs) {
		if uerr := uploadLimitError(c, err); uerr != nil {
			return uerr
		}
		return apperr.BadRequest("Invalid request body")
	}
	if s, ok := dst.(sanitizer); ok {
		s.sanitize()
		verrs = nil
		if err := binding.Validator.ValidateStruct(dst); err != nil && !errors.As(err, &verrs) {
			return apperr.BadRequest("Invalid request body")
		}
	}
	var fields []apperr.FieldError
	if len(verrs) > 0 {
		fields = messages.translate(verrs)
	}
	fields = append(fields, missing(dst, required, fields)...)
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

func (m fieldMessages) translate(verrs validator.ValidationErrors) []apperr.FieldError {
	fields := middleware.ValidationFields(verrs)
	for i, fe := range verrs {
		if fe.Tag() == "required" {
			continue
		}
		if msg, ok := m[fe.Field()]; ok {
			fields[i].Message = msg
		}
	}
	return fields
}

// missing reports mandatory pointer fields left nil and listed fields sent
// blank, skipping fields that already failed validation.
func missing(dst any, required map[string]bool, already []apperr.FieldError) []apperr.FieldError {
	if len(required) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(already))
	for _, f := range already {
		seen[f.Field] = true
	}
	var out []apperr.FieldError
	v := reflect.Indirect(reflect.ValueOf(dst))
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := fieldName(t.Field(i))
		mandatory, listed := required[name]
		if !listed || seen[name] {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() != reflect.Ptr {
			continue
		}
		absent := fv.IsNil() && mandatory
		blank := !fv.IsNil() && fv.Elem().Kind() == reflect.String && strings.TrimSpace(fv.Elem().String()) == ""
		if absent || blank {
			out = append(out, apperr.FieldError{Field: name, Message: middleware.Humanize(name) + " is required"})
		}
	}
	return out
}

func requiredSet(fields ...string) map[string]bool {
	m := make(map[string]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// optional relaxes a required set for partial updates: the fields may be
// omitted but not sent blank.
func optional(required map[string]bool) map[string]bool {
	m := make(map[string]bool, len(required))
	for f := range required {
		m[f] = false
	}
	return m
}
