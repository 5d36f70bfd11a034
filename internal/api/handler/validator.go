package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// Field names in errors follow the json (or query) tags of the request struct.
func NewValidator() *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" {
			name = f.Tag.Get("query")
		}
		if name == "-" {
			return ""
		}
		return name
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Failures are returned as
// *domain.ValidationError with one entry per offending field.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]domain.FieldError, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, domain.FieldError{
					Field:   fieldPath(fe),
					Message: fieldMessage(fe),
				})
			}
			return &domain.ValidationError{Fields: fields}
		}
		return err
	}
	return nil
}

// fieldPath drops the root struct name: "createIssueRequest.location.latitude"
// becomes "location.latitude".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

// fieldMessage converts a single validation failure into a human-readable message.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}
