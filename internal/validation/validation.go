// Package validation holds the request validator shared by services and handlers.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"voice-dashboard/internal/apperrors"

	"github.com/go-playground/validator/v10"
)

// MinDialableLength is the minimum length of a country-code-prefixed number, "+" included.
const MinDialableLength = 10

var (
	once sync.Once
	v    *validator.Validate
)

// Validator returns the process-wide validator with custom tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("dialable", func(fl validator.FieldLevel) bool {
			return IsDialable(fl.Field().String())
		})
	})
	return v
}

// IsDialable reports whether s is a country-code-prefixed phone number.
func IsDialable(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "+") && len(s) >= MinDialableLength
}

// Struct validates s and converts the first failure into an apperrors.ValidationError.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Validation(strings.ToLower(fe.Field()), message(fe))
	}
	return apperrors.Validation("", err.Error())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "dialable":
		return "must start with + and include the country code"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
