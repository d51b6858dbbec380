// Package validation collects field violations reported to API clients as
// a field -> reason map.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records reason for field unless field already has one.
func (v Violations) Add(field, reason string) {
	if _, ok := v[field]; !ok {
		v[field] = reason
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}

// OneOf records "invalid_choice" when value is not among choices.
func OneOf[T comparable](field string, value T, choices []T, v Violations) {
	for _, c := range choices {
		if c == value {
			return
		}
	}
	v.Add(field, "invalid_choice")
}

// UseJSONNames makes gin's validator report fields by their json name.
func UseJSONNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterJSONNames(v)
	}
}

// RegisterJSONNames reports fields of v by their json (or form) tag.
func RegisterJSONNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// FromError translates validator errors into violations. ok is false for
// any other error (e.g. malformed JSON).
func FromError(err error) (Violations, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	v := Violations{}
	for _, fe := range verrs {
		v.Add(fe.Field(), reason(fe))
	}
	return v, true
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return "required"
	case "oneof":
		return "invalid_choice"
	case "email":
		return "invalid_email"
	case "gt", "gte", "min":
		if fe.Kind() == reflect.String {
			return "too_short"
		}
		return "too_small"
	case "lt", "lte", "max":
		if fe.Kind() == reflect.String {
			return "too_long"
		}
		return "too_large"
	case "gtefield", "gtfield":
		return "must_be_greater_than_" + strings.ToLower(fe.Param())
	default:
		return "invalid"
	}
}
