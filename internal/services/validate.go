package services

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/diewo77/sgm/internal/validation"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validateInput checks the `binding` tags of in, the same tags gin checks
// when binding request bodies.
func validateInput(in any) error {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
		validation.RegisterJSONNames(validate)
	})
	if err := validate.Struct(in); err != nil {
		if v, ok := validation.FromError(err); ok {
			return validationError(v, "validation failed")
		}
		return err
	}
	return nil
}
