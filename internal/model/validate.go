package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("pagetype", func(fl validator.FieldLevel) bool {
		return TypeOf(int(fl.Field().Int())) != TypeUnknown
	})
	return v
}

// Validate checks field-level constraints. Per-type answer shapes are
// checked by the converter.
func (q Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return nil
}
