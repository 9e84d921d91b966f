package object

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator checks the structure of visual objects received from peers.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate checks a single object against its struct tags.
func (v *Validator) Validate(obj Visual) error {
	if err := v.validate.Struct(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateAll checks every object of a reorder, stopping at the first failure.
func (v *Validator) ValidateAll(objects []Visual) error {
	for i, obj := range objects {
		if err := v.Validate(obj); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// formatValidationErrors reports the first failing field only
func formatValidationErrors(errs validator.ValidationErrors) error {
	return fmt.Errorf("validation failed: %s", formatSingleError(errs[0]))
}

func formatSingleError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", field)
	case "min", "max":
		return fmt.Sprintf("'%s' value out of allowed range", field)
	default:
		return fmt.Sprintf("'%s' is invalid", field)
	}
}
