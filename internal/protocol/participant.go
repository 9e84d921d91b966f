package protocol

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Profile is the identity a client asserts when joining. It is trusted
// as-is; authentication happens elsewhere.
type Profile struct {
	ID          string `json:"id" validate:"required,max=256"`
	DisplayName string `json:"displayName" validate:"required,max=100"`
	AvatarURL   string `json:"avatarUrl,omitempty" validate:"omitempty,url,max=2048"`
}

// Participant is one connection inside a session.
type Participant struct {
	Profile
	ConnectionID string   `json:"connectionId"`
	Cursor       Position `json:"cursor"`
}

// ValidateJoin checks the document key and asserted identity of a join.
func ValidateJoin(j JoinSession) error {
	if err := validate.Struct(j); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return formatFieldError(fieldErrs[0])
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func formatFieldError(err validator.FieldError) error {
	switch err.Tag() {
	case "required":
		return fmt.Errorf("invalid join: '%s' is required", err.Field())
	case "max":
		return fmt.Errorf("invalid join: '%s' is too long", err.Field())
	case "url":
		return fmt.Errorf("invalid join: '%s' must be a valid URL", err.Field())
	default:
		return fmt.Errorf("invalid join: '%s' is invalid", err.Field())
	}
}
