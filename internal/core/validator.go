package core

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"tanaw/internal/types"
)

// Validator wraps go-playground/validator for request struct validation.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the standard tag set.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateStruct validates a request struct against its validate tags.
// Failures are returned as a 400 AppError with per-field details.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"request validation failed",
		err,
		details,
	)
}
