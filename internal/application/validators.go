package application

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-eyereport/internal/domain"
)

// registerCustomValidators registers the modelspec and examtype tags used
// by Config.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("modelspec", validateModelSpec); err != nil {
		return fmt.Errorf("failed to register modelspec validator: %w", err)
	}
	if err := v.RegisterValidation("examtype", validateExamType); err != nil {
		return fmt.Errorf("failed to register examtype validator: %w", err)
	}
	return nil
}

// validateModelSpec accepts "provider" or "provider/model". The provider
// is lowercase alphanumeric; the model may not be empty or contain spaces.
func validateModelSpec(fl validator.FieldLevel) bool {
	return ValidModelSpec(fl.Field().String())
}

// ValidModelSpec reports whether spec is a well-formed "provider" or
// "provider/model" string.
func ValidModelSpec(spec string) bool {
	provider, model, found := strings.Cut(spec, "/")
	if provider == "" {
		return false
	}
	for _, ch := range provider {
		if (ch < 'a' || ch > 'z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	if !found {
		return true
	}
	if model == "" || strings.ContainsAny(model, " \t\n/") {
		return false
	}
	return true
}

func validateExamType(fl validator.FieldLevel) bool {
	return domain.ExamType(fl.Field().String()).WellFormed()
}
