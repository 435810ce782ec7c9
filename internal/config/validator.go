package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inquestai/inquest/internal/types"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a Validator backed by struct tag validation.
func NewValidator() Validator {
	return &validatorImpl{
		validate: validator.New(),
	}
}

func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_INVALID, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_INVALID, "configuration validation failed", err)
		}

		msgs := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			msgs = append(msgs, formatValidationError(e))
		}
		return types.NewError(types.CONFIG_INVALID,
			fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - ")))
	}

	// Interval ordering cannot be expressed with struct tags.
	if cfg.Engine.Retry.MaxInterval < cfg.Engine.Retry.InitialInterval {
		return types.NewError(types.CONFIG_INVALID,
			fmt.Sprintf("engine.retry.max_interval (%s) must not be below engine.retry.initial_interval (%s)",
				cfg.Engine.Retry.MaxInterval, cfg.Engine.Retry.InitialInterval))
	}

	return nil
}

func formatValidationError(e validator.FieldError) string {
	fieldPath := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldPath)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", fieldPath, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", fieldPath, e.Tag(), e.Value())
	}
}

// formatFieldPath converts a validator namespace to a readable field path.
// Example: "Config.Engine.StepTimeout" -> "engine.step_timeout"
func formatFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) <= 1 {
		return namespace
	}

	result := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		result = append(result, camelToSnake(parts[i]))
	}
	return strings.Join(result, ".")
}

func camelToSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
