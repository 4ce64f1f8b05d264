package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the custom config tags registered.
func NewValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "trace", "debug", "info", "warn", "error", "fatal", "panic":
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("storagedriver", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "sqlite", "postgres":
			return true
		}
		return false
	})

	_ = validate.RegisterValidation("blobbackend", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "file", "gcs":
			return true
		}
		return false
	})

	return validate
}

// ValidateConfig performs validation on the GlobalConfig structure.
func ValidateConfig(cfg *GlobalConfig) error {
	if err := NewValidator().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConfiguration, formatValidationError("configuration", err))
	}
	return nil
}

// ValidateTaskSpec validates one task definition from config, CLI or API.
func ValidateTaskSpec(spec models.TaskSpec) error {
	if err := NewValidator().Struct(spec); err != nil {
		return formatValidationError("task", err)
	}
	return nil
}

func formatValidationError(subject string, err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%s validation error: %w", subject, err)
	}

	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", e.Namespace(), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		if e.Value() != nil && e.Value() != "" {
			msg += fmt.Sprintf(", actual: '%v'", e.Value())
		}
		messages = append(messages, msg)
	}
	return fmt.Errorf("%s validation failed:\n  %s", subject, strings.Join(messages, "\n  "))
}
