// Package validation checks command structs tagged with `validate:"..."` and
// reports failures as invalid_input domain errors.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "edugrant/pkg/domain-errors"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// Struct validates v. A nil return means every rule held.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "validation failed")
	}
	return dErrors.New(dErrors.CodeInvalidInput, Message(fieldErrs))
}

// Message joins one sentence per failing field.
func Message(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s characters", e.Field(), e.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("field %s must be greater than %s", e.Field(), e.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param()))
		case "excludesall":
			msgs = append(msgs, fmt.Sprintf("field %s must not contain %q", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}
