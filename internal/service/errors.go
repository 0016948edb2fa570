package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Exactly 3 or 6 hex digits; the looser built-in hexcolor tag also admits
// 4- and 8-digit alpha forms, which item payloads must not carry.
var colorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("itemcolor", func(fl validator.FieldLevel) bool {
		return colorPattern.MatchString(fl.Field().String())
	})
	return v
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// ValidationError lists the fields a payload failed on. It is the only error
// that carries detail back to the caller; everything else stays opaque.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func newValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// asValidationError converts validator results into per-field messages.
func asValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newValidationError("invalid payload")
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldMessage(fe))
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", name)
	case "min":
		return fmt.Sprintf("%q must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%q must be at most %s", name, fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", name)
	case "itemcolor":
		return fmt.Sprintf("%q must be a 3 or 6 digit hex color", name)
	default:
		return fmt.Sprintf("%q is invalid", name)
	}
}
