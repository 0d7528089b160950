package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/devcompass/internal/apperror"
)

// newValidator returns a validator with the custom tags used by request
// structs in this package:
//
//	nospace  the string contains no whitespace
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	return v
}

// validationError converts the first validator failure into an
// apperror.ValidationFailed with a readable message.
func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}
	fe := ves[0]
	field := strings.ToLower(fe.Field())

	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "min":
		msg = fmt.Sprintf("%s must have at least %s entries/characters", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must have at most %s entries/characters", field, fe.Param())
	case "nospace":
		msg = field + " must not contain whitespace"
	default:
		msg = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
	return apperror.ValidationFailed(field, msg)
}
