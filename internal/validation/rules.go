// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/signflow/internal/errors"
)

var (
	// emailRegex is a basic email validation pattern
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// e164Regex matches international phone numbers in E.164 format
	e164Regex = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

	// slugRegex matches URL-safe lowercase slugs
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email validates email format using regex
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// E164Phone validates international phone number format (e.g., +5511999999999)
var E164Phone = validation.NewStringRuleWithError(
	func(s string) bool {
		return e164Regex.MatchString(s)
	},
	validation.NewError("validation_e164_phone", "must be a valid E.164 phone number"),
)

// Slug validates URL-safe lowercase slug format
var Slug = validation.NewStringRuleWithError(
	func(s string) bool {
		return slugRegex.MatchString(s)
	},
	validation.NewError("validation_slug", "must be a lowercase URL-safe slug"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// UnitInterval validates that a numeric value is a normalized fraction in [0.0, 1.0].
// Field placements are stored as fractions of page dimensions.
var UnitInterval = validation.By(func(value interface{}) error {
	f, ok := value.(float64)
	if !ok {
		return validation.NewError("validation_unit_interval_type", "must be a number")
	}
	if f < 0.0 || f > 1.0 {
		return validation.NewError("validation_unit_interval", "must be between 0.0 and 1.0")
	}
	return nil
})
