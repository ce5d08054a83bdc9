// src/security/validation/field_validator.go
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/username/ledgercore/src/models"
)

var ErrValidationFailed = errors.New("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxAccountNameLength   = 100
	MaxCategoryNameLength  = 100
	MaxDescriptionLength   = 1024
)

// FieldError names the first field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidationFailed, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidationFailed }

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fieldErr(fieldName, "cannot be empty")
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fieldErr(fieldName, "exceeds maximum length of %d characters", maxLength)
	}
	return nil
}

// ValidateDateString parses a YYYY-MM-DD calendar date, rejecting impossible
// days such as 2024-02-30.
func ValidateDateString(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(models.DateLayout, trimmed)
	if err != nil {
		return time.Time{}, fieldErr(fieldName, "('%s') is not a valid date (expected YYYY-MM-DD)", s)
	}
	if t.Format(models.DateLayout) != trimmed {
		return time.Time{}, fieldErr(fieldName, "('%s') is an invalid date", s)
	}
	return t, nil
}

// ValidateDateRange checks start <= end.
func ValidateDateRange(start, end time.Time, fieldName string) error {
	if end.Before(start) {
		return fieldErr(fieldName, "end date %s is before start date %s", end.Format(models.DateLayout), start.Format(models.DateLayout))
	}
	return nil
}

// ValidateNonZeroAmount rejects a zero amount.
func ValidateNonZeroAmount(m models.Money, fieldName string) error {
	if m.IsZero() {
		return fieldErr(fieldName, "cannot be zero")
	}
	return nil
}

// ValidatePositiveAmount rejects zero and negative amounts.
func ValidatePositiveAmount(m models.Money, fieldName string) error {
	if !m.IsPositive() {
		return fieldErr(fieldName, "must be greater than zero, got %s", m)
	}
	return nil
}

// ValidateID rejects non-positive identifiers.
func ValidateID(id int64, fieldName string) error {
	if id <= 0 {
		return fieldErr(fieldName, "is required")
	}
	return nil
}

// ValidateAccountName checks a trimmed, sanitized account name.
func ValidateAccountName(name string) error {
	if err := ValidateStringNotEmpty(name, "name"); err != nil {
		return err
	}
	return ValidateStringMaxLength(name, MaxAccountNameLength, "name")
}

// ValidateDescription bounds free-text descriptions.
func ValidateDescription(s string) error {
	return ValidateStringMaxLength(s, MaxDescriptionLength, "description")
}
