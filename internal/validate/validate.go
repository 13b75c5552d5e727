// Package validate provides pure validation and normalization for the fields
// collected during registration: name, phone, email and city.
//
// All functions are stateless and total: any input maps to either a cleaned
// value or a FieldError carrying enough detail for the conversation engine to
// choose a corrective prompt.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// ErrorKind classifies why a field value was rejected.
type ErrorKind string

const (
	// KindEmpty means the input was empty or whitespace only.
	KindEmpty ErrorKind = "empty"
	// KindTooShort means the input was below the minimum length.
	KindTooShort ErrorKind = "too_short"
	// KindTooLong means the input exceeded the maximum length.
	KindTooLong ErrorKind = "too_long"
	// KindPattern means the input contained disallowed characters.
	KindPattern ErrorKind = "pattern"
	// KindFormat means the input did not match the expected shape.
	KindFormat ErrorKind = "format"
)

// FieldError reports a rejected input with the field and rejection kind.
type FieldError struct {
	Field string
	Kind  ErrorKind
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Kind)
}

var (
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigitsRe = regexp.MustCompile(`\D`)
)

// collapseSpaces trims the input and folds runs of whitespace into single spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lettersAndSpacesOnly reports whether s consists solely of unicode letters and spaces.
func lettersAndSpacesOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

// Name validates and cleans a person name: [2,50] runes, letters and spaces only.
func Name(raw string) (string, error) {
	return letterField(models.FieldName, raw, models.MinNameLength, models.MaxNameLength)
}

// City validates and cleans a city name: [2,30] runes, letters and spaces only.
func City(raw string) (string, error) {
	return letterField(models.FieldCity, raw, models.MinNameLength, models.MaxCityLength)
}

func letterField(field, raw string, min, max int) (string, error) {
	cleaned := collapseSpaces(raw)
	if cleaned == "" {
		return "", &FieldError{Field: field, Kind: KindEmpty}
	}
	n := len([]rune(cleaned))
	if n < min {
		return "", &FieldError{Field: field, Kind: KindTooShort}
	}
	if n > max {
		return "", &FieldError{Field: field, Kind: KindTooLong}
	}
	if !lettersAndSpacesOnly(cleaned) {
		return "", &FieldError{Field: field, Kind: KindPattern}
	}
	return cleaned, nil
}

// Phone normalizes a phone number to canonical "+<countrycode><digits>" form.
// Accepted inputs (after stripping non-digits):
//
//	05551234567   -> +905551234567 (national form with leading zero)
//	905551234567  -> +905551234567 (country code without plus)
//	5551234567    -> +905551234567 (bare 10-digit local number)
//	<11-15 digits> -> +<digits>    (already carries a country code)
func Phone(raw string) (string, error) {
	digits := nonDigitsRe.ReplaceAllString(raw, "")
	if digits == "" {
		return "", &FieldError{Field: models.FieldPhone, Kind: KindEmpty}
	}
	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return "+90" + digits[1:], nil
	case len(digits) == 12 && strings.HasPrefix(digits, "90"):
		return "+" + digits, nil
	case len(digits) == 10:
		return "+90" + digits, nil
	case len(digits) >= 11 && len(digits) <= 15:
		return "+" + digits, nil
	default:
		return "", &FieldError{Field: models.FieldPhone, Kind: KindFormat}
	}
}

// Email validates a standard local@domain.tld address shape.
func Email(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", &FieldError{Field: models.FieldEmail, Kind: KindEmpty}
	}
	if !emailRegex.MatchString(cleaned) {
		return "", &FieldError{Field: models.FieldEmail, Kind: KindFormat}
	}
	return strings.ToLower(cleaned), nil
}

// Dream accepts any non-empty free-form text for the optional wizard question,
// trimmed and capped at the prompt body limit.
func Dream(raw string) (string, error) {
	cleaned := collapseSpaces(raw)
	if cleaned == "" {
		return "", &FieldError{Field: models.FieldDream, Kind: KindEmpty}
	}
	return cleaned, nil
}

// Field dispatches validation by field key. Unknown fields pass through trimmed,
// so flow variants can add free-form questions without touching this package.
func Field(field, raw string) (string, error) {
	switch field {
	case models.FieldName:
		return Name(raw)
	case models.FieldPhone:
		return Phone(raw)
	case models.FieldEmail:
		return Email(raw)
	case models.FieldCity:
		return City(raw)
	case models.FieldDream:
		return Dream(raw)
	default:
		cleaned := collapseSpaces(raw)
		if cleaned == "" {
			return "", &FieldError{Field: field, Kind: KindEmpty}
		}
		return cleaned, nil
	}
}
