// Package validate holds the field-level checks applied to user, income and
// expense payloads before they reach storage.
//
// The checks are pure: they keep no state and do no I/O. Callers that want
// diagnostics pass a Hook to the schema layer, which reports each check.
package validate

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 64
	// PasswordMaxBytes is the most bcrypt will hash.
	PasswordMaxBytes = 72

	MinDueDay = 1
	MaxDueDay = 30

	// PayDateLayout is the only accepted textual form of a pay date.
	PayDateLayout = "01-02-2006"
)

// Hook receives one call per field check. input is the value as received,
// except for secrets which arrive redacted.
type Hook func(field string, input any, err error)

// Observe calls h when it is set.
func (h Hook) Observe(field string, input any, err error) {
	if h != nil {
		h(field, input, err)
	}
}

// Phone accepts nil, or ten ASCII digits written as (XXX)XXX-XXXX,
// XXX-XXX-XXXX or XXXXXXXXXX. The dash before the last four digits and the
// one after a bare area code are each optional.
func Phone(s *string) error {
	if s == nil {
		return nil
	}
	if !isPhone(*s) {
		return fmt.Errorf("%w: phone number must look like (123)456-7890, 123-456-7890 or 1234567890", ErrFormat)
	}
	return nil
}

func isPhone(s string) bool {
	rest, ok := phoneAreaCode(s)
	if !ok {
		return false
	}
	rest, ok = digits(rest, 3)
	if !ok {
		return false
	}
	rest = strings.TrimPrefix(rest, "-")
	rest, ok = digits(rest, 4)
	return ok && rest == ""
}

func phoneAreaCode(s string) (string, bool) {
	if strings.HasPrefix(s, "(") {
		rest, ok := digits(s[1:], 3)
		if !ok || !strings.HasPrefix(rest, ")") {
			return "", false
		}
		return rest[1:], true
	}
	rest, ok := digits(s, 3)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, "-"), true
}

// digits consumes exactly n leading ASCII digits.
func digits(s string, n int) (string, bool) {
	if len(s) < n {
		return "", false
	}
	for i := 0; i < n; i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", false
		}
	}
	return s[n:], true
}

// Password enforces the complexity policy: 8 to 64 characters with at least
// one digit, one lowercase letter, one uppercase letter and one character
// that is not a letter, digit or underscore. The encoded form must also fit
// bcrypt's input limit.
func Password(s string) error {
	n := utf8.RuneCountInString(s)
	if n < PasswordMinLength || n > PasswordMaxLength {
		return fmt.Errorf("%w: password must be %d to %d characters", ErrFormat, PasswordMinLength, PasswordMaxLength)
	}
	if len(s) > PasswordMaxBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrFormat, PasswordMaxBytes)
	}

	var digit, lower, upper, special bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case !isWordRune(r):
			special = true
		}
	}

	var missing []string
	if !digit {
		missing = append(missing, "a digit")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !special {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: password needs %s", ErrFormat, strings.Join(missing, ", "))
	}
	return nil
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// CalendarDate is satisfied by time.Time and by any type embedding it.
type CalendarDate interface {
	Date() (year int, month time.Month, day int)
}

// ParsePayDate normalizes raw into a UTC midnight time. Structured dates pass
// through; strings must be exactly MM-DD-YYYY and name a real day.
func ParsePayDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case string:
		return parsePayDateString(v)
	case *string:
		if v == nil {
			break
		}
		return parsePayDateString(*v)
	case CalendarDate:
		if t, ok := v.(time.Time); ok && t.IsZero() {
			break
		}
		y, m, d := v.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: expected a MM-DD-YYYY string, got %T", ErrDateFormat, raw)
}

func parsePayDateString(s string) (time.Time, error) {
	if !isPayDateShape(s) {
		return time.Time{}, fmt.Errorf("%w: %q is not MM-DD-YYYY", ErrDateFormat, s)
	}
	t, err := time.Parse(PayDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrDateFormat, s)
	}
	return t, nil
}

// isPayDateShape checks the exact NN-NN-NNNN layout so that ISO dates and
// other separators are rejected before time.Parse sees them.
func isPayDateShape(s string) bool {
	if len(s) != len(PayDateLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if i == 2 || i == 5 {
			if s[i] != '-' {
				return false
			}
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DueDay accepts nil or a day of month between MinDueDay and MaxDueDay.
func DueDay(n *int) error {
	if n == nil {
		return nil
	}
	if *n < MinDueDay || *n > MaxDueDay {
		return fmt.Errorf("%w: due date must be between %d and %d, got %d", ErrRange, MinDueDay, MaxDueDay, *n)
	}
	return nil
}

// NonNegative rejects amounts below zero. sign is the result of Sign() on a
// decimal, big.Int or similar.
func NonNegative(sign int) error {
	if sign < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrRange)
	}
	return nil
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// Validator returns the shared go-playground validator, configured to report
// JSON field names.
func Validator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Email checks the address shape.
func Email(s string) error {
	if err := Validator().Var(s, "required,email"); err != nil {
		return fmt.Errorf("%w: %q is not an email address", ErrFormat, s)
	}
	return nil
}

// Struct runs the `validate` tags on v and converts the first failure into a
// FieldError.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	kind := ErrFormat
	if fe.Tag() == "required" {
		kind = ErrRequired
	}
	return NewFieldError(fe.Field(), fmt.Errorf("%w: failed %q rule", kind, fe.Tag()))
}
