package validate

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestPhone(t *testing.T) {
	valid := []string{
		"(123)456-7890",
		"123-456-7890",
		"1234567890",
		"(123)4567890",
		"123456-7890",
		"123-4567890",
	}
	for _, s := range valid {
		assert.NoError(t, Phone(strPtr(s)), s)
	}

	invalid := []string{
		"",
		"123-456-789",
		"12345678901",
		"(123) 456-7890",
		"(123)-456-7890",
		"123.456.7890",
		"+1 123-456-7890",
		"(123456-7890",
		"abc-def-ghij",
		"1234567890 ",
		"١٢٣٤٥٦٧٨٩٠",
	}
	for _, s := range invalid {
		err := Phone(strPtr(s))
		assert.ErrorIs(t, err, ErrFormat, s)
	}
}

func TestPhone_NilIsValid(t *testing.T) {
	assert.NoError(t, Phone(nil))
}

func TestPassword(t *testing.T) {
	const good = "Passw0rd!"
	require.NoError(t, Password(good))

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"minimum length", "Aa1!aaaa", false},
		{"maximum length", "Aa1!" + strings.Repeat("a", 60), false},
		{"too short", "Aa1!aaa", true},
		{"too long", "Aa1!" + strings.Repeat("a", 61), true},
		{"no digit", "Password!", true},
		{"no lowercase", "PASSW0RD!", true},
		{"no uppercase", "passw0rd!", true},
		{"no special", "Passw0rdX", true},
		{"underscore is not special", "Passw0rd_", true},
		{"space counts as special", "Passw0rd x", false},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Password(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFormat)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPassword_ByteLimit(t *testing.T) {
	// 44 characters, 84 bytes
	wide := "Aa1!" + strings.Repeat("é", 40)
	assert.ErrorIs(t, Password(wide), ErrFormat)

	// 40 characters, 72 bytes
	assert.NoError(t, Password("Aa1!"+strings.Repeat("é", 32)+"aaaa"))
}

func TestPassword_RemovingAnyClassFails(t *testing.T) {
	base := []string{"Abcdef", "12", "!?"}
	classes := map[string]func(string) string{
		"digit": func(s string) string {
			return strings.Map(dropIf(func(r rune) bool { return r >= '0' && r <= '9' }), s) + "xx"
		},
		"lower": func(s string) string { return strings.ToUpper(s) },
		"upper": func(s string) string { return strings.ToLower(s) },
		"special": func(s string) string {
			return strings.Map(dropIf(func(r rune) bool { return r == '!' || r == '?' }), s) + "yy"
		},
	}
	full := strings.Join(base, "")
	require.NoError(t, Password(full))

	for name, strip := range classes {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, Password(strip(full)), ErrFormat)
		})
	}
}

func dropIf(pred func(rune) bool) func(rune) rune {
	return func(r rune) rune {
		if pred(r) {
			return -1
		}
		return r
	}
}

func TestParsePayDate(t *testing.T) {
	got, err := ParsePayDate("02-14-2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC), got)

	invalid := []any{
		"2024-02-14",
		"02/14/2024",
		"",
		"2-14-2024",
		"02-14-24",
		"02-30-2024",
		"13-01-2024",
		"02-14-2024 ",
		"１２-１４-２０２４",
		42,
		nil,
		(*string)(nil),
		time.Time{},
	}
	for _, raw := range invalid {
		_, err := ParsePayDate(raw)
		assert.ErrorIs(t, err, ErrDateFormat, "%#v", raw)
	}
}

func TestParsePayDate_RoundTrip(t *testing.T) {
	day := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i += 7 {
		want := day.AddDate(0, 0, i)
		got, err := ParsePayDate(want.Format(PayDateLayout))
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "%s != %s", want, got)
	}
}

func TestParsePayDate_StructuredPassThrough(t *testing.T) {
	in := time.Date(2024, time.March, 1, 17, 45, 0, 0, time.FixedZone("X", 3600))
	got, err := ParsePayDate(in)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestDueDay(t *testing.T) {
	assert.NoError(t, DueDay(nil))
	for n := -5; n <= 35; n++ {
		err := DueDay(intPtr(n))
		if n >= 1 && n <= 30 {
			assert.NoError(t, err, n)
		} else {
			assert.ErrorIs(t, err, ErrRange, n)
		}
	}
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("ada@example.com"))
	assert.ErrorIs(t, Email("ada"), ErrFormat)
	assert.ErrorIs(t, Email(""), ErrFormat)
}

func TestStruct(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"required"`
		Mail string `json:"mail" validate:"omitempty,email"`
	}

	assert.NoError(t, Struct(payload{Name: "rent"}))

	err := Struct(payload{})
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "name", fe.Field)
	assert.ErrorIs(t, err, ErrRequired)

	err = Struct(payload{Name: "rent", Mail: "nope"})
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "mail", fe.Field)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestKind(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewFieldError("due_date", fmt.Errorf("%w: 31", ErrRange)))
	assert.Equal(t, ErrRange, Kind(wrapped))
	assert.True(t, IsValidation(wrapped))
	assert.Nil(t, Kind(errors.New("boom")))
	assert.Equal(t, "due_date: value out of range: 31", errors.Unwrap(wrapped).Error())
}

func TestHook_Observe(t *testing.T) {
	var calls []string
	h := Hook(func(field string, input any, err error) {
		calls = append(calls, fmt.Sprintf("%s=%v:%v", field, input, err == nil))
	})
	h.Observe("due_date", 3, nil)
	Hook(nil).Observe("ignored", 1, nil)
	assert.Equal(t, []string{"due_date=3:true"}, calls)
}
