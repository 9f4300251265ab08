package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"paycheck-tracker/internal/validate"
)

// Patch is a request payload keyed by field name. On create it must carry
// every required field; on update, absent fields mean "unchanged".
type Patch map[string]json.RawMessage

// DecodePatch reads a JSON object into a Patch.
func DecodePatch(data []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("decode payload: expected a JSON object")
	}
	return p, nil
}

// NewPatch builds a Patch from Go values, for callers that do not start
// from a request body.
func NewPatch(fields map[string]any) (Patch, error) {
	p := make(Patch, len(fields))
	for name, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		p[name] = raw
	}
	return p, nil
}

// Field describes how one payload field is validated and stored on T.
// Required fields must be present when building a new T. Only Nullable
// fields accept an explicit null, on create and on update alike.
type Field[T any] struct {
	Required bool
	Nullable bool
	Set      func(dst *T, raw json.RawMessage, h validate.Hook) error
}

// Schema maps payload field names to their handlers.
type Schema[T any] map[string]Field[T]

// Build produces a fresh T from p. Every required field must be present.
func (s Schema[T]) Build(p Patch, h validate.Hook) (T, error) {
	var out T
	for _, name := range s.sortedNames() {
		if !s[name].Required {
			continue
		}
		if _, ok := p[name]; !ok {
			err := validate.NewFieldError(name, validate.ErrRequired)
			h.Observe(name, nil, err)
			return out, err
		}
	}
	return s.Apply(out, p, h)
}

// Apply sets every field present in p on a copy of rec. On error the
// returned value is rec unchanged.
func (s Schema[T]) Apply(rec T, p Patch, h validate.Hook) (T, error) {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	out := rec
	for _, name := range names {
		f, ok := s[name]
		if !ok {
			err := validate.NewFieldError(name, validate.ErrUnknownField)
			h.Observe(name, nil, err)
			return rec, err
		}
		raw := p[name]
		if !f.Nullable && isNull(raw) {
			err := validate.NewFieldError(name, validate.ErrRequired)
			h.Observe(name, nil, err)
			return rec, err
		}
		if err := f.Set(&out, raw, h); err != nil {
			return rec, asFieldError(name, err)
		}
	}
	return out, nil
}

func (s Schema[T]) sortedNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func asFieldError(name string, err error) error {
	if _, ok := err.(*validate.FieldError); ok {
		return err
	}
	return validate.NewFieldError(name, err)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeInto unmarshals raw into v, reporting a type mismatch as kind.
func decodeInto(raw json.RawMessage, v any, kind error) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s", kind, err)
	}
	return nil
}

func decodeString(field string, raw json.RawMessage, h validate.Hook) (string, error) {
	var s string
	err := decodeInto(raw, &s, validate.ErrFormat)
	h.Observe(field, string(raw), err)
	return s, err
}

func decodeOptionalString(field string, raw json.RawMessage, h validate.Hook) (*string, error) {
	if isNull(raw) {
		h.Observe(field, nil, nil)
		return nil, nil
	}
	s, err := decodeString(field, raw, h)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeAmount(field string, raw json.RawMessage, h validate.Hook) (decimal.Decimal, error) {
	var d decimal.Decimal
	err := decodeInto(raw, &d, validate.ErrFormat)
	if err == nil {
		err = validate.NonNegative(d.Sign())
	}
	h.Observe(field, string(raw), err)
	return d, err
}

func decodePayDate(field string, raw json.RawMessage, h validate.Hook) (Date, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		err = fmt.Errorf("%w: expected a MM-DD-YYYY string", validate.ErrDateFormat)
		h.Observe(field, string(raw), err)
		return Date{}, err
	}
	t, err := validate.ParsePayDate(s)
	h.Observe(field, s, err)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func decodeOptionalID(field string, raw json.RawMessage, h validate.Hook) (*int64, error) {
	if isNull(raw) {
		h.Observe(field, nil, nil)
		return nil, nil
	}
	var id int64
	err := decodeInto(raw, &id, validate.ErrFormat)
	if err == nil && id <= 0 {
		err = fmt.Errorf("%w: id must be positive", validate.ErrRange)
	}
	h.Observe(field, string(raw), err)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
