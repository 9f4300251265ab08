package models

import (
	"encoding/json"
	"fmt"
	"time"

	"paycheck-tracker/internal/auth"
	"paycheck-tracker/internal/validate"
)

// UserIn is a validated registration payload. Password is the raw secret
// and is only held until NewUser hashes it.
type UserIn struct {
	Username    string  `json:"username" validate:"required,max=50"`
	Email       string  `json:"email" validate:"required,max=254"`
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number"`
	Password    string  `json:"-"`
}

// User is a stored user account.
type User struct {
	ID             int64     `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	FirstName      *string   `json:"first_name" db:"first_name"`
	PhoneNumber    *string   `json:"phone_number" db:"phone_number"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	Disabled       bool      `json:"-" db:"disabled"`
	CreatedAt      time.Time `json:"-" db:"created_at"`
}

// UserOut is what callers get back for a user. It has no credential fields.
type UserOut struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	FirstName   *string `json:"first_name"`
	PhoneNumber *string `json:"phone_number"`
}

var userFields = Schema[UserIn]{
	"username": {Required: true, Set: func(u *UserIn, raw json.RawMessage, h validate.Hook) error {
		s, err := decodeString("username", raw, h)
		u.Username = s
		return err
	}},
	"email": {Required: true, Set: func(u *UserIn, raw json.RawMessage, h validate.Hook) error {
		s, err := decodeString("email", raw, h)
		if err != nil {
			return err
		}
		u.Email = s
		return validate.Email(s)
	}},
	"first_name": {Nullable: true, Set: func(u *UserIn, raw json.RawMessage, h validate.Hook) error {
		s, err := decodeOptionalString("first_name", raw, h)
		u.FirstName = s
		return err
	}},
	"phone_number": {Nullable: true, Set: func(u *UserIn, raw json.RawMessage, h validate.Hook) error {
		s, err := decodeOptionalString("phone_number", raw, nil)
		if err == nil {
			err = validate.Phone(s)
		}
		h.Observe("phone_number", string(raw), err)
		u.PhoneNumber = s
		return err
	}},
	"password": {Required: true, Set: func(u *UserIn, raw json.RawMessage, h validate.Hook) error {
		var s string
		err := decodeInto(raw, &s, validate.ErrFormat)
		if err == nil {
			err = validate.Password(s)
		}
		h.Observe("password", redacted(s), err)
		u.Password = s
		return err
	}},
}

var userUpdateFields = optional(userFields)

// optional returns a copy of s with no required fields. Nullability is kept.
func optional[T any](s Schema[T]) Schema[T] {
	out := make(Schema[T], len(s))
	for name, f := range s {
		f.Required = false
		out[name] = f
	}
	return out
}

func redacted(secret string) string {
	return fmt.Sprintf("[redacted, %d chars]", len([]rune(secret)))
}

// NewUserIn validates a registration payload. username, email and password
// are required; phone_number and password are checked against their format
// rules.
func NewUserIn(p Patch, h validate.Hook) (UserIn, error) {
	in, err := userFields.Build(p, h)
	if err != nil {
		return UserIn{}, err
	}
	if err := validate.Struct(in); err != nil {
		return UserIn{}, err
	}
	return in, nil
}

// NewUser turns a validated payload into a storable user, hashing the
// password. The raw password does not survive the conversion.
func NewUser(in UserIn) (User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	return User{
		Username:       in.Username,
		Email:          in.Email,
		FirstName:      in.FirstName,
		PhoneNumber:    in.PhoneNumber,
		HashedPassword: hash,
	}, nil
}

// ApplyUserUpdate merges a partial update into u. Only the fields present in
// p are validated and replaced; a new password is hashed.
func ApplyUserUpdate(u User, p Patch, h validate.Hook) (User, error) {
	current := UserIn{
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		PhoneNumber: u.PhoneNumber,
	}
	in, err := userUpdateFields.Apply(current, p, h)
	if err != nil {
		return u, err
	}
	if err := validate.Struct(in); err != nil {
		return u, err
	}

	out := u
	out.Username = in.Username
	out.Email = in.Email
	out.FirstName = in.FirstName
	out.PhoneNumber = in.PhoneNumber
	if _, ok := p["password"]; ok {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return u, err
		}
		out.HashedPassword = hash
	}
	return out, nil
}

// Out strips the credential fields.
func (u User) Out() UserOut {
	return UserOut{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		PhoneNumber: u.PhoneNumber,
	}
}
