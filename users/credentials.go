package users

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode"

	apperrors "github.com/jrsteele09/resume-client/internal/errors"
)

const (
	minLoginPasswordLength    = 6
	minRegisterPasswordLength = 8
	minFullNameLength         = 2
)

// Credentials is the login form. It is sent once and never persisted.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up form. ConfirmPassword is checked locally and not sent.
type Registration struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	FullName        string `json:"full_name"`
	ConfirmPassword string `json:"-"`
}

// Credentials returns the login half of the registration, used for the
// automatic login after sign-up.
func (r Registration) Credentials() Credentials {
	return Credentials{Email: r.Email, Password: r.Password}
}

// ProfileUpdate carries the editable profile fields; nil fields are left unchanged.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Location *string `json:"location,omitempty"`
	Website  *string `json:"website,omitempty"`
	LinkedIn *string `json:"linkedin,omitempty"`
	GitHub   *string `json:"github,omitempty"`
	Summary  *string `json:"summary,omitempty"`
}

// ValidationError lists every field that failed local validation, keyed by
// the field's JSON name. It matches apperrors.ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", apperrors.ErrValidation, strings.Join(parts, "; "))
}

func (v *ValidationError) Is(target error) bool {
	return target == apperrors.ErrValidation
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func (c Credentials) Validate() error {
	errs := fieldErrors{}
	validateEmail(errs, c.Email)
	if len(c.Password) < minLoginPasswordLength {
		errs.add("password", fmt.Sprintf("Password must be at least %d characters", minLoginPasswordLength))
	}
	return errs.err()
}

func (r Registration) Validate() error {
	errs := fieldErrors{}
	if len(strings.TrimSpace(r.FullName)) < minFullNameLength {
		errs.add("full_name", fmt.Sprintf("Name must be at least %d characters", minFullNameLength))
	}
	validateEmail(errs, r.Email)
	if err := ValidatePasswordStrength(r.Password); err != nil {
		errs.add("password", err.Error())
	}
	if r.Password != r.ConfirmPassword {
		errs.add("confirm_password", "Passwords don't match")
	}
	return errs.err()
}

func (p ProfileUpdate) Validate() error {
	errs := fieldErrors{}
	if p.FullName != nil && len(strings.TrimSpace(*p.FullName)) < minFullNameLength {
		errs.add("full_name", fmt.Sprintf("Name must be at least %d characters", minFullNameLength))
	}
	return errs.err()
}

// ValidatePasswordStrength checks if password meets the sign-up requirements:
// - At least 8 characters long
// - Contains an uppercase letter
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < minRegisterPasswordLength {
		return fmt.Errorf("Password must be at least %d characters", minRegisterPasswordLength)
	}

	var (
		hasUpper  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("Password must contain at least one uppercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}

	return nil
}

func validateEmail(errs fieldErrors, email string) {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs.add("email", "Invalid email address")
	}
}
