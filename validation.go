package dashboard

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	signInPasswordMin = 8
	signInPasswordMax = 100
	newPasswordMin    = 8
	newPasswordMax    = 20
)

// SignInForm payload
type SignInForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Normalize trims and lower-cases the email
func (r *SignInForm) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

// Validate will run validation rules
func (r SignInForm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.RuneLength(signInPasswordMin, signInPasswordMax),
		),
	)
}

// SignUpForm payload
type SignUpForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	FullName string `form:"full_name" json:"full_name"`
}

// Normalize trims and lower-cases email and full name
func (r *SignUpForm) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.FullName = strings.ToLower(strings.TrimSpace(r.FullName))
}

// Validate will run validation rules
func (r SignUpForm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.RuneLength(newPasswordMin, newPasswordMax),
		),
		validation.Field(&r.FullName, validation.Required),
	)
}

// EmailForm is used by the resend confirmation and forgot password forms
type EmailForm struct {
	Email string `form:"email" json:"email"`
}

// Normalize trims and lower-cases the email
func (r *EmailForm) Normalize() {
	r.Email = normalizeEmail(r.Email)
}

// Validate will run validation rules
func (r EmailForm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
	)
}

// UpdatePasswordForm payload. The confirmation is compared after the
// schema passes, see Matches.
type UpdatePasswordForm struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Normalize is a no-op, passwords are taken as typed
func (r *UpdatePasswordForm) Normalize() {}

// Validate will run validation rules
func (r UpdatePasswordForm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.RuneLength(newPasswordMin, newPasswordMax),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.RuneLength(newPasswordMin, newPasswordMax),
		),
	)
}

// Matches reports whether password and confirmation are equal
func (r UpdatePasswordForm) Matches() bool {
	return validation.Validate(r.ConfirmPassword, validation.By(ValidateStringEquals(r.Password))) == nil
}

// Form is implemented by every payload handled by the actions
type Form interface {
	Normalize()
	Validate() error
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo errors into field => message.
// Errors that are not field errors end up under the "form" key.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		out["form"] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		out[field] = capitalize(ferr.Error())
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
