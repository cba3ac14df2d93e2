package validate

import "strings"

// Canonical message strings surfaced inline next to fields.
const (
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Enter a valid email address"
	MsgPasswordRequired = "Password is required"
	MsgPasswordTooShort = "Password must be at least 8 characters"
	MsgPasswordUpper    = "Password must contain an uppercase letter"
	MsgPasswordLower    = "Password must contain a lowercase letter"
	MsgPasswordDigit    = "Password must contain a number"
	MsgConfirmRequired  = "Please confirm your password"
	MsgPasswordMismatch = "Passwords do not match"
	MsgNameRequired     = "Name is required"
	MsgNameTooLong      = "Name must be at most 50 characters"
	MsgBioTooLong       = "Bio must be at most 160 characters"
)

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailField is the shared email fragment: trimmed, lower-cased, must be a
// valid address.
func EmailField() Field {
	return Field{
		Path:      "email",
		Normalize: lowerTrim,
		Rules: []Rule{
			{Tag: "required", Message: MsgEmailRequired},
			{Tag: "email", Message: MsgEmailInvalid},
		},
	}
}

// PasswordField is the sign-in fragment: presence and minimum length only.
func PasswordField() Field {
	return Field{
		Path: "password",
		Rules: []Rule{
			{Tag: "required", Message: MsgPasswordRequired},
			{Tag: "min=8", Message: MsgPasswordTooShort},
		},
	}
}

// StrongPasswordField is the sign-up fragment. Each complexity rule is an
// independent predicate with its own message; all failures are surfaced.
func StrongPasswordField() Field {
	return Field{
		Path: "password",
		Rules: []Rule{
			{Tag: "required", Message: MsgPasswordRequired},
			{Tag: "min=8", Message: MsgPasswordTooShort},
			{Tag: "has_upper", Message: MsgPasswordUpper},
			{Tag: "has_lower", Message: MsgPasswordLower},
			{Tag: "has_digit", Message: MsgPasswordDigit},
		},
	}
}

// LoginSchema validates the sign-in form.
func LoginSchema(v *Validator) *Schema {
	return NewSchema(v.engine, EmailField(), PasswordField())
}

// SignupSchema validates the registration form. The password equality
// refinement attaches its failure to confirmPassword, never to password.
func SignupSchema(v *Validator) *Schema {
	confirm := Field{
		Path: "confirmPassword",
		Rules: []Rule{
			{Tag: "required", Message: MsgConfirmRequired},
		},
	}
	return NewSchema(v.engine, EmailField(), StrongPasswordField(), confirm).
		Refine(Refinement{
			Path:    "confirmPassword",
			Message: MsgPasswordMismatch,
			Check: func(values map[string]string) bool {
				return values["password"] == values["confirmPassword"]
			},
		})
}

// ProfileSchema validates profile edits.
func ProfileSchema(v *Validator) *Schema {
	name := Field{
		Path: "name",
		Rules: []Rule{
			{Tag: "required", Message: MsgNameRequired},
			{Tag: "max=50", Message: MsgNameTooLong},
		},
	}
	bio := Field{
		Path: "bio",
		Rules: []Rule{
			{Tag: "max=160", Message: MsgBioTooLong},
		},
	}
	return NewSchema(v.engine, name, bio)
}
