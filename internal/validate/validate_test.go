package validate

import (
	"testing"
)

func paths(errs []FieldError) map[string]int {
	out := make(map[string]int)
	for _, e := range errs {
		out[e.Path]++
	}
	return out
}

func TestLoginSchemaRejectsInvalidInput(t *testing.T) {
	schema := LoginSchema(NewValidator())

	errs := schema.Validate(map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	if len(errs) != 2 {
		t.Fatalf("expected 2 field errors, got %d: %v", len(errs), errs)
	}
	byPath := paths(errs)
	if byPath["email"] != 1 || byPath["password"] != 1 {
		t.Errorf("errors not attached per field: %v", errs)
	}
}

func TestLoginSchemaAcceptsValidInput(t *testing.T) {
	schema := LoginSchema(NewValidator())

	errs := schema.Validate(map[string]string{
		"email":    "a@b.com",
		"password": "12345678",
	})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestLoginSchemaRequiredFields(t *testing.T) {
	schema := LoginSchema(NewValidator())

	errs := schema.Validate(map[string]string{})
	byPath := paths(errs)
	if byPath["email"] != 1 {
		t.Errorf("empty email should yield exactly the required error, got %v", errs)
	}
	if byPath["password"] != 1 {
		t.Errorf("empty password should yield exactly the required error, got %v", errs)
	}
}

func TestEmailNormalization(t *testing.T) {
	schema := LoginSchema(NewValidator())

	values := schema.Normalized(map[string]string{
		"email":    "  USER@Example.COM ",
		"password": "12345678",
	})
	if values["email"] != "user@example.com" {
		t.Errorf("email = %q, want trimmed and lower-cased", values["email"])
	}
}

func TestSignupMismatchAttachesToConfirmOnly(t *testing.T) {
	schema := SignupSchema(NewValidator())

	// Password itself is fully valid; only the confirmation differs.
	errs := schema.Validate(map[string]string{
		"email":           "a@b.com",
		"password":        "Sup3rSecret",
		"confirmPassword": "Sup3rSecreX",
	})
	if len(errs) != 1 {
		t.Fatalf("expected a single error, got %v", errs)
	}
	if errs[0].Path != "confirmPassword" {
		t.Errorf("error attached to %q, want confirmPassword", errs[0].Path)
	}
	if errs[0].Message != MsgPasswordMismatch {
		t.Errorf("message = %q", errs[0].Message)
	}
}

func TestSignupMismatchIndependentOfPasswordValidity(t *testing.T) {
	schema := SignupSchema(NewValidator())

	// Invalid password and mismatched confirmation: mismatch still lands
	// only on confirmPassword.
	errs := schema.Validate(map[string]string{
		"email":           "a@b.com",
		"password":        "weak",
		"confirmPassword": "different",
	})
	for _, e := range errs {
		if e.Path == "password" && e.Message == MsgPasswordMismatch {
			t.Errorf("mismatch must never attach to password: %v", errs)
		}
	}
	if paths(errs)["confirmPassword"] != 1 {
		t.Errorf("expected one mismatch error on confirmPassword, got %v", errs)
	}
}

func TestStrongPasswordSurfacesEveryFailure(t *testing.T) {
	schema := SignupSchema(NewValidator())

	errs := schema.Validate(map[string]string{
		"email":           "a@b.com",
		"password":        "alllower",
		"confirmPassword": "alllower",
	})
	byPath := paths(errs)
	// Missing uppercase and missing digit are distinct failures.
	if byPath["password"] != 2 {
		t.Fatalf("expected 2 independent password errors, got %v", errs)
	}
	messages := map[string]bool{}
	for _, e := range errs {
		messages[e.Message] = true
	}
	if !messages[MsgPasswordUpper] || !messages[MsgPasswordDigit] {
		t.Errorf("expected distinct messages per predicate, got %v", errs)
	}
}

func TestFormBlurThenChangeSemantics(t *testing.T) {
	form := NewForm(LoginSchema(NewValidator()))

	// Changes before first blur do not validate.
	form.SetValue("email", "bogus")
	if form.Error("email") != "" {
		t.Fatalf("field validated before blur")
	}

	form.Blur("email")
	if form.Error("email") != MsgEmailInvalid {
		t.Fatalf("blur should validate, got %q", form.Error("email"))
	}

	// After the first failure, every change re-validates.
	form.SetValue("email", "still-bogus")
	if form.Error("email") != MsgEmailInvalid {
		t.Fatalf("failed field must re-validate on change")
	}
	form.SetValue("email", "a@b.com")
	if form.Error("email") != "" {
		t.Fatalf("valid value should clear the error")
	}

	// Once valid again, changes stop triggering validation.
	form.SetValue("email", "bogus-again")
	if form.Error("email") != "" {
		t.Fatalf("recovered field should wait for the next blur")
	}
}

func TestFormSubmitBlockedWhileInvalid(t *testing.T) {
	form := NewForm(LoginSchema(NewValidator()))
	form.SetValue("email", "a@b.com")
	form.SetValue("password", "short")

	if _, ok := form.Submit(); ok {
		t.Fatalf("submit must be blocked while failures exist")
	}
	if form.Valid() {
		t.Fatalf("form should report invalid after failed submit")
	}

	form.SetValue("password", "12345678")
	values, ok := form.Submit()
	if !ok {
		t.Fatalf("submit should pass once fields are valid: %v", form.FieldErrors("password"))
	}
	if values["email"] != "a@b.com" {
		t.Errorf("submit must return normalized values")
	}
}
