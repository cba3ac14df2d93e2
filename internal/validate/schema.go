// Package validate implements declarative form validation: field schema
// fragments composed into whole-form schemas, cross-field refinements, and
// a form-state manager with blur-then-change trigger semantics.
//
// Individual predicates are go-playground/validator tags evaluated one by
// one, so composite rules surface every distinct failure rather than just
// the first.
package validate

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single validation failure keyed by field path.
type FieldError struct {
	Path    string
	Message string
}

// Rule pairs one validator tag with its human-readable message.
type Rule struct {
	Tag     string
	Message string
}

// Field is a schema fragment for one field.
type Field struct {
	Path string
	// Normalize runs before validation. Nil defaults to whitespace
	// trimming.
	Normalize func(string) string
	Rules     []Rule
}

// Refinement is a whole-form check. Its failure attaches to Path only.
type Refinement struct {
	Path    string
	Message string
	Check   func(values map[string]string) bool
}

// Validator wraps the predicate engine shared by all schemas.
type Validator struct {
	engine *validator.Validate
}

// NewValidator constructs the predicate engine with the custom character
// class tags used by strong-password rules.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("has_upper", containsClass(unicode.IsUpper))
	_ = v.RegisterValidation("has_lower", containsClass(unicode.IsLower))
	_ = v.RegisterValidation("has_digit", containsClass(unicode.IsDigit))
	return &Validator{engine: v}
}

func containsClass(class func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.ContainsFunc(fl.Field().String(), class)
	}
}

// Schema validates a set of named string fields.
type Schema struct {
	v           *validator.Validate
	fields      []Field
	refinements []Refinement
}

// NewSchema composes field fragments into a form schema.
func NewSchema(v *validator.Validate, fields ...Field) *Schema {
	return &Schema{v: v, fields: fields}
}

// Refine appends a cross-field refinement.
func (s *Schema) Refine(r Refinement) *Schema {
	s.refinements = append(s.refinements, r)
	return s
}

// Fields returns the schema's field paths in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Path
	}
	return out
}

func normalize(f Field, raw string) string {
	if f.Normalize != nil {
		return f.Normalize(raw)
	}
	return strings.TrimSpace(raw)
}

// Normalized applies every field's normalizer to values.
func (s *Schema) Normalized(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, f := range s.fields {
		out[f.Path] = normalize(f, values[f.Path])
	}
	return out
}

func (s *Schema) validateField(f Field, value string) []FieldError {
	var errs []FieldError
	for _, rule := range f.Rules {
		if rule.Tag == "required" {
			if value == "" {
				// Remaining rules would pile on noise for an empty value.
				return []FieldError{{Path: f.Path, Message: rule.Message}}
			}
			continue
		}
		if value == "" {
			// Optional field left empty: nothing else to check.
			continue
		}
		if err := s.v.Var(value, rule.Tag); err != nil {
			errs = append(errs, FieldError{Path: f.Path, Message: rule.Message})
		}
	}
	return errs
}

// Validate runs every field rule and every refinement over values,
// collecting zero or more failures.
func (s *Schema) Validate(values map[string]string) []FieldError {
	norm := s.Normalized(values)
	var errs []FieldError
	for _, f := range s.fields {
		errs = append(errs, s.validateField(f, norm[f.Path])...)
	}
	for _, r := range s.refinements {
		if !r.Check(norm) {
			errs = append(errs, FieldError{Path: r.Path, Message: r.Message})
		}
	}
	return errs
}

// ValidateField validates a single path: its field rules plus any
// refinement attached to it.
func (s *Schema) ValidateField(path string, values map[string]string) []FieldError {
	norm := s.Normalized(values)
	var errs []FieldError
	for _, f := range s.fields {
		if f.Path == path {
			errs = append(errs, s.validateField(f, norm[f.Path])...)
		}
	}
	for _, r := range s.refinements {
		if r.Path == path && !r.Check(norm) {
			errs = append(errs, FieldError{Path: r.Path, Message: r.Message})
		}
	}
	return errs
}
