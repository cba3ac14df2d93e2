package validate

// Form manages the interactive validation state of one form instance.
//
// Trigger semantics: a field is first validated when it blurs. Once a
// field has failed, it re-validates on every change until it is valid
// again. Submission validates everything and is blocked while any failure
// exists.
type Form struct {
	schema *Schema
	values map[string]string
	errors map[string][]FieldError
	// tightened marks fields in change-triggered re-validation mode.
	tightened map[string]bool
}

// NewForm creates an empty form over schema.
func NewForm(schema *Schema) *Form {
	return &Form{
		schema:    schema,
		values:    make(map[string]string),
		errors:    make(map[string][]FieldError),
		tightened: make(map[string]bool),
	}
}

// SetValue records a field change. Fields that have previously failed are
// re-validated immediately.
func (f *Form) SetValue(path, value string) {
	f.values[path] = value
	if f.tightened[path] {
		f.validatePath(path)
	}
}

// Blur validates the field losing focus.
func (f *Form) Blur(path string) {
	f.validatePath(path)
}

func (f *Form) validatePath(path string) {
	errs := f.schema.ValidateField(path, f.values)
	if len(errs) == 0 {
		delete(f.errors, path)
		delete(f.tightened, path)
		return
	}
	f.errors[path] = errs
	f.tightened[path] = true
}

// FieldErrors returns the current failures for path.
func (f *Form) FieldErrors(path string) []FieldError {
	return f.errors[path]
}

// Error returns the first failure message for path, or "".
func (f *Form) Error(path string) string {
	if errs := f.errors[path]; len(errs) > 0 {
		return errs[0].Message
	}
	return ""
}

// Valid reports whether no failures are currently recorded.
func (f *Form) Valid() bool {
	return len(f.errors) == 0
}

// Submit validates the whole form. On success it returns the normalized
// values; otherwise submission is blocked and every failing field enters
// tightened re-validation.
func (f *Form) Submit() (map[string]string, bool) {
	all := f.schema.Validate(f.values)
	f.errors = make(map[string][]FieldError)
	for _, e := range all {
		f.errors[e.Path] = append(f.errors[e.Path], e)
		f.tightened[e.Path] = true
	}
	if len(f.errors) > 0 {
		return nil, false
	}
	return f.schema.Normalized(f.values), true
}
