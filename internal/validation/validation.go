// Package validation builds the localized form schemas of the auth screens.
// A schema is a value; validating never returns a Go error, only Errors.
package validation

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"teslabooking/internal/i18n"
)

// Form field names.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

const (
	MaxEmailLength    = 255
	MinPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail reports whether s looks like an address and fits the column.
// Length counts characters, as the form schemas do.
func IsEmail(s string) bool {
	return maxLength(MaxEmailLength)(s) && emailPattern.MatchString(s)
}

// Errors maps a field name to its localized messages.
type Errors map[string][]string

// OK reports whether no field failed.
func (e Errors) OK() bool {
	return len(e) == 0
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message of field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e Errors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Error joins all messages, fields in name order, so Errors can be returned
// where an error value is expected.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(strings.Join(e[f], ", "))
	}
	return b.String()
}

// Rule is one check of a single field value.
type Rule struct {
	Check   func(value string) bool
	Message string
}

// Field is a named field with its rules. A required field that is empty
// reports only its required message.
type Field struct {
	Name     string
	Required string
	Rules    []Rule
}

// Refinement is a cross-field check. It returns the field the failure is
// attached to and whether the values passed.
type Refinement func(values map[string]string) (field, message string, ok bool)

// Schema is a composable form validator.
type Schema struct {
	fields      []Field
	refinements []Refinement
}

func NewSchema(fields ...Field) *Schema {
	return &Schema{fields: fields}
}

// Refine returns a copy of s with r appended.
func (s *Schema) Refine(r Refinement) *Schema {
	out := &Schema{
		fields:      append([]Field(nil), s.fields...),
		refinements: append(append([]Refinement(nil), s.refinements...), r),
	}
	return out
}

// Validate checks values against every field and refinement.
func (s *Schema) Validate(values map[string]string) Errors {
	errs := Errors{}
	for _, f := range s.fields {
		v := values[f.Name]
		if v == "" {
			if f.Required != "" {
				errs.add(f.Name, f.Required)
			}
			continue
		}
		for _, r := range f.Rules {
			if !r.Check(v) {
				errs.add(f.Name, r.Message)
			}
		}
	}
	for _, r := range s.refinements {
		if field, msg, ok := r(values); !ok {
			errs.add(field, msg)
		}
	}
	return errs
}

func emailField(t *i18n.Table) Field {
	return Field{
		Name:     FieldEmail,
		Required: t.T(i18n.KeyEmailRequired),
		Rules: []Rule{
			{Check: emailPattern.MatchString, Message: t.T(i18n.KeyEmailInvalid)},
			{Check: maxLength(MaxEmailLength), Message: t.T(i18n.KeyEmailTooLong)},
		},
	}
}

func strongPasswordField(name string, t *i18n.Table) Field {
	return Field{
		Name:     name,
		Required: t.T(i18n.KeyPasswordRequired),
		Rules: []Rule{
			{Check: minLength(MinPasswordLength), Message: t.T(i18n.KeyPasswordMinLength)},
			{Check: containsRune(unicode.IsUpper), Message: t.T(i18n.KeyPasswordUppercase)},
			{Check: containsRune(unicode.IsDigit), Message: t.T(i18n.KeyPasswordDigit)},
		},
	}
}

// Login accepts any non-empty password so legacy weak passwords still work.
func Login(t *i18n.Table) *Schema {
	return NewSchema(
		emailField(t),
		Field{Name: FieldPassword, Required: t.T(i18n.KeyPasswordRequired)},
	)
}

func Signup(t *i18n.Table) *Schema {
	return NewSchema(emailField(t), strongPasswordField(FieldPassword, t))
}

func ForgotPassword(t *i18n.Table) *Schema {
	return NewSchema(emailField(t))
}

// ResetPassword attaches a mismatch to confirmPassword, not to the form.
func ResetPassword(t *i18n.Table) *Schema {
	mismatch := t.T(i18n.KeyPasswordMismatch)
	return NewSchema(
		strongPasswordField(FieldPassword, t),
		Field{Name: FieldConfirmPassword, Required: t.T(i18n.KeyConfirmRequired)},
	).Refine(func(values map[string]string) (string, string, bool) {
		confirm := values[FieldConfirmPassword]
		if confirm == "" || confirm == values[FieldPassword] {
			return "", "", true
		}
		return FieldConfirmPassword, mismatch, false
	})
}

func minLength(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) >= n }
}

func maxLength(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) <= n }
}

func containsRune(pred func(rune) bool) func(string) bool {
	return func(s string) bool { return strings.IndexFunc(s, pred) >= 0 }
}
