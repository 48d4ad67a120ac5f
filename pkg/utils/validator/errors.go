package validator

import (
	"fmt"
	"strings"
)

// FieldError describes one failed rule on one field.
type FieldError struct {
	Field   string      `json:"field"`
	Tag     string      `json:"tag"`
	Value   interface{} `json:"value,omitempty"`
	Param   string      `json:"param,omitempty"`
	Message string      `json:"message"`
}

// ValidationErrors aggregates every field error of a single validation pass
// and implements the error interface. All read accessors tolerate a nil
// receiver, so callers never have to nil-check before inspecting a result.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	msgs := v.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// HasErrors reports whether any field failed.
func (v *ValidationErrors) HasErrors() bool { return v.Count() > 0 }

// Count returns the number of field errors.
func (v *ValidationErrors) Count() int {
	if v == nil {
		return 0
	}
	return len(v.Errors)
}

// First returns the first error message, empty when there is none.
func (v *ValidationErrors) First() string {
	if v.Count() == 0 {
		return ""
	}
	return v.Errors[0].Message
}

// FirstField returns the field name of the first error.
func (v *ValidationErrors) FirstField() string {
	if v.Count() == 0 {
		return ""
	}
	return v.Errors[0].Field
}

// Messages returns every error message in order.
func (v *ValidationErrors) Messages() []string {
	if v.Count() == 0 {
		return nil
	}
	msgs := make([]string, len(v.Errors))
	for i, fe := range v.Errors {
		msgs[i] = fe.Message
	}
	return msgs
}

// ByField groups the error messages by field name.
func (v *ValidationErrors) ByField() map[string][]string {
	if v.Count() == 0 {
		return nil
	}
	grouped := make(map[string][]string, len(v.Errors))
	for _, fe := range v.Errors {
		grouped[fe.Field] = append(grouped[fe.Field], fe.Message)
	}
	return grouped
}

// ForField returns the error messages of a single field, nil when it passed.
func (v *ValidationErrors) ForField(field string) []string {
	if v.Count() == 0 {
		return nil
	}
	var msgs []string
	for _, fe := range v.Errors {
		if fe.Field == field {
			msgs = append(msgs, fe.Message)
		}
	}
	return msgs
}

// ToMap shapes the errors for embedding into an API response payload.
func (v *ValidationErrors) ToMap() map[string]interface{} {
	if v.Count() == 0 {
		return nil
	}
	return map[string]interface{}{
		"errors": v.Errors,
		"count":  len(v.Errors),
	}
}

func (v *ValidationErrors) String() string { return v.Error() }

// Format renders the plain message for %v/%s/%q and a per-field breakdown
// with tag, param and offending value for %+v.
func (v *ValidationErrors) Format(f fmt.State, verb rune) {
	switch {
	case verb == 'v' && f.Flag('+'):
		_, _ = fmt.Fprintf(f, "ValidationErrors(%d):\n", v.Count())
		for i, fe := range v.Errors {
			_, _ = fmt.Fprintf(f, "  [%d] %s: %s (tag=%s", i, fe.Field, fe.Message, fe.Tag)
			if fe.Param != "" {
				_, _ = fmt.Fprintf(f, ", param=%s", fe.Param)
			}
			if fe.Value != nil {
				_, _ = fmt.Fprintf(f, ", value=%v", fe.Value)
			}
			_, _ = fmt.Fprint(f, ")\n")
		}
	case verb == 'q':
		_, _ = fmt.Fprintf(f, "%q", v.Error())
	default:
		_, _ = fmt.Fprint(f, v.Error())
	}
}

// Append adds a field error built from its parts.
func (v *ValidationErrors) Append(field, tag, message string) {
	v.Errors = append(v.Errors, FieldError{Field: field, Tag: tag, Message: message})
}

// AppendError adds a fully populated FieldError.
func (v *ValidationErrors) AppendError(fe FieldError) {
	v.Errors = append(v.Errors, fe)
}

// NewValidationErrors creates an empty collection ready for Append.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]FieldError, 0)}
}

// NewValidationError creates a collection holding a single error.
func NewValidationError(field, tag, message string) *ValidationErrors {
	errs := NewValidationErrors()
	errs.Append(field, tag, message)
	return errs
}
