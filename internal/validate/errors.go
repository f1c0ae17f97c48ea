package validate

import (
	"errors"
	"strings"
)

// Kind classifies a Violation.
type Kind string

const (
	// KindType means a supplied value could not be coerced to the field's
	// declared type, or a required field was missing.
	KindType Kind = "type"
	// KindInvariant means coerced values break a record invariant.
	KindInvariant Kind = "invariant"
)

// Violation is one rejected field or rule.
type Violation struct {
	Field   string `json:"field"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Violations collects every problem found during a single validation pass.
type Violations []Violation

// Type appends a field type violation.
func (vs *Violations) Type(field, msg string) {
	*vs = append(*vs, Violation{Field: field, Kind: KindType, Message: msg})
}

// Invariant appends an invariant violation.
func (vs *Violations) Invariant(field, msg string) {
	*vs = append(*vs, Violation{Field: field, Kind: KindInvariant, Message: msg})
}

// Has reports whether any violation names field.
func (vs Violations) Has(field string) bool {
	for _, v := range vs {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil when vs is empty and an *Error otherwise.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	out := make(Violations, len(vs))
	copy(out, vs)
	return &Error{Violations: out}
}

// Error is the aggregate validation failure returned to clients.
type Error struct {
	Violations Violations
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	for i, v := range e.Violations {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		if v.Field != "" {
			b.WriteString(v.Field)
			b.WriteString(": ")
		}
		b.WriteString(v.Message)
	}
	return b.String()
}

// AsError unwraps err into an *Error if it is one.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
