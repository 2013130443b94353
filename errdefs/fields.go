package errdefs

import (
	"fmt"
	"sort"
	"strings"
)

// Fields is an unordered map of diagnostic key/value pairs attached to a
// surfaced error: working directory, key environment entries, recent log
// tail; Error() renders them in sorted key order. It is the only representation the reporter/UI receives for an
// operationFailed event's diagnostics.
type Fields map[string]string

// WithFields wraps err so its diagnostic fields are attached to the
// error's Error() string and recoverable via FieldsOf.
func WithFields(err error, fields Fields) error {
	if err == nil || len(fields) == 0 {
		return err
	}
	return &errWithFields{error: err, fields: fields}
}

type errWithFields struct {
	error
	fields Fields
}

func (e *errWithFields) Unwrap() error { return e.error }

func (e *errWithFields) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, e.fields[k]))
	}
	return e.error.Error() + " (" + strings.Join(parts, " ") + ")"
}

// FieldsOf returns the diagnostic fields attached to err via WithFields,
// searching its Unwrap chain, or nil if none are attached.
func FieldsOf(err error) Fields {
	for err != nil {
		if wf, ok := err.(*errWithFields); ok {
			return wf.fields
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}
