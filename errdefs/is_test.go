package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

type errCause struct {
	err error
}

func newErrCause(err error) errCause {
	return errCause{err: err}
}

func (e errCause) Error() string {
	return e.err.Error()
}

func (e errCause) Cause() error {
	return e.err
}

func TestImplements(t *testing.T) {
	errNotFound := StageNotFound("builder")
	errInvalidParam := UnsupportedOperation("frobnicate")
	errOther := errors.New("other")
	tests := map[string]struct {
		err      error
		expected bool
	}{
		"nil": {},
		"direct-not-found": {
			err:      errNotFound,
			expected: true,
		},
		"direct-other": {
			err: errOther,
		},
		"wrapped-not-found": {
			err:      fmt.Errorf("wrap: %w", errNotFound),
			expected: true,
		},
		"wrapped-other": {
			err: fmt.Errorf("wrap: %w", errOther),
		},
		"multi-wrapped-not-found": {
			err:      fmt.Errorf("wrap: %w", fmt.Errorf("wrap: %w", errNotFound)),
			expected: true,
		},
		"multi-wrapped-other": {
			err: fmt.Errorf("wrap: %w", fmt.Errorf("wrap: %w", errOther)),
		},
		"join-not-found": {
			err:      errors.Join(errOther, errNotFound),
			expected: true,
		},
		"join-other": {
			err: errors.Join(errOther, errOther),
		},
		"join-invalid-param": {
			err: errors.Join(errOther, errInvalidParam, errNotFound),
		},
		"cause-not-found": {
			err:      newErrCause(errNotFound),
			expected: true,
		},
		"join-cause-not-found": {
			err:      errors.Join(errOther, newErrCause(errNotFound)),
			expected: true,
		},
		"join-cause-invalid-param": {
			err: errors.Join(errOther, newErrCause(errInvalidParam), newErrCause(errNotFound)),
		},
		"join-cause-other": {
			err: errors.Join(errOther, newErrCause(errOther)),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := IsStageNotFound(tc.err)
			if got != tc.expected {
				t.Fatalf("IsStageNotFound(%v) = %v, want %v", tc.err, got, tc.expected)
			}
		})
	}
}
