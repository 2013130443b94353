// Package multierror joins independent failures from concurrent fan-out
// (platform tasks, or sibling nodes when failFast is false) into one
// readable error instead of reporting only the first one seen.
package multierror

import "strings"

// Join combines errs into one error. Nil entries are dropped; joining
// zero errors returns nil; joining exactly one returns it unchanged so a
// single failure never gains a needless "* " bullet. Joining two or more
// renders as a bullet list, with each member's own multi-line rendering
// indented one level under its bullet.
func Join(errs ...error) error {
	var filtered []error
	for _, e := range errs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &multiError{errs: filtered}
	}
}

type multiError struct {
	errs []error
}

func (m *multiError) Error() string {
	var sb strings.Builder
	for i, err := range m.errs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		lines := strings.Split(err.Error(), "\n")
		sb.WriteString("* " + lines[0])
		for _, l := range lines[1:] {
			sb.WriteString("\n\t" + l)
		}
	}
	return sb.String()
}

// Unwrap exposes the joined errors for errors.Is/errors.As.
func (m *multiError) Unwrap() []error { return m.errs }
