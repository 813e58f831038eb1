// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError carries the operation that failed, the resource
// involved, and an optional catalog entry whose remediation text the
// CLI renders beneath the message.
type ActionableError struct {
	// Operation is the verb phrase that failed ("validate mount",
	// "register port range").
	Operation string

	// Resource identifies the path or entity involved (optional).
	Resource string

	// Remedy selects a catalog entry to render, 0 for none.
	Remedy Id

	// Cause is the underlying error (optional).
	Cause error
}

// Wrap attaches operation context to an error. Returns nil for a nil
// cause so it can sit directly on a return path.
func Wrap(err error, operation string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

// WrapWithRemedy attaches operation context plus a catalog entry.
func WrapWithRemedy(err error, operation string, remedy Id) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Remedy: remedy, Cause: err}
}

func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

func (e *ActionableError) Unwrap() error { return e.Cause }

// Issue returns the attached catalog entry, nil when none was set.
func (e *ActionableError) Issue() *Issue {
	if e.Remedy == 0 {
		return nil
	}
	return Get(e.Remedy)
}

// Format renders the message, and in verbose mode the full cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		err := e.Cause
		depth := 1
		for err != nil {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			err = errors.Unwrap(err)
			depth++
		}
	}
	return msg.String()
}
