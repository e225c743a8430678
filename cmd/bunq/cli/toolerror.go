// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies command errors so scripts can tell a bad
// invocation from a server outage without parsing message text.
type ErrorCategory string

const (
	// CategoryValidation: bad arguments, flags or configuration.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a referenced resource or state file is absent.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden: the API rejected the credentials, or a
	// passphrase or identity did not unlock local material.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict: the operation would overwrite existing state.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient: network failure, timeout, rate limit or a
	// server-side error. Retrying may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryIntegrity: a response signature did not verify. The
	// response must not be trusted and retrying blindly is unsafe.
	CategoryIntegrity ErrorCategory = "integrity"

	// CategoryInternal: anything else.
	CategoryInternal ErrorCategory = "internal"
)

// Exit codes per category. 1 is left for uncategorized failures.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryNotFound:   3,
	CategoryForbidden:  4,
	CategoryConflict:   5,
	CategoryTransient:  6,
	CategoryIntegrity:  7,
	CategoryInternal:   1,
}

// ToolError is a categorized command error wrapping the underlying
// cause. Use the category constructors rather than building one
// directly.
type ToolError struct {
	Category ErrorCategory
	Err      error

	// Hint is an optional next step appended to the message after a
	// blank line.
	Hint string
}

func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

// WithHint sets Hint and returns the receiver for chaining.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Integrity creates an integrity error.
func Integrity(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryIntegrity, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// CategoryOf returns the category of the first ToolError in err's
// chain, or CategoryInternal when there is none.
func CategoryOf(err error) ErrorCategory {
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return toolError.Category
	}
	return CategoryInternal
}

// ExitCode returns the process exit status for err: 0 for nil, the
// code carried by an [ExitError], otherwise the category's code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	return exitCodes[CategoryOf(err)]
}
