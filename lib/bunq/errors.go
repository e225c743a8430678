// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"errors"
	"fmt"
	"strings"
)

// UnsupportedMethodError is returned by a resource operation invoked
// with a method outside its allow-list. Nothing has been signed or sent.
type UnsupportedMethodError struct {
	Operation string
	Method    string
	Allowed   []string
}

func (err *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("bunq: %s does not support method %q (allowed: %s)",
		err.Operation, err.Method, strings.Join(err.Allowed, ", "))
}

// MissingParameterError is returned when a resource operation lacks an
// identifier or body its path or method requires. Nothing has been
// signed or sent.
type MissingParameterError struct {
	Operation string
	Parameter string
}

func (err *MissingParameterError) Error() string {
	return fmt.Sprintf("bunq: %s requires %s", err.Operation, err.Parameter)
}

// VerificationError reports a response whose server signature did not
// verify. The response content must not be trusted.
type VerificationError struct {
	StatusCode int
	RequestID  string
	ResponseID string
	Reason     string
}

func (err *VerificationError) Error() string {
	return fmt.Sprintf("bunq: response verification failed (HTTP %d, request %s, response %s): %s",
		err.StatusCode, err.RequestID, err.ResponseID, err.Reason)
}

// APIError is an error envelope returned by the server:
//
//	{"Error":[{"error_description":"...","error_description_translated":"..."}]}
type APIError struct {
	// StatusCode is the HTTP status, or 0 when decoded from a body
	// without its response.
	StatusCode int

	// Descriptions holds each error_description in order.
	Descriptions []string
}

func (err *APIError) Error() string {
	message := strings.Join(err.Descriptions, "; ")
	if message == "" {
		message = "no error description"
	}
	if err.StatusCode == 0 {
		return "bunq: API error: " + message
	}
	return fmt.Sprintf("bunq: HTTP %d: %s", err.StatusCode, message)
}

// DecodeError reports a response body that does not have the expected
// envelope shape or entity at the expected position.
type DecodeError struct {
	Index  int
	Kind   string
	Reason string
}

func (err *DecodeError) Error() string {
	switch {
	case err.Index >= 0 && err.Kind != "":
		return fmt.Sprintf("bunq: decoding response entity %d (%s): %s", err.Index, err.Kind, err.Reason)
	case err.Index >= 0:
		return fmt.Sprintf("bunq: decoding response entity %d: %s", err.Index, err.Reason)
	case err.Kind != "":
		return fmt.Sprintf("bunq: decoding response (%s): %s", err.Kind, err.Reason)
	default:
		return "bunq: decoding response: " + err.Reason
	}
}

// IsUnsupportedMethod reports whether err is an *UnsupportedMethodError.
func IsUnsupportedMethod(err error) bool {
	var target *UnsupportedMethodError
	return errors.As(err, &target)
}

// IsMissingParameter reports whether err is a *MissingParameterError.
func IsMissingParameter(err error) bool {
	var target *MissingParameterError
	return errors.As(err, &target)
}

// IsVerificationFailure reports whether err is a *VerificationError.
func IsVerificationFailure(err error) bool {
	var target *VerificationError
	return errors.As(err, &target)
}

// IsAPIError reports whether err is an *APIError.
func IsAPIError(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is an API 404 response.
func IsNotFound(err error) bool {
	var target *APIError
	return errors.As(err, &target) && target.StatusCode == 404
}

// IsUnauthorized reports whether err is an API 401 or 403 response:
// a rejected, expired or missing token.
func IsUnauthorized(err error) bool {
	var target *APIError
	return errors.As(err, &target) && (target.StatusCode == 401 || target.StatusCode == 403)
}
