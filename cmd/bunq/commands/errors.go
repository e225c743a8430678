// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"net"
	"net/http"

	"filippo.io/age"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/bunq"
	"github.com/bureau-foundation/bunq/lib/keys"
	"github.com/bureau-foundation/bunq/lib/statestore"
)

// Classify gives err a [cli.ToolError] category. Errors that already
// carry one, and [cli.ExitError], pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var toolError *cli.ToolError
	var exitError *cli.ExitError
	if errors.As(err, &toolError) || errors.As(err, &exitError) {
		return err
	}

	category := cli.CategoryInternal
	switch {
	case bunq.IsVerificationFailure(err):
		category = cli.CategoryIntegrity
	case bunq.IsMissingParameter(err), bunq.IsUnsupportedMethod(err):
		category = cli.CategoryValidation
	case bunq.IsNotFound(err), errors.Is(err, statestore.ErrNotFound):
		category = cli.CategoryNotFound
	case bunq.IsUnauthorized(err), errors.Is(err, keys.ErrWrongPassphrase), isNoIdentityMatch(err):
		category = cli.CategoryForbidden
	case errors.Is(err, statestore.ErrExists):
		category = cli.CategoryConflict
	case isTransient(err):
		category = cli.CategoryTransient
	case isRejected(err):
		category = cli.CategoryValidation
	}
	return &cli.ToolError{Category: category, Err: err}
}

func isTransient(err error) bool {
	var apiError *bunq.APIError
	if errors.As(err, &apiError) {
		return apiError.StatusCode == http.StatusTooManyRequests || apiError.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netError net.Error
	return errors.As(err, &netError)
}

// isRejected reports a remaining 4xx: the request itself was wrong.
func isRejected(err error) bool {
	var apiError *bunq.APIError
	return errors.As(err, &apiError) && apiError.StatusCode >= 400 && apiError.StatusCode < 500
}

func isNoIdentityMatch(err error) bool {
	var noMatch *age.NoIdentityMatchError
	return errors.As(err, &noMatch)
}
