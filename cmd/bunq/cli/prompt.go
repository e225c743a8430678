// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/bunq/lib/secret"
)

// ErrNoTerminal is returned by ReadPassphrase when stdin is not a
// terminal. Scripts supply passphrases through state.passphrase_file.
var ErrNoTerminal = errors.New("stdin is not a terminal")

// ReadPassphrase prompts on prompter and reads a passphrase from the
// terminal on stdin with echo disabled. With confirm set it asks twice
// and fails when the entries differ. An empty entry returns a nil
// buffer and no error: the caller decides whether that is allowed.
func ReadPassphrase(prompter io.Writer, prompt string, confirm bool) (*secret.Buffer, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNoTerminal
	}

	fmt.Fprint(prompter, prompt)
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompter)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}

	if confirm {
		fmt.Fprint(prompter, "Confirm passphrase: ")
		second, err := term.ReadPassword(fd)
		fmt.Fprintln(prompter)
		if err != nil {
			secret.Zero(first)
			return nil, fmt.Errorf("reading passphrase confirmation: %w", err)
		}
		match := subtle.ConstantTimeCompare(first, second) == 1
		secret.Zero(second)
		if !match {
			secret.Zero(first)
			return nil, Validation("passphrases do not match")
		}
	}

	if len(first) == 0 {
		return nil, nil
	}
	return secret.NewFromBytes(first)
}
