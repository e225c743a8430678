// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/config"
	"github.com/bureau-foundation/bunq/lib/keys"
	"github.com/bureau-foundation/bunq/lib/statestore"
)

type keygenParams struct {
	cli.JSONOutput
	Bits  int  `flag:"bits" desc:"RSA modulus size in bits" default:"2048"`
	Force bool `flag:"force" desc:"replace an existing key pair, discarding its installation and session"`
}

type keygenResult struct {
	Directory   string `json:"directory"`
	Fingerprint string `json:"fingerprint"`
	Sealed      bool   `json:"sealed"`
}

func (app *App) keygenCommand() *cli.Command {
	var params keygenParams
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate the client key pair",
		Description: `Generate an RSA key pair for signing API requests and store it in the
state directory. The private key is sealed under a passphrase taken from
state.passphrase_file or prompted for on a terminal; without either it
is stored unsealed.`,
		Params: func() any { return &params },
		Examples: []cli.Example{
			{Description: "Generate a key for a fresh state directory", Command: "bunq keygen"},
			{Description: "Replace the existing key", Command: "bunq keygen --force"},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq keygen [flags]"); err != nil {
				return err
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			store, err := app.openStore(cfg, logger)
			if err != nil {
				return err
			}
			if store.Has(statestore.FilePrivateKey) && !params.Force {
				return cli.Conflict("%s already holds a key pair", store.Directory()).
					WithHint("Pass --force to replace it. The installation and session are discarded.")
			}

			result, err := app.generateKey(cfg, store, params.Bits, logger)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(app.stdout(), result); done {
				return err
			}
			fmt.Fprintf(app.stdout(), "fingerprint: %s\n", result.Fingerprint)
			return nil
		},
	}
}

// generateKey creates and stores a key pair. keygen and bootstrap
// share it.
func (app *App) generateKey(cfg *config.Config, store *statestore.Store, bits int, logger *slog.Logger) (*keygenResult, error) {
	if bits < keys.MinimumBits {
		return nil, cli.Validation("--bits must be at least %d, got %d", keys.MinimumBits, bits)
	}
	pair, err := keys.Generate(bits)
	if err != nil {
		return nil, cli.Internal("%w", err)
	}

	passphrase, err := app.passphrase(cfg, true)
	if err != nil {
		return nil, err
	}
	var passphraseBytes []byte
	if passphrase != nil {
		defer passphrase.Close()
		passphraseBytes = passphrase.Bytes()
	} else {
		logger.Warn("storing private key without a passphrase", "directory", store.Directory())
	}

	if err := store.SaveKeyPair(pair, passphraseBytes); err != nil {
		return nil, err
	}
	logger.Info("key pair generated", "fingerprint", pair.Fingerprint, "bits", bits)
	return &keygenResult{
		Directory:   store.Directory(),
		Fingerprint: pair.Fingerprint,
		Sealed:      passphrase != nil,
	}, nil
}
