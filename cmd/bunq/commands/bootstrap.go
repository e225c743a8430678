// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/bunq"
	"github.com/bureau-foundation/bunq/lib/keys"
	"github.com/bureau-foundation/bunq/lib/statestore"
)

type setupResult struct {
	InstallationID       int64  `json:"installation_id,omitempty"`
	ServerKeyFingerprint string `json:"server_key_fingerprint,omitempty"`
	ClientKeyFingerprint string `json:"client_key_fingerprint,omitempty"`
	DeviceID             int64  `json:"device_id,omitempty"`
	SessionID            int64  `json:"session_id,omitempty"`
	UserID               int64  `json:"user_id,omitempty"`
	UserName             string `json:"user_name,omitempty"`
}

func (app *App) installCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "install",
		Summary: "Register the client public key with bunq",
		Description: `POST /installation with the stored public key. Stores the installation
token and the server public key; any previous device or session state
is discarded.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq install"); err != nil {
				return err
			}
			conn, err := app.connect(logger)
			if err != nil {
				return err
			}
			credentials, err := app.unlock(conn.config, conn.store, conn.store.Credentials)
			if err != nil {
				return err
			}

			installation, err := conn.client.Install(ctx, credentials.WithToken(""))
			if err != nil {
				return err
			}
			if err := conn.store.SaveInstallation(installation); err != nil {
				return err
			}

			result := setupResult{InstallationID: installation.ID}
			result.ServerKeyFingerprint, _ = keys.FingerprintPEM([]byte(installation.ServerPublicKeyPEM))
			if done, err := params.EmitJSON(app.stdout(), result); done {
				return err
			}
			fmt.Fprintf(app.stdout(), "installation %d\nserver key: %s\n", result.InstallationID, result.ServerKeyFingerprint)
			return nil
		},
	}
}

func (app *App) sessionCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		APIKeyFile string `flag:"api-key-file" desc:"file holding the bunq API key, or - for stdin"`
	}
	return &cli.Command{
		Name:    "session",
		Summary: "Manage API sessions",
		Subcommands: []*cli.Command{
			{
				Name:    "start",
				Summary: "Open a session and store its token",
				Description: `POST /session-server under the installation token. Later commands use
the session token. Run it again when the session expires.`,
				Params: func() any { return &params },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					if err := cli.RequireArgs(args, 0, 0, "bunq session start [flags]"); err != nil {
						return err
					}
					conn, err := app.connect(logger)
					if err != nil {
						return err
					}
					credentials, err := app.unlock(conn.config, conn.store, conn.store.InstallationCredentials)
					if err != nil {
						return err
					}
					apiKey, err := app.apiKey(conn.config, conn.store, params.APIKeyFile)
					if err != nil {
						return err
					}
					defer apiKey.Close()

					session, err := conn.client.StartSession(ctx, credentials, apiKey.String())
					if err != nil {
						return err
					}
					if err := conn.store.SaveSession(session); err != nil {
						return err
					}

					result := sessionResult(session)
					if done, err := params.EmitJSON(app.stdout(), result); done {
						return err
					}
					fmt.Fprintf(app.stdout(), "session %d for user %d (%s)\n", result.SessionID, result.UserID, result.UserName)
					return nil
				},
			},
		},
	}
}

func sessionResult(session *bunq.Session) setupResult {
	result := setupResult{SessionID: session.ID, UserID: session.UserID}
	if session.User != nil {
		result.UserName = session.User.Name()
	}
	return result
}

type bootstrapParams struct {
	cli.JSONOutput
	APIKeyFile   string   `flag:"api-key-file" desc:"file holding the bunq API key, or - for stdin"`
	Description  string   `flag:"description" desc:"device description (default from device.description)"`
	PermittedIPs []string `flag:"permitted-ip" desc:"IP address allowed to use the API key (repeatable; default from device.permitted_ips)"`
	Bits         int      `flag:"bits" desc:"RSA modulus size when a key pair is generated" default:"2048"`
}

func (app *App) bootstrapCommand() *cli.Command {
	var params bootstrapParams
	return &cli.Command{
		Name:    "bootstrap",
		Summary: "Generate keys, install, register the device and start a session",
		Description: `Run the whole setup against bunq in one step: generate a key pair when
the state directory has none, then install, register this device and
start a session. Each step is stored as soon as it succeeds, so a
failure part way keeps what was done. The API key is stored in the
state directory for later 'bunq session start'.`,
		Params: func() any { return &params },
		Examples: []cli.Example{
			{Description: "First run against the sandbox", Command: "bunq bootstrap --api-key-file ~/.bunq-sandbox-key"},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq bootstrap [flags]"); err != nil {
				return err
			}
			conn, err := app.connect(logger)
			if err != nil {
				return err
			}
			apiKey, err := app.apiKey(conn.config, conn.store, params.APIKeyFile)
			if err != nil {
				return err
			}
			defer apiKey.Close()

			var result setupResult
			if !conn.store.Has(statestore.FilePrivateKey) {
				generated, err := app.generateKey(conn.config, conn.store, params.Bits, logger)
				if err != nil {
					return err
				}
				result.ClientKeyFingerprint = generated.Fingerprint
			}
			if err := conn.store.SaveAPIKey(apiKey.Bytes()); err != nil {
				return err
			}
			credentials, err := app.unlock(conn.config, conn.store, conn.store.Credentials)
			if err != nil {
				return err
			}

			description := params.Description
			if description == "" {
				description = conn.config.Device.Description
			}
			permittedIPs := params.PermittedIPs
			if len(permittedIPs) == 0 {
				permittedIPs = conn.config.Device.PermittedIPs
			}

			bootstrapped, err := conn.client.Bootstrap(ctx, credentials.WithToken(""), bunq.BootstrapOptions{
				APIKey:           apiKey.String(),
				Description:      description,
				PermittedIPs:     permittedIPs,
				Installed:        conn.store.SaveInstallation,
				DeviceRegistered: conn.store.SaveDevice,
			})
			if err != nil {
				return err
			}
			if err := conn.store.SaveSession(bootstrapped.Session); err != nil {
				return err
			}

			session := sessionResult(bootstrapped.Session)
			result.InstallationID = bootstrapped.Installation.ID
			result.ServerKeyFingerprint, _ = keys.FingerprintPEM([]byte(bootstrapped.Installation.ServerPublicKeyPEM))
			result.DeviceID = bootstrapped.DeviceID
			result.SessionID = session.SessionID
			result.UserID = session.UserID
			result.UserName = session.UserName

			if done, err := params.EmitJSON(app.stdout(), result); done {
				return err
			}
			fmt.Fprintf(app.stdout(), "installation %d, device %d, session %d\nuser %d (%s)\n",
				result.InstallationID, result.DeviceID, result.SessionID, result.UserID, result.UserName)
			return nil
		},
	}
}
