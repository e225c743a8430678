// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/bundle"
	"github.com/bureau-foundation/bunq/lib/codec"
	"github.com/bureau-foundation/bunq/lib/secret"
	"github.com/bureau-foundation/bunq/lib/statestore"
)

func (app *App) stateCommand() *cli.Command {
	return &cli.Command{
		Name:    "state",
		Summary: "Inspect, export and import the state directory",
		Description: `The state directory holds the client key pair, the API key, the
installation and session tokens, the server public key, and a CBOR
manifest describing them. Export seals a snapshot to age recipients so
it can be moved to another machine; import restores one.`,
		Subcommands: []*cli.Command{
			app.stateShowCommand(),
			app.stateExportCommand(),
			app.stateImportCommand(),
			app.stateIdentityCommand(),
		},
	}
}

type stateView struct {
	Directory          string    `json:"directory"`
	Environment        string    `json:"environment,omitempty"`
	Fingerprint        string    `json:"fingerprint,omitempty"`
	KeyCreatedAt       time.Time `json:"key_created_at,omitzero"`
	InstallationID     int64     `json:"installation_id,omitempty"`
	InstalledAt        time.Time `json:"installed_at,omitzero"`
	DeviceID           int64     `json:"device_id,omitempty"`
	DeviceRegisteredAt time.Time `json:"device_registered_at,omitzero"`
	SessionID          int64     `json:"session_id,omitempty"`
	SessionStartedAt   time.Time `json:"session_started_at,omitzero"`
	UserID             int64     `json:"user_id,omitempty"`
	UserName           string    `json:"user_name,omitempty"`
	Files              []string  `json:"files"`
}

func (app *App) stateShowCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		Raw bool `flag:"raw" desc:"print the manifest in CBOR diagnostic notation"`
	}
	return &cli.Command{
		Name:    "show",
		Summary: "Print the manifest and the files present",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq state show [flags]"); err != nil {
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

			if params.Raw {
				data, err := store.Read(statestore.FileManifest)
				if err != nil {
					return err
				}
				diagnostic, err := codec.Diagnose(data)
				if err != nil {
					return cli.Internal("%w", err)
				}
				fmt.Fprintln(app.stdout(), diagnostic)
				return nil
			}

			manifest, err := store.Manifest()
			if err != nil {
				return err
			}
			view := stateView{
				Directory:          store.Directory(),
				Environment:        manifest.Environment,
				Fingerprint:        manifest.Fingerprint,
				KeyCreatedAt:       manifest.KeyCreatedAt,
				InstallationID:     manifest.InstallationID,
				InstalledAt:        manifest.InstalledAt,
				DeviceID:           manifest.DeviceID,
				DeviceRegisteredAt: manifest.DeviceRegisteredAt,
				SessionID:          manifest.SessionID,
				SessionStartedAt:   manifest.SessionStartedAt,
				UserID:             manifest.UserID,
				UserName:           manifest.UserName,
				Files:              []string{},
			}
			for _, name := range statestore.Files {
				if store.Has(name) {
					view.Files = append(view.Files, name)
				}
			}
			if done, err := params.EmitJSON(app.stdout(), view); done {
				return err
			}

			out := app.stdout()
			fmt.Fprintf(out, "directory:    %s\n", view.Directory)
			fmt.Fprintf(out, "environment:  %s\n", orNone(view.Environment))
			fmt.Fprintf(out, "key:          %s\n", describeStep(view.Fingerprint, view.KeyCreatedAt))
			fmt.Fprintf(out, "installation: %s\n", describeID(view.InstallationID, view.InstalledAt))
			fmt.Fprintf(out, "device:       %s\n", describeID(view.DeviceID, view.DeviceRegisteredAt))
			fmt.Fprintf(out, "session:      %s\n", describeID(view.SessionID, view.SessionStartedAt))
			if view.UserID != 0 {
				fmt.Fprintf(out, "user:         %d (%s)\n", view.UserID, view.UserName)
			}
			fmt.Fprintf(out, "files:        %s\n", strings.Join(view.Files, " "))
			return nil
		},
	}
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}

func describeStep(value string, at time.Time) string {
	if value == "" {
		return "(none)"
	}
	if at.IsZero() {
		return value
	}
	return value + " at " + at.UTC().Format(time.RFC3339)
}

func describeID(id int64, at time.Time) string {
	if id == 0 {
		return "(none)"
	}
	return describeStep(fmt.Sprint(id), at)
}

func (app *App) stateExportCommand() *cli.Command {
	var params struct {
		Recipients     []string `flag:"recipient,r" desc:"age recipient (age1...) to encrypt to (repeatable)"`
		RecipientsFile string   `flag:"recipients-file" desc:"file with one age recipient per line"`
		Compression    string   `flag:"compression" desc:"none, lz4 or zstd" default:"zstd"`
		Output         string   `flag:"output,o" desc:"write the sealed bundle to this file instead of stdout"`
	}
	return &cli.Command{
		Name:    "export",
		Summary: "Seal the state directory to age recipients",
		Params:  func() any { return &params },
		Examples: []cli.Example{
			{Description: "Move credentials to another machine", Command: "bunq state export -r age1... -o state.bunq"},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq state export [flags]"); err != nil {
				return err
			}
			compression, err := bundle.ParseCompression(params.Compression)
			if err != nil {
				return cli.Validation("%w", err)
			}
			recipients := append([]string(nil), params.Recipients...)
			if params.RecipientsFile != "" {
				data, err := os.ReadFile(params.RecipientsFile)
				if err != nil {
					return cli.Validation("reading recipients: %w", err)
				}
				recipients = append(recipients, strings.Split(string(data), "\n")...)
			}
			if _, err := bundle.ParseRecipients(recipients); err != nil {
				return cli.Validation("%w", err)
			}

			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			store, err := app.openStore(cfg, logger)
			if err != nil {
				return err
			}
			snapshot, err := store.Export()
			if err != nil {
				return err
			}
			defer snapshot.Wipe()

			sealed, err := bundle.Seal(snapshot, recipients, compression)
			if err != nil {
				return cli.Internal("%w", err)
			}
			if err := app.writeOutput(params.Output, []byte(sealed+"\n"), false); err != nil {
				return err
			}
			logger.Info("state exported", "files", len(snapshot.Files), "bytes", snapshot.Size(),
				"compression", compression.String())
			return nil
		},
	}
}

func (app *App) stateImportCommand() *cli.Command {
	var params struct {
		IdentityFile string `flag:"identity-file,i" desc:"age identity file (from 'bunq state identity')"`
		Force        bool   `flag:"force" desc:"replace an existing key pair"`
	}
	return &cli.Command{
		Name:    "import",
		Summary: "Restore the state directory from a sealed bundle",
		Usage:   "bunq state import --identity-file FILE [--force] [BUNDLE|-]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 1, "bunq state import --identity-file FILE [--force] [BUNDLE|-]"); err != nil {
				return err
			}
			if params.IdentityFile == "" {
				return cli.Validation("--identity-file is required")
			}
			identity, err := readIdentity(params.IdentityFile)
			if err != nil {
				return err
			}
			defer identity.Close()

			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			var text []byte
			if source == "-" {
				text, err = io.ReadAll(app.stdin())
			} else {
				text, err = os.ReadFile(source)
			}
			if err != nil {
				return cli.Validation("reading bundle: %w", err)
			}

			snapshot, err := bundle.Open(string(text), identity)
			if err != nil {
				return err
			}
			defer snapshot.Wipe()

			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			store, err := app.openStore(cfg, logger)
			if err != nil {
				return err
			}
			if err := store.Import(snapshot, params.Force); err != nil {
				if errors.Is(err, statestore.ErrExists) {
					return cli.Conflict("%w", err).WithHint("Pass --force to replace it.")
				}
				return err
			}
			fmt.Fprintf(app.stdout(), "imported %d files into %s\n", len(snapshot.Files), store.Directory())
			return nil
		},
	}
}

func (app *App) stateIdentityCommand() *cli.Command {
	var params struct {
		Output string `flag:"output,o" desc:"write the identity to this file (created, never overwritten)"`
	}
	return &cli.Command{
		Name:    "identity",
		Summary: "Generate an age identity for receiving exported state",
		Description: `Generate an age X25519 identity. The identity file is written in the
same format age-keygen uses; its public key is the recipient to pass to
'bunq state export'.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq state identity [flags]"); err != nil {
				return err
			}
			identity, err := bundle.GenerateIdentity()
			if err != nil {
				return cli.Internal("%w", err)
			}
			defer identity.Close()

			var content bytes.Buffer
			fmt.Fprintf(&content, "# created: %s\n", app.clock().Now().UTC().Format(time.RFC3339))
			fmt.Fprintf(&content, "# public key: %s\n", identity.Recipient)
			content.Write(identity.Secret.Bytes())
			content.WriteString("\n")
			defer secret.Zero(content.Bytes())

			if err := app.writeOutput(params.Output, content.Bytes(), true); err != nil {
				return err
			}
			if params.Output != "" {
				fmt.Fprintf(app.stdout(), "%s\n", identity.Recipient)
			}
			return nil
		},
	}
}

// writeOutput writes data to path with mode 0600, or to stdout when
// path is empty. With exclusive set an existing file is a conflict.
func (app *App) writeOutput(path string, data []byte, exclusive bool) error {
	if path == "" {
		_, err := app.stdout().Write(data)
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return cli.Conflict("%s already exists", path)
	}
	if err != nil {
		return cli.Internal("%w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return cli.Internal("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return cli.Internal("writing %s: %w", path, err)
	}
	return nil
}

// readIdentity extracts the AGE-SECRET-KEY line from an identity file.
// Comment and blank lines are skipped.
func readIdentity(path string) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cli.Validation("reading identity: %w", err)
	}
	defer secret.Zero(data)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if bytes.HasPrefix(line, []byte("AGE-SECRET-KEY-")) {
			return secret.NewFromBytes(line)
		}
	}
	return nil, cli.Validation("%s holds no AGE-SECRET-KEY line", path)
}
