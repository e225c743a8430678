// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/bunq"
	"github.com/bureau-foundation/bunq/lib/clock"
	"github.com/bureau-foundation/bunq/lib/config"
	"github.com/bureau-foundation/bunq/lib/secret"
	"github.com/bureau-foundation/bunq/lib/statestore"
	"github.com/bureau-foundation/bunq/lib/version"
)

// App carries what commands need from the process. Zero fields fall
// back to the os streams, http.DefaultClient settings and the real
// clock.
type App struct {
	// ConfigPath is the --config value. Empty means BUNQ_CONFIG, then
	// the built-in defaults.
	ConfigPath string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// HTTPClient is copied for every API client; the copy gets the
	// configured timeout.
	HTTPClient *http.Client

	Clock clock.Clock

	config *config.Config
}

// Run executes args against the command tree and returns an error
// carrying a [cli.ToolError] category.
func (app *App) Run(ctx context.Context, args []string, logger *slog.Logger) error {
	return Classify(app.Root().Execute(ctx, args, logger))
}

// LogLevel resolves the logging level: the flag value when given,
// otherwise the configured one. A configuration that does not load
// yields info here and is reported by the command that needs it.
func (app *App) LogLevel(flagValue string) (slog.Level, error) {
	if flagValue != "" {
		return cli.ParseLevel(flagValue)
	}
	cfg, err := app.loadConfig()
	if err != nil {
		return slog.LevelInfo, nil
	}
	return cli.ParseLevel(cfg.Log.Level)
}

func (app *App) stdin() io.Reader {
	if app.Stdin != nil {
		return app.Stdin
	}
	return os.Stdin
}

func (app *App) stdout() io.Writer {
	if app.Stdout != nil {
		return app.Stdout
	}
	return os.Stdout
}

func (app *App) stderr() io.Writer {
	if app.Stderr != nil {
		return app.Stderr
	}
	return os.Stderr
}

func (app *App) clock() clock.Clock {
	if app.Clock != nil {
		return app.Clock
	}
	return clock.Real()
}

// loadConfig loads and validates the configuration once per App.
func (app *App) loadConfig() (*config.Config, error) {
	if app.config != nil {
		return app.config, nil
	}

	var cfg *config.Config
	var err error
	if app.ConfigPath != "" {
		cfg, err = config.LoadFile(app.ConfigPath)
	} else {
		cfg, err = config.Load()
		if errors.Is(err, config.ErrNoConfig) {
			cfg, err = config.Default(), nil
			cfg.Finalize()
		}
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration:\n%w", err)
	}
	app.config = cfg
	return cfg, nil
}

// openStore opens the configured state directory and refuses one that
// belongs to the other environment.
func (app *App) openStore(cfg *config.Config, logger *slog.Logger) (*statestore.Store, error) {
	store, err := statestore.Open(cfg.State.Directory, statestore.Options{
		Environment: string(cfg.Environment),
		Clock:       app.clock(),
		Logger:      logger,
	})
	if err != nil {
		return nil, cli.Internal("%w", err)
	}
	if err := store.CheckEnvironment(); err != nil {
		return nil, cli.Conflict("%w", err).
			WithHint("Point state.directory at a directory for this environment.")
	}
	return store, nil
}

func (app *App) newClient(cfg *config.Config, logger *slog.Logger) (*bunq.Client, error) {
	httpClient := &http.Client{}
	if app.HTTPClient != nil {
		copied := *app.HTTPClient
		httpClient = &copied
	}
	httpClient.Timeout = cfg.HTTPTimeout()

	userAgent := cfg.API.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	client, err := bunq.NewClient(bunq.Config{
		BaseURL:     cfg.API.BaseURL,
		APIVersion:  cfg.API.Version,
		UserAgent:   userAgent,
		Language:    cfg.API.Language,
		Region:      cfg.API.Region,
		Geolocation: cfg.API.Geolocation,
		HTTPClient:  httpClient,
		Logger:      logger,
	})
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return client, nil
}

// connection bundles what an API command needs.
type connection struct {
	config *config.Config
	store  *statestore.Store
	client *bunq.Client
}

func (app *App) connect(logger *slog.Logger) (*connection, error) {
	cfg, err := app.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := app.openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	client, err := app.newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &connection{config: cfg, store: store, client: client}, nil
}

// passphrase reads the key passphrase from state.passphrase_file, or
// prompts when stdin is a terminal. It returns nil when neither source
// exists. confirm asks twice.
func (app *App) passphrase(cfg *config.Config, confirm bool) (*secret.Buffer, error) {
	if path := cfg.State.PassphraseFile; path != "" {
		buffer, err := secret.ReadFile(path, app.stdin())
		if err != nil {
			return nil, cli.Validation("reading passphrase from %s: %w", path, err)
		}
		return buffer, nil
	}
	buffer, err := cli.ReadPassphrase(app.stderr(), "Passphrase: ", confirm)
	if errors.Is(err, cli.ErrNoTerminal) {
		return nil, nil
	}
	return buffer, err
}

// unlock loads credentials through load, asking for the passphrase
// only when the stored key is sealed.
func (app *App) unlock(cfg *config.Config, store *statestore.Store, load func(passphrase []byte) (bunq.Credentials, error)) (bunq.Credentials, error) {
	protected, err := store.KeyProtected()
	if errors.Is(err, statestore.ErrNotFound) {
		return bunq.Credentials{}, cli.NotFound("no key pair in %s", store.Directory()).
			WithHint("Run 'bunq keygen' or 'bunq bootstrap' first.")
	}
	if err != nil {
		return bunq.Credentials{}, err
	}

	var passphrase []byte
	if protected {
		buffer, err := app.passphrase(cfg, false)
		if err != nil {
			return bunq.Credentials{}, err
		}
		if buffer == nil {
			return bunq.Credentials{}, cli.Forbidden("the private key is passphrase-protected").
				WithHint("Set state.passphrase_file or run on a terminal.")
		}
		defer buffer.Close()
		passphrase = buffer.Bytes()
	}

	credentials, err := load(passphrase)
	if errors.Is(err, statestore.ErrNotFound) {
		return bunq.Credentials{}, cli.NotFound("%w", err).
			WithHint("Run 'bunq install' (or 'bunq bootstrap') first.")
	}
	return credentials, err
}

// apiKey reads the bunq API key from flagPath, state.api_key_file, or
// the api_key file in the state directory, in that order.
func (app *App) apiKey(cfg *config.Config, store *statestore.Store, flagPath string) (*secret.Buffer, error) {
	path := flagPath
	if path == "" {
		path = cfg.State.APIKeyFile
	}
	if path != "" {
		buffer, err := secret.ReadFile(path, app.stdin())
		if err != nil {
			return nil, cli.Validation("reading API key from %s: %w", path, err)
		}
		return buffer, nil
	}

	data, err := store.Read(statestore.FileAPIKey)
	if errors.Is(err, statestore.ErrNotFound) {
		return nil, cli.Validation("no API key available").
			WithHint("Pass --api-key-file or set state.api_key_file.")
	}
	if err != nil {
		return nil, err
	}
	return secret.NewFromBytes(data)
}
