// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/bunq/lib/bunq"
	"github.com/bureau-foundation/bunq/lib/clock"
	"github.com/bureau-foundation/bunq/lib/keys"
	"github.com/bureau-foundation/bunq/lib/statestore"
	"github.com/bureau-foundation/bunq/lib/testutil"
)

const (
	testPassphrase = "correct horse battery staple"
	testAPIKey     = "sandbox-api-key"
)

var (
	epoch     = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	serverKey = testutil.RSAKey("server")
	clientKey = testutil.RSAKey("client")
)

// harness runs commands against a fake bunq server with a temporary
// configuration and state directory.
type harness struct {
	t        *testing.T
	fake     *testutil.FakeBunq
	app      *App
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	dir      string
	stateDir string
}

type harnessOptions struct {
	// noPassphrase leaves state.passphrase_file unset.
	noPassphrase bool
}

func newHarness(t *testing.T, options harnessOptions) *harness {
	t.Helper()
	dir := t.TempDir()
	fake := testutil.NewFakeBunq(t, serverKey)

	h := &harness{
		t:        t,
		fake:     fake,
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		dir:      dir,
		stateDir: filepath.Join(dir, "state"),
	}

	apiKeyFile := h.writeFile("api-key", testAPIKey+"\n")
	passphraseLine := ""
	if !options.noPassphrase {
		passphraseLine = "  passphrase_file: " + h.writeFile("passphrase", testPassphrase+"\n") + "\n"
	}
	configPath := h.writeFile("config.yaml", fmt.Sprintf(`environment: sandbox
api:
  base_url: %s
  timeout: 10s
state:
  directory: %s
  api_key_file: %s
%sdevice:
  description: test device
  permitted_ips: [203.0.113.7]
log:
  level: debug
`, fake.URL(), h.stateDir, apiKeyFile, passphraseLine))

	h.app = &App{
		ConfigPath: configPath,
		Stdin:      strings.NewReader(""),
		Stdout:     h.stdout,
		Stderr:     h.stderr,
		HTTPClient: fake.HTTPClient(),
		Clock:      clock.Fake(epoch),
	}
	return h
}

func (h *harness) writeFile(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		h.t.Fatal(err)
	}
	return path
}

// run executes a command line and returns its error. stdout holds only
// this run's output afterwards.
func (h *harness) run(args ...string) error {
	h.t.Helper()
	h.stdout.Reset()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return h.app.Run(context.Background(), args, logger)
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	if err := h.run(args...); err != nil {
		h.t.Fatalf("bunq %s: %v", strings.Join(args, " "), err)
	}
	return h.stdout.String()
}

func (h *harness) store() *statestore.Store {
	h.t.Helper()
	store, err := statestore.Open(h.stateDir, statestore.Options{Environment: "sandbox", Clock: clock.Fake(epoch)})
	if err != nil {
		h.t.Fatal(err)
	}
	return store
}

// seedKey stores the shared client key sealed under testPassphrase.
func (h *harness) seedKey() {
	h.t.Helper()
	pair, err := keys.NewPair(clientKey)
	if err != nil {
		h.t.Fatal(err)
	}
	if err := h.store().SaveKeyPair(pair, []byte(testPassphrase)); err != nil {
		h.t.Fatal(err)
	}
	h.fake.TrustClientKey(&clientKey.PublicKey)
}

func (h *harness) seedInstallation() {
	h.t.Helper()
	h.seedKey()
	err := h.store().SaveInstallation(&bunq.InstallResult{
		ID:                 11,
		Token:              "installation-token",
		ServerPublicKeyPEM: h.fake.ServerPublicKeyPEM(h.t),
	})
	if err != nil {
		h.t.Fatal(err)
	}
}

func (h *harness) seedSession() {
	h.t.Helper()
	h.seedInstallation()
	err := h.store().SaveSession(&bunq.Session{
		ID:     31,
		Token:  "session-token",
		UserID: 42,
		User:   &bunq.UserCompany{ID: 42, CompanyName: "Analytical Engines BV"},
	})
	if err != nil {
		h.t.Fatal(err)
	}
}

// routeBootstrap answers the three bootstrap calls.
func (h *harness) routeBootstrap() {
	t := h.t
	h.fake.Route(http.MethodPost, "/v1/installation", http.StatusOK, testutil.EnvelopeJSON(t,
		"Id", map[string]any{"id": 11},
		"Token", map[string]any{"id": 12, "token": "installation-token"},
		"ServerPublicKey", map[string]any{"server_public_key": h.fake.ServerPublicKeyPEM(t)},
	))
	h.fake.Route(http.MethodPost, "/v1/device-server", http.StatusOK, testutil.EnvelopeJSON(t,
		"Id", map[string]any{"id": 21},
	))
	h.fake.Route(http.MethodPost, "/v1/session-server", http.StatusOK, testutil.EnvelopeJSON(t,
		"Id", map[string]any{"id": 31},
		"Token", map[string]any{"id": 32, "token": "session-token"},
		"UserCompany", map[string]any{"id": 42, "name": "Analytical Engines BV"},
	))
}
