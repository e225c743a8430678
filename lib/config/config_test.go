// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/bunq/lib/bunq"
)

func TestDefault(t *testing.T) {
	t.Setenv("HOME", "/home/ada")
	cfg := Default()
	cfg.Finalize()

	if cfg.Environment != Sandbox {
		t.Errorf("expected environment=sandbox, got %s", cfg.Environment)
	}
	if cfg.API.BaseURL != bunq.SandboxBaseURL {
		t.Errorf("expected sandbox base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.State.Directory != "/home/ada/.config/bunq/sandbox" {
		t.Errorf("state.directory = %s", cfg.State.Directory)
	}
	if cfg.HTTPTimeout() != 30*time.Second {
		t.Errorf("HTTPTimeout = %s", cfg.HTTPTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresBunqConfig(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	if _, err := Load(); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("Load() error = %v, want ErrNoConfig", err)
	}
}

func TestLoad_WithBunqConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bunq.yaml")
	content := `
environment: production
state:
  directory: /srv/bunq
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Production {
		t.Errorf("expected environment=production, got %s", cfg.Environment)
	}
	if cfg.API.BaseURL != bunq.ProductionBaseURL {
		t.Errorf("production base URL = %s", cfg.API.BaseURL)
	}
	if cfg.State.Directory != "/srv/bunq" || cfg.Log.Level != "debug" {
		t.Errorf("loaded config = %+v", cfg)
	}
	if cfg.API.Version != "v1" {
		t.Errorf("unset api.version lost its default: %q", cfg.API.Version)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_EnvironmentOverrides(t *testing.T) {
	content := `
environment: production
api:
  user_agent: base-agent/1.0
  geolocation: "0 0 0 00 NL"
device:
  description: laptop
  permitted_ips: [203.0.113.1]
sandbox:
  api:
    user_agent: sandbox-agent/1.0
production:
  api:
    base_url: https://api.example.test
    timeout: 5s
  device:
    permitted_ips: [198.51.100.7, 198.51.100.8]
  log:
    level: warn
`
	cfg, err := Parse([]byte(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.test" {
		t.Errorf("base_url override not applied: %s", cfg.API.BaseURL)
	}
	if cfg.API.UserAgent != "base-agent/1.0" {
		t.Errorf("sandbox override leaked into production: %s", cfg.API.UserAgent)
	}
	if cfg.HTTPTimeout() != 5*time.Second {
		t.Errorf("timeout = %s", cfg.HTTPTimeout())
	}
	if strings.Join(cfg.Device.PermittedIPs, ",") != "198.51.100.7,198.51.100.8" {
		t.Errorf("permitted_ips = %v", cfg.Device.PermittedIPs)
	}
	if cfg.Device.Description != "laptop" || cfg.Log.Level != "warn" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("state:\n  directroy: /tmp\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if cfg.Environment != Sandbox {
		t.Errorf("environment = %s", cfg.Environment)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("BUNQ_TEST_SET", "from-env")
	t.Setenv("BUNQ_TEST_EMPTY", "")
	vars := map[string]string{"BUNQ_ENVIRONMENT": "production"}

	tests := []struct {
		input string
		want  string
	}{
		{"/state/${BUNQ_ENVIRONMENT}", "/state/production"},
		{"${BUNQ_TEST_SET}/x", "from-env/x"},
		{"${BUNQ_TEST_EMPTY:-fallback}/x", "fallback/x"},
		{"${BUNQ_TEST_UNSET}/x", "/x"},
		{"plain/path", "plain/path"},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			if got := expandVars(test.input, vars); got != test.want {
				t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestParse_ExpandsStatePaths(t *testing.T) {
	t.Setenv("HOME", "/home/ada")
	t.Setenv("BUNQ_SECRETS", "")
	content := `
environment: production
state:
  passphrase_file: ${BUNQ_SECRETS:-/run/secrets}/passphrase
  api_key_file: ${HOME}/bunq-${BUNQ_ENVIRONMENT}.key
`
	cfg, err := Parse([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.State.Directory != "/home/ada/.config/bunq/production" {
		t.Errorf("directory = %s", cfg.State.Directory)
	}
	if cfg.State.PassphraseFile != "/run/secrets/passphrase" {
		t.Errorf("passphrase_file = %s", cfg.State.PassphraseFile)
	}
	if cfg.State.APIKeyFile != "/home/ada/bunq-production.key" {
		t.Errorf("api_key_file = %s", cfg.State.APIKeyFile)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Environment: "staging",
		API: APIConfig{
			BaseURL: "http://api.bunq.com",
			Timeout: "soon",
		},
		Device: DeviceConfig{PermittedIPs: []string{"203.0.113.1", "not-an-ip"}},
		Log:    LogConfig{Level: "verbose"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, fragment := range []string{
		"environment",
		"api.base_url",
		"api.version",
		"api.timeout",
		"state.directory",
		`"not-an-ip"`,
		"log.level",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("validation error does not mention %s:\n%v", fragment, err)
		}
	}
	if strings.Contains(err.Error(), `"203.0.113.1"`) {
		t.Error("valid permitted IP reported as invalid")
	}
}

func TestValidate_NonPositiveTimeout(t *testing.T) {
	cfg := Default()
	cfg.Finalize()
	cfg.API.Timeout = "0s"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "positive") {
		t.Errorf("Validate() = %v, want a positive-timeout error", err)
	}
}
