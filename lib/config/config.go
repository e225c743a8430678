// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/bunq/lib/bunq"
)

// Environment selects the bunq API the client talks to.
type Environment string

const (
	// Sandbox is bunq's public test environment.
	Sandbox Environment = "sandbox"
	// Production moves real money.
	Production Environment = "production"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "BUNQ_CONFIG"

// ErrNoConfig is returned by Load when BUNQ_CONFIG is unset.
var ErrNoConfig = errors.New("config: " + EnvironmentVariable + " not set")

// LogLevels are the accepted values of log.level.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config is the complete CLI configuration.
type Config struct {
	Environment Environment  `yaml:"environment"`
	API         APIConfig    `yaml:"api"`
	State       StateConfig  `yaml:"state"`
	Device      DeviceConfig `yaml:"device"`
	Log         LogConfig    `yaml:"log"`

	// Per-environment overrides, applied after the base values.
	SandboxOverrides    *Overrides `yaml:"sandbox,omitempty"`
	ProductionOverrides *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment block may replace.
type Overrides struct {
	API    *APIConfig    `yaml:"api,omitempty"`
	State  *StateConfig  `yaml:"state,omitempty"`
	Device *DeviceConfig `yaml:"device,omitempty"`
	Log    *LogConfig    `yaml:"log,omitempty"`
}

// APIConfig sets the endpoint and the fixed request headers.
type APIConfig struct {
	// BaseURL is the API root without version. Empty selects the
	// environment's default.
	BaseURL string `yaml:"base_url"`

	// Version is the path segment after the base URL. Default: v1
	Version string `yaml:"version"`

	UserAgent   string `yaml:"user_agent"`
	Language    string `yaml:"language"`
	Region      string `yaml:"region"`
	Geolocation string `yaml:"geolocation"`

	// Timeout bounds each HTTP exchange, as a Go duration string.
	// Default: 30s
	Timeout string `yaml:"timeout"`
}

// StateConfig locates the state directory and secret files.
type StateConfig struct {
	// Directory holds keys and tokens.
	// Default: ${HOME}/.config/bunq/${BUNQ_ENVIRONMENT}
	Directory string `yaml:"directory"`

	// PassphraseFile holds the private key passphrase, or "-" for
	// stdin. Empty means the CLI prompts on a terminal, or the key is
	// stored unsealed when there is none.
	PassphraseFile string `yaml:"passphrase_file"`

	// APIKeyFile holds the bunq API key for bootstrap and session
	// start. Empty falls back to the api_key file in Directory.
	APIKeyFile string `yaml:"api_key_file"`
}

// DeviceConfig describes the device-server registration.
type DeviceConfig struct {
	Description  string   `yaml:"description"`
	PermittedIPs []string `yaml:"permitted_ips"`
}

// LogConfig configures CLI logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Environment: Sandbox,
		API: APIConfig{
			Version: "v1",
			Timeout: "30s",
		},
		State: StateConfig{
			Directory: "${HOME}/.config/bunq/${BUNQ_ENVIRONMENT}",
		},
		Device: DeviceConfig{
			Description: "bunq-go",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads the file named by BUNQ_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, ErrNoConfig
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over the defaults, applies
// the environment's overrides and expands variables. It does not
// validate; call Validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse is LoadFile for in-memory YAML. Unknown keys are errors, so a
// misspelled option is reported instead of silently ignored.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	cfg.Finalize()
	return cfg, nil
}

// Finalize applies environment overrides and variable expansion. Load
// and LoadFile call it; code that builds a Config by hand (Default plus
// flag overrides) calls it once before use.
func (c *Config) Finalize() {
	c.applyEnvironmentOverrides()
	if c.API.BaseURL == "" {
		c.API.BaseURL = c.Environment.BaseURL()
	}
	c.expandVariables()
}

// BaseURL returns the default API root for the environment.
func (e Environment) BaseURL() string {
	if e == Production {
		return bunq.ProductionBaseURL
	}
	return bunq.SandboxBaseURL
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Sandbox:
		overrides = c.SandboxOverrides
	case Production:
		overrides = c.ProductionOverrides
	}
	if overrides == nil {
		return
	}

	if api := overrides.API; api != nil {
		override(&c.API.BaseURL, api.BaseURL)
		override(&c.API.Version, api.Version)
		override(&c.API.UserAgent, api.UserAgent)
		override(&c.API.Language, api.Language)
		override(&c.API.Region, api.Region)
		override(&c.API.Geolocation, api.Geolocation)
		override(&c.API.Timeout, api.Timeout)
	}
	if state := overrides.State; state != nil {
		override(&c.State.Directory, state.Directory)
		override(&c.State.PassphraseFile, state.PassphraseFile)
		override(&c.State.APIKeyFile, state.APIKeyFile)
	}
	if device := overrides.Device; device != nil {
		override(&c.Device.Description, device.Description)
		if device.PermittedIPs != nil {
			c.Device.PermittedIPs = device.PermittedIPs
		}
	}
	if log := overrides.Log; log != nil {
		override(&c.Log.Level, log.Level)
	}
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"BUNQ_ENVIRONMENT": string(c.Environment),
		"HOME":             os.Getenv("HOME"),
	}
	c.State.Directory = expandVars(c.State.Directory, vars)
	c.State.PassphraseFile = expandVars(c.State.PassphraseFile, vars)
	c.State.APIKeyFile = expandVars(c.State.APIKeyFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars take precedence
// over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// HTTPTimeout returns the parsed api.timeout, or zero if it does not
// parse. Validate reports the parse error.
func (c *Config) HTTPTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 0
	}
	return timeout
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Sandbox && c.Environment != Production {
		errs = append(errs, fmt.Errorf("environment must be sandbox or production, got %q", c.Environment))
	}

	if parsed, err := url.Parse(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	} else if parsed.Scheme != "https" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url must be an https URL, got %q", c.API.BaseURL))
	}
	if c.API.Version == "" {
		errs = append(errs, fmt.Errorf("api.version is required"))
	}
	if timeout, err := time.ParseDuration(c.API.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("api.timeout: %w", err))
	} else if timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", timeout))
	}

	if c.State.Directory == "" {
		errs = append(errs, fmt.Errorf("state.directory is required"))
	}

	for _, address := range c.Device.PermittedIPs {
		if net.ParseIP(address) == nil {
			errs = append(errs, fmt.Errorf("device.permitted_ips: %q is not an IP address", address))
		}
	}

	if !slices.Contains(LogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %v, got %q", LogLevels, c.Log.Level))
	}

	return errors.Join(errs...)
}
