// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the bunq CLI configuration from YAML.
//
// The file is named by --config (via [LoadFile]) or the BUNQ_CONFIG
// environment variable (via [Load]). There is no search path. When
// neither is given, [Load] returns [ErrNoConfig] and the caller may
// fall back to [Default].
//
// Per-environment sections (sandbox, production) override base values
// when [Config].Environment matches. The production base URL is the
// default for the production environment; the sandbox URL otherwise.
//
// Path fields expand ${VAR} and ${VAR:-default}. ${BUNQ_ENVIRONMENT}
// expands to the selected environment, which keeps sandbox and
// production state apart by default.
//
// Secrets never live in the struct: the state section names the files
// the passphrase and API key are read from.
package config
