// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the bunq CLI command tree.
//
// Every command shares one [App], which owns the process I/O and
// resolves configuration, the state directory and an API client on
// demand. Commands that call the API verify the server signature on
// every response before printing anything from it; a response that
// fails verification ends the command with the integrity exit code.
package commands
