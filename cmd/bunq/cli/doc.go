// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework behind the bunq binary.
//
// A [Command] tree is dispatched by name. Leaf commands declare their
// flags as a tagged params struct (see [BindFlags]) and run with a
// context and a logger scoped by the caller. Unknown commands and
// flags get an edit-distance suggestion.
//
// Errors returned by commands are classified with [ToolError]
// categories; [ExitCode] maps a category to the process exit status.
// [ExitError] exits with a code without printing anything further.
//
// [NewCommandLogger] picks a text handler for terminals and JSON for
// pipes. [ReadPassphrase] prompts on the terminal without echo.
package cli
