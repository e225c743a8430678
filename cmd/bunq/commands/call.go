// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/bunq"
)

func (app *App) callCommand() *cli.Command {
	var params struct {
		Body    string `flag:"body" desc:"request body file (JSON with comments allowed), or - for stdin"`
		Compact bool   `flag:"compact" desc:"print the response body as received instead of indented"`
	}
	return &cli.Command{
		Name:    "call",
		Summary: "Send a signed request to any endpoint",
		Usage:   "bunq call METHOD PATH [--body FILE]",
		Description: `Send an arbitrary signed request with the stored credentials and print
the response body once its signature verifies. PATH is relative to the
API version ("/user/42/monetary-account"). Non-2xx responses are
reported as errors after verification.`,
		Params: func() any { return &params },
		Examples: []cli.Example{
			{Description: "Read one monetary account", Command: "bunq call GET /user/42/monetary-account/7"},
			{Description: "Create a request with a commented body", Command: "bunq call POST /user/42/monetary-account/7/request-inquiry --body inquiry.jsonc"},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 2, 2, "bunq call METHOD PATH [--body FILE]"); err != nil {
				return err
			}
			method := strings.ToUpper(args[0])
			path := args[1]
			if !strings.HasPrefix(path, "/") {
				return cli.Validation("PATH must start with /, got %q", path)
			}

			var body any
			if params.Body != "" {
				raw, err := app.readBody(params.Body)
				if err != nil {
					return err
				}
				body = raw
			}

			conn, err := app.connect(logger)
			if err != nil {
				return err
			}
			credentials, err := app.unlock(conn.config, conn.store, conn.store.Credentials)
			if err != nil {
				return err
			}
			response, err := conn.client.Do(ctx, credentials, method, path, body)
			if err != nil {
				return err
			}
			if err := conn.client.Verify(credentials, response); err != nil {
				return err
			}
			if response.StatusCode < 200 || response.StatusCode >= 300 {
				_, err := bunq.DecodeResponse(response)
				return err
			}

			output := response.Body
			if !params.Compact {
				var indented bytes.Buffer
				if json.Indent(&indented, response.Body, "", "  ") == nil {
					output = indented.Bytes()
				}
			}
			if _, err := app.stdout().Write(output); err != nil {
				return err
			}
			_, err = io.WriteString(app.stdout(), "\n")
			return err
		},
	}
}

// readBody reads a JSONC request body from path or stdin and returns
// it as plain JSON.
func (app *App) readBody(path string) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(app.stdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, cli.Validation("reading request body: %w", err)
	}
	converted := jsonc.ToJSON(data)
	if !json.Valid(converted) {
		return nil, cli.Validation("request body %s is not valid JSON", path)
	}
	return json.RawMessage(converted), nil
}
