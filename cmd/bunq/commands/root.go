// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/version"
)

// Root builds the complete command tree.
func (app *App) Root() *cli.Command {
	var versionParams struct {
		cli.JSONOutput
	}
	return &cli.Command{
		Name: "bunq",
		Description: `bunq: signed access to the bunq API.

Keys and tokens live in a per-environment state directory. Run
'bunq bootstrap' once with an API key, then use the other commands.

Global flags (before the command):
  --config PATH       configuration file (default $BUNQ_CONFIG)
  --log-level LEVEL   debug, info, warn or error (default from config)`,
		Output: app.stderr(),
		Subcommands: []*cli.Command{
			app.bootstrapCommand(),
			app.keygenCommand(),
			app.installCommand(),
			app.deviceCommand(),
			app.sessionCommand(),
			app.userCommand(),
			app.accountCommand(),
			app.permittedIPCommand(),
			app.callCommand(),
			app.stateCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Params:  func() any { return &versionParams },
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					if done, err := versionParams.EmitJSON(app.stdout(), map[string]string{
						"version":    version.Short(),
						"full":       version.Full(),
						"user_agent": version.UserAgent(),
					}); done {
						return err
					}
					fmt.Fprintf(app.stdout(), "bunq %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
