// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command bunq manages bunq API credentials and makes signed calls.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/cmd/bunq/commands"
)

func main() {
	if err := run(); err != nil {
		var exitError *cli.ExitError
		if !errors.As(err, &exitError) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func run() error {
	globals := pflag.NewFlagSet("bunq", pflag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.Usage = func() {}
	configPath := globals.String("config", "", "configuration file (default $BUNQ_CONFIG)")
	logLevel := globals.String("log-level", "", "debug, info, warn or error (default from config)")

	app := &commands.App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	if err := globals.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			app.Root().PrintHelp(os.Stderr)
			return nil
		}
		return cli.Validation("%w", err)
	}
	app.ConfigPath = *configPath

	level, err := app.LogLevel(*logLevel)
	if err != nil {
		return cli.Validation("--log-level: %w", err)
	}
	logger := cli.NewCommandLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx, globals.Args(), logger)
}
