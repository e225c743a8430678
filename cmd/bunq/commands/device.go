// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"text/tabwriter"

	"github.com/bureau-foundation/bunq/cmd/bunq/cli"
	"github.com/bureau-foundation/bunq/lib/bunq"
)

func (app *App) deviceCommand() *cli.Command {
	return &cli.Command{
		Name:    "device",
		Summary: "Register and list devices",
		Subcommands: []*cli.Command{
			app.deviceRegisterCommand(),
			app.deviceListCommand(),
		},
	}
}

func (app *App) deviceRegisterCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		APIKeyFile   string   `flag:"api-key-file" desc:"file holding the bunq API key, or - for stdin"`
		Description  string   `flag:"description" desc:"device description (default from device.description)"`
		PermittedIPs []string `flag:"permitted-ip" desc:"IP address allowed to use the API key (repeatable)"`
	}
	return &cli.Command{
		Name:    "register",
		Summary: "Register this key pair as a device-server",
		Description: `POST /device-server under the installation token, binding the API key
to this installation.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq device register [flags]"); err != nil {
				return err
			}
			for _, address := range params.PermittedIPs {
				if net.ParseIP(address) == nil {
					return cli.Validation("--permitted-ip %q is not an IP address", address)
				}
			}
			conn, err := app.connect(logger)
			if err != nil {
				return err
			}
			credentials, err := app.unlock(conn.config, conn.store, conn.store.InstallationCredentials)
			if err != nil {
				return err
			}
			apiKey, err := app.apiKey(conn.config, conn.store, params.APIKeyFile)
			if err != nil {
				return err
			}
			defer apiKey.Close()

			body := bunq.DeviceServerBody{
				Description:  params.Description,
				Secret:       apiKey.String(),
				PermittedIPs: params.PermittedIPs,
			}
			if body.Description == "" {
				body.Description = conn.config.Device.Description
			}
			if len(body.PermittedIPs) == 0 {
				body.PermittedIPs = conn.config.Device.PermittedIPs
			}

			deviceID, err := conn.client.RegisterDevice(ctx, credentials, body)
			if err != nil {
				return err
			}
			if err := conn.store.SaveDevice(deviceID); err != nil {
				return err
			}
			if done, err := params.EmitJSON(app.stdout(), setupResult{DeviceID: deviceID}); done {
				return err
			}
			fmt.Fprintf(app.stdout(), "device %d\n", deviceID)
			return nil
		},
	}
}

type deviceEntry struct {
	Kind        string `json:"kind"`
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	IP          string `json:"ip,omitempty"`
	Created     string `json:"created,omitempty"`
}

func (app *App) deviceListCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
	}
	return &cli.Command{
		Name:    "list",
		Summary: "List the devices of the session user",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq device list"); err != nil {
				return err
			}
			conn, err := app.connect(logger)
			if err != nil {
				return err
			}
			credentials, err := app.unlock(conn.config, conn.store, conn.store.Credentials)
			if err != nil {
				return err
			}
			response, err := conn.client.Device(ctx, credentials, bunq.DeviceOptions{Method: http.MethodGet})
			if err != nil {
				return err
			}
			envelope, err := conn.client.VerifiedEnvelope(credentials, response)
			if err != nil {
				return err
			}

			var entries []deviceEntry
			for _, entity := range envelope.Entities {
				switch device := entity.(type) {
				case *bunq.DeviceServer:
					entries = append(entries, deviceEntry{
						Kind: device.Kind(), ID: device.ID, Description: device.Description,
						Status: device.Status, IP: device.IP, Created: device.Created,
					})
				case *bunq.DevicePhone:
					entries = append(entries, deviceEntry{
						Kind: device.Kind(), ID: device.ID, Description: device.Description,
						Status: device.Status, Created: device.Created,
					})
				}
			}
			if done, err := params.EmitJSON(app.stdout(), entries); done {
				return err
			}

			writer := tabwriter.NewWriter(app.stdout(), 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "ID\tKIND\tSTATUS\tIP\tDESCRIPTION")
			for _, entry := range entries {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n", entry.ID, entry.Kind, entry.Status, entry.IP, entry.Description)
			}
			return writer.Flush()
		},
	}
}
