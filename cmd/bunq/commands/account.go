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
	"github.com/bureau-foundation/bunq/lib/statestore"
)

// sessionUser returns flagValue when set, otherwise the user the
// stored session belongs to.
func sessionUser(store *statestore.Store, flagValue int64) (int64, error) {
	if flagValue != 0 {
		return flagValue, nil
	}
	manifest, err := store.Manifest()
	if err != nil {
		return 0, err
	}
	if manifest.UserID == 0 {
		return 0, cli.Validation("no user id").
			WithHint("Run 'bunq session start' or pass --user.")
	}
	return manifest.UserID, nil
}

type userEntry struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (app *App) userCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		UserID int64 `flag:"user" desc:"user id (default: the session user)"`
	}
	return &cli.Command{
		Name:    "user",
		Summary: "Show the session user",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := cli.RequireArgs(args, 0, 0, "bunq user [flags]"); err != nil {
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
			manifest, err := conn.store.Manifest()
			if err != nil {
				return err
			}
			userID := params.UserID
			if userID == 0 {
				userID = manifest.UserID
			}

			response, err := conn.client.User(ctx, credentials, bunq.UserOptions{Method: http.MethodGet, ID: userID})
			if err != nil {
				return err
			}
			envelope, err := conn.client.VerifiedEnvelope(credentials, response)
			if err != nil {
				return err
			}

			var entries []userEntry
			for _, user := range bunq.All[bunq.User](envelope) {
				entries = append(entries, userEntry{Kind: user.Kind(), ID: user.UserID(), Name: user.Name()})
			}
			if done, err := params.EmitJSON(app.stdout(), entries); done {
				return err
			}
			for _, entry := range entries {
				fmt.Fprintf(app.stdout(), "%d\t%s\t%s\n", entry.ID, entry.Kind, entry.Name)
			}
			return nil
		},
	}
}

type accountEntry struct {
	Kind        string `json:"kind"`
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	Balance     string `json:"balance"`
	Currency    string `json:"currency"`
	IBAN        string `json:"iban,omitempty"`
	Description string `json:"description"`
}

func (app *App) accountCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		UserID int64 `flag:"user" desc:"user id (default: the session user)"`
	}
	return &cli.Command{
		Name:    "account",
		Summary: "Inspect monetary accounts",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Summary: "List the monetary accounts of a user",
				Params:  func() any { return &params },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					if err := cli.RequireArgs(args, 0, 0, "bunq account list [flags]"); err != nil {
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
					userID, err := sessionUser(conn.store, params.UserID)
					if err != nil {
						return err
					}

					response, err := conn.client.MonetaryAccount(ctx, credentials, bunq.MonetaryAccountOptions{
						Method: http.MethodGet,
						UserID: userID,
					})
					if err != nil {
						return err
					}
					envelope, err := conn.client.VerifiedEnvelope(credentials, response)
					if err != nil {
						return err
					}

					var entries []accountEntry
					for _, account := range bunq.All[bunq.MonetaryAccount](envelope) {
						details := account.Details()
						entries = append(entries, accountEntry{
							Kind:        account.Kind(),
							ID:          account.AccountID(),
							Status:      details.Status,
							Balance:     details.Balance.Value,
							Currency:    details.Currency,
							IBAN:        details.IBAN(),
							Description: details.Description,
						})
					}
					if done, err := params.EmitJSON(app.stdout(), entries); done {
						return err
					}

					writer := tabwriter.NewWriter(app.stdout(), 2, 0, 3, ' ', 0)
					fmt.Fprintln(writer, "ID\tKIND\tSTATUS\tBALANCE\tIBAN\tDESCRIPTION")
					for _, entry := range entries {
						fmt.Fprintf(writer, "%d\t%s\t%s\t%s %s\t%s\t%s\n", entry.ID, entry.Kind, entry.Status,
							entry.Balance, entry.Currency, entry.IBAN, entry.Description)
					}
					return writer.Flush()
				},
			},
		},
	}
}

type permittedIPEntry struct {
	ID     int64  `json:"id"`
	IP     string `json:"ip"`
	Status string `json:"status"`
}

type credentialEntry struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

type permittedIPParams struct {
	cli.JSONOutput
	UserID       int64 `flag:"user" desc:"user id (default: the session user)"`
	CredentialID int64 `flag:"credential" desc:"credential-password-ip id (see 'bunq permitted-ip credentials')"`
}

func (app *App) permittedIPCommand() *cli.Command {
	var listParams, credentialsParams permittedIPParams
	var addParams struct {
		permittedIPParams
		Status string `flag:"status" desc:"ACTIVE or INACTIVE" default:"ACTIVE"`
	}
	return &cli.Command{
		Name:    "permitted-ip",
		Summary: "Manage the IP addresses allowed to use a credential",
		Subcommands: []*cli.Command{
			{
				Name:    "credentials",
				Summary: "List the credentials whose IPs can be managed",
				Params:  func() any { return &credentialsParams },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					if err := cli.RequireArgs(args, 0, 0, "bunq permitted-ip credentials [flags]"); err != nil {
						return err
					}
					conn, credentials, userID, err := app.connectAsUser(logger, credentialsParams.UserID)
					if err != nil {
						return err
					}
					response, err := conn.client.CredentialPasswordIP(ctx, credentials, bunq.CredentialPasswordIPOptions{
						Method: http.MethodGet,
						UserID: userID,
					})
					if err != nil {
						return err
					}
					envelope, err := conn.client.VerifiedEnvelope(credentials, response)
					if err != nil {
						return err
					}

					var entries []credentialEntry
					for _, credential := range bunq.All[*bunq.CredentialPasswordIP](envelope) {
						entries = append(entries, credentialEntry{ID: credential.ID, Status: credential.Status, ExpiryTime: credential.ExpiryTime})
					}
					if done, err := credentialsParams.EmitJSON(app.stdout(), entries); done {
						return err
					}
					for _, entry := range entries {
						fmt.Fprintf(app.stdout(), "%d\t%s\t%s\n", entry.ID, entry.Status, entry.ExpiryTime)
					}
					return nil
				},
			},
			{
				Name:    "list",
				Summary: "List the permitted IPs of a credential",
				Params:  func() any { return &listParams },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					if err := cli.RequireArgs(args, 0, 0, "bunq permitted-ip list --credential ID [flags]"); err != nil {
						return err
					}
					if listParams.CredentialID == 0 {
						return cli.Validation("--credential is required")
					}
					conn, credentials, userID, err := app.connectAsUser(logger, listParams.UserID)
					if err != nil {
						return err
					}
					response, err := conn.client.PermittedIP(ctx, credentials, bunq.PermittedIPOptions{
						Method:       http.MethodGet,
						UserID:       userID,
						CredentialID: listParams.CredentialID,
					})
					if err != nil {
						return err
					}
					envelope, err := conn.client.VerifiedEnvelope(credentials, response)
					if err != nil {
						return err
					}

					var entries []permittedIPEntry
					for _, permitted := range bunq.All[*bunq.PermittedIP](envelope) {
						entries = append(entries, permittedIPEntry{ID: permitted.ID, IP: permitted.IP, Status: permitted.Status})
					}
					if done, err := listParams.EmitJSON(app.stdout(), entries); done {
						return err
					}
					for _, entry := range entries {
						fmt.Fprintf(app.stdout(), "%d\t%s\t%s\n", entry.ID, entry.IP, entry.Status)
					}
					return nil
				},
			},
			{
				Name:    "add",
				Summary: "Allow an IP address to use a credential",
				Usage:   "bunq permitted-ip add --credential ID [flags] IP",
				Params:  func() any { return &addParams },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					if err := cli.RequireArgs(args, 1, 1, "bunq permitted-ip add --credential ID [flags] IP"); err != nil {
						return err
					}
					if net.ParseIP(args[0]) == nil {
						return cli.Validation("%q is not an IP address", args[0])
					}
					if addParams.CredentialID == 0 {
						return cli.Validation("--credential is required")
					}
					conn, credentials, userID, err := app.connectAsUser(logger, addParams.UserID)
					if err != nil {
						return err
					}
					response, err := conn.client.PermittedIP(ctx, credentials, bunq.PermittedIPOptions{
						Method:       http.MethodPost,
						UserID:       userID,
						CredentialID: addParams.CredentialID,
						Body:         &bunq.PermittedIPBody{IP: args[0], Status: addParams.Status},
					})
					if err != nil {
						return err
					}
					envelope, err := conn.client.VerifiedEnvelope(credentials, response)
					if err != nil {
						return err
					}
					id, err := bunq.Find[*bunq.ID](envelope)
					if err != nil {
						return err
					}
					logger.Info("permitted ip added", "permitted_ip_id", id.ID, "ip", args[0])
					if done, err := addParams.EmitJSON(app.stdout(), permittedIPEntry{ID: id.ID, IP: args[0], Status: addParams.Status}); done {
						return err
					}
					fmt.Fprintf(app.stdout(), "permitted ip %d\n", id.ID)
					return nil
				},
			},
		},
	}
}

// connectAsUser connects, unlocks session credentials and resolves the
// user id.
func (app *App) connectAsUser(logger *slog.Logger, flagUserID int64) (*connection, bunq.Credentials, int64, error) {
	conn, err := app.connect(logger)
	if err != nil {
		return nil, bunq.Credentials{}, 0, err
	}
	credentials, err := app.unlock(conn.config, conn.store, conn.store.Credentials)
	if err != nil {
		return nil, bunq.Credentials{}, 0, err
	}
	userID, err := sessionUser(conn.store, flagUserID)
	if err != nil {
		return nil, bunq.Credentials{}, 0, err
	}
	return conn, credentials, userID, nil
}
