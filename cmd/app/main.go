// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/signflow/cmd/app/commands"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "signflow",
		Usage:   "Electronic signature workflow service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "reminder-sweep",
				Usage: "Run a single reminder sweep (expire overdue envelopes, send reminders)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunReminderSweep(ctx, cmd.String("format"))
				},
			},
			{
				Name:  "verify-audit-logs",
				Usage: "Verify the hash-chained audit ledger of an envelope",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "envelope-id",
						Aliases:  []string{"e"},
						Required: true,
						Usage:    "Envelope ID (UUID)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunVerifyAuditLogs(ctx, cmd.String("envelope-id"), cmd.String("format"))
				},
			},
			{
				Name:  "export-ca",
				Usage: "Export the certificate authority chain as PEM certificates",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Value:   "",
						Usage:   "Directory to write root.pem, intermediate.pem and signing.pem (stdout when empty)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunExportCA(cmd.String("output-dir"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
