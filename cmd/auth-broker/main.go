package main

import (
	"context"
	"os"

	"github.com/savaki/auth-broker/cmd/auth-broker/commands"
	"github.com/savaki/auth-broker/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "auth-broker",
		Usage: "Operator tooling for the login broker",
		Description: `Commands for provisioning and inspecting an auth-broker deployment.

This tool provides commands for:
  - Writing provider configuration to SSM Parameter Store
  - Creating the DynamoDB session table
  - Rotating the session cookie signing keys
  - Printing the login and logout URLs a configuration produces`,
		Commands: []*cli.Command{
			commands.SetupCommand(&logger),
			commands.SessionTableCommand(&logger),
			commands.RotateSessionKeysCommand(&logger),
			commands.URLsCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
