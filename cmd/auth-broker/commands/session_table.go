package commands

import (
	"cmp"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/dao/sessiondao"
	"github.com/urfave/cli/v2"
)

// SessionTableCommand creates the DynamoDB table used by the dynamodb session backend.
func SessionTableCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "create-session-table",
		Usage: "Create the DynamoDB session table and enable TTL expiry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Aliases:  []string{"e"},
				Usage:    "Environment name (dev, staging, prod)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "table",
				Usage: "Table name (defaults to {env}-auth-broker-sessions)",
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region",
				Value:   "us-east-1",
				EnvVars: []string{"AWS_REGION"},
			},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context
			tableName := cmp.Or(c.String("table"), sessiondao.TableName(c.String("env")))

			cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(c.String("region")))
			if err != nil {
				return fmt.Errorf("failed to load AWS config: %w", err)
			}

			logger.Info().Msgf("Creating session table: %s", tableName)
			dao := sessiondao.New(dynamodb.NewFromConfig(cfg), tableName)
			if err := dao.CreateTable(ctx); err != nil {
				return err
			}

			logger.Info().Msgf("✓ Session table ready: %s", tableName)
			logger.Info().Msgf("  Set SESSION_BACKEND=dynamodb and SESSION_TABLE=%s", tableName)
			return nil
		},
	}
}
