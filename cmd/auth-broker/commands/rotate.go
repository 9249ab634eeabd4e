package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/services"
	"github.com/urfave/cli/v2"
)

// RotateSessionKeysCommand prepends a new cookie signing key to the session
// key secret. Cookies signed with the previous keys stay valid.
func RotateSessionKeysCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "rotate-session-keys",
		Usage: "Rotate the session cookie signing keys",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "secret-name",
				Usage:    "Secrets Manager secret holding the session keys",
				Required: true,
				EnvVars:  []string{"SESSION_KEY_SECRET_NAME"},
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
			secretName := c.String("secret-name")

			cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(c.String("region")))
			if err != nil {
				return fmt.Errorf("failed to load AWS config: %w", err)
			}

			rotator := services.NewSessionKeyRotator(secretsmanager.NewFromConfig(cfg))
			if err := rotator.Rotate(ctx, secretName); err != nil {
				return err
			}

			logger.Info().Msgf("✓ Rotated session keys in %s (keeping %d)", secretName, services.MaxSessionKeys)
			return nil
		},
	}
}
