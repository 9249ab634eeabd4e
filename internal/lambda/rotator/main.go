package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/di"
	"github.com/savaki/auth-broker/internal/services"
	"github.com/urfave/cli/v2"
)

func newRotator(ctx context.Context) (*services.SessionKeyRotator, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return services.NewSessionKeyRotator(secretsmanager.NewFromConfig(cfg)), nil
}

// newLambdaHandler injects logger into the context of every rotation event.
func newLambdaHandler(logger zerolog.Logger, rotator *services.SessionKeyRotator) func(context.Context, services.RotationEvent) error {
	return func(ctx context.Context, event services.RotationEvent) error {
		ctx = logger.With().
			Str("step", event.Step).
			Str("secret_id", event.SecretId).
			Logger().
			WithContext(ctx)
		return rotator.HandleRotation(ctx, event)
	}
}

func handleRotateCommand(c *cli.Context) error {
	logger := di.ProvideLogger().With().Str("lambda", "rotator").Logger()
	ctx := logger.WithContext(c.Context)

	rotator, err := newRotator(ctx)
	if err != nil {
		return err
	}

	// Check if running in Lambda environment
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(newLambdaHandler(logger, rotator))
		return nil
	}

	// CLI mode for local testing
	secretID := c.String("secret-id")
	if secretID == "" {
		return fmt.Errorf("--secret-id is required outside Lambda")
	}
	if err := rotator.Rotate(ctx, secretID); err != nil {
		return err
	}

	fmt.Println("Rotation completed successfully")
	return nil
}

func handleCancelRotationCommand(c *cli.Context) error {
	logger := di.ProvideLogger().With().Str("lambda", "rotator").Logger()
	ctx := logger.WithContext(c.Context)

	rotator, err := newRotator(ctx)
	if err != nil {
		return err
	}

	secretID := c.String("secret-id")
	fmt.Printf("Cancelling pending rotation for secret: %s\n", secretID)

	if err := rotator.CancelRotation(ctx, secretID, c.String("version-id")); err != nil {
		return err
	}

	fmt.Println("Successfully cancelled pending rotation")
	return nil
}

func main() {
	app := &cli.App{
		Name:           "rotator",
		Usage:          "Secrets Manager rotation function for session cookie signing keys",
		DefaultCommand: "rotate",
		Commands: []*cli.Command{
			{
				Name:  "rotate",
				Usage: "Manually trigger a rotation",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "secret-id",
						Usage:   "Secret ID to rotate",
						EnvVars: []string{"SECRET_ID", "SESSION_KEY_SECRET_NAME"},
					},
				},
				Action: handleRotateCommand,
			},
			{
				Name:  "cancel-rotation",
				Usage: "Cancel a pending rotation",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "secret-id",
						Usage:    "Secret ID with pending rotation",
						Required: true,
						EnvVars:  []string{"SECRET_ID", "SESSION_KEY_SECRET_NAME"},
					},
					&cli.StringFlag{
						Name:     "version-id",
						Usage:    "Version ID of the pending rotation to cancel",
						Required: true,
					},
				},
				Action: handleCancelRotationCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
