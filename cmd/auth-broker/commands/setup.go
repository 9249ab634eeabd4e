package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/auth"
	"github.com/savaki/auth-broker/internal/services"
	"github.com/urfave/cli/v2"
)

// parameter maps a CLI flag onto an SSM parameter suffix.
type parameter struct {
	flag   string
	suffix string
	secure bool
}

var setupParameters = []parameter{
	{flag: "auth-provider", suffix: "auth-provider"},
	{flag: "client-id", suffix: "client-id"},
	{flag: "client-secret", suffix: "client-secret", secure: true},
	{flag: "client-secret-name", suffix: "client-secret-name"},
	{flag: "tenant-id", suffix: "tenant-id"},
	{flag: "cognito-domain", suffix: "cognito-domain"},
	{flag: "cognito-region", suffix: "cognito-region"},
	{flag: "public-url", suffix: "public-url"},
	{flag: "session-backend", suffix: "session-backend"},
	{flag: "session-table", suffix: "session-table"},
	{flag: "session-key-secret-name", suffix: "session-key-secret-name"},
	{flag: "allowed-groups", suffix: "allowed-groups"},
	{flag: "allowed-email-domains", suffix: "allowed-email-domains"},
}

// SetupCommand writes provider configuration to SSM Parameter Store.
func SetupCommand(logger *zerolog.Logger) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "env",
			Aliases:  []string{"e"},
			Usage:    "Environment name (dev, staging, prod)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "AWS region",
			Value:   "us-east-1",
			EnvVars: []string{"AWS_REGION"},
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Show what would be configured without making changes",
		},
	}
	for _, p := range setupParameters {
		flags = append(flags, &cli.StringFlag{
			Name:  p.flag,
			Usage: fmt.Sprintf("Value for %s", services.SSMParameterName(p.suffix)),
		})
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Store auth-broker configuration in SSM Parameter Store",
		Description: `Writes configuration parameters under /{env}/auth-broker/.

Only flags that are given are written; existing parameters are overwritten.
client-secret is stored as a SecureString.

Examples:
  # Entra ID
  auth-broker setup --env dev --auth-provider entraid --tenant-id <tenant> \
    --client-id <id> --client-secret <secret> --public-url https://login.example.com

  # Cognito with sessions in DynamoDB
  auth-broker setup --env prod --auth-provider cognito --cognito-domain my-pool \
    --client-id <id> --client-secret-name auth-broker/client \
    --session-backend dynamodb --session-table prod-auth-broker-sessions`,
		Flags: flags,
		Action: func(c *cli.Context) error {
			return setupAction(c, logger)
		},
	}
}

// setupPutInputs builds the PutParameter requests for the flags that were set.
func setupPutInputs(env string, values map[string]string) ([]*ssm.PutParameterInput, error) {
	if v, ok := values["auth-provider"]; ok {
		if _, err := auth.ParseProviderID(v); err != nil {
			return nil, err
		}
	}

	var inputs []*ssm.PutParameterInput
	for _, p := range setupParameters {
		value, ok := values[p.flag]
		if !ok {
			continue
		}

		paramType := types.ParameterTypeString
		if p.secure {
			paramType = types.ParameterTypeSecureString
		}

		inputs = append(inputs, &ssm.PutParameterInput{
			Name:        aws.String(services.SSMParameterPath(env) + "/" + p.suffix),
			Value:       aws.String(value),
			Type:        paramType,
			Overwrite:   aws.Bool(true),
			Description: aws.String(fmt.Sprintf("auth-broker configuration for %s environment", env)),
		})
	}

	slices.SortFunc(inputs, func(a, b *ssm.PutParameterInput) int {
		return strings.Compare(*a.Name, *b.Name)
	})
	return inputs, nil
}

func setupAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context

	env := c.String("env")
	values := make(map[string]string)
	for _, p := range setupParameters {
		if c.IsSet(p.flag) {
			values[p.flag] = c.String(p.flag)
		}
	}

	inputs, err := setupPutInputs(env, values)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no parameters given; see --help")
	}

	display := func(input *ssm.PutParameterInput) string {
		if input.Type == types.ParameterTypeSecureString {
			return "********"
		}
		return *input.Value
	}

	if c.Bool("dry-run") {
		logger.Info().Msg("DRY RUN: Would configure the following SSM parameters:")
		for _, input := range inputs {
			logger.Info().Msgf("  %s = %s", *input.Name, display(input))
		}
		return nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(c.String("region")))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	ssmClient := ssm.NewFromConfig(cfg)

	logger.Info().Msg("Storing configuration in SSM Parameter Store...")
	for _, input := range inputs {
		logger.Info().Msgf("  Setting %s = %s", *input.Name, display(input))
		if _, err := ssmClient.PutParameter(ctx, input); err != nil {
			return fmt.Errorf("failed to store parameter %s: %w", *input.Name, err)
		}
	}

	logger.Info().Msgf("✓ Stored %d parameter(s) under %s", len(inputs), services.SSMParameterPath(env))
	return nil
}
