package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/services"
)

// ProvideSSMClient provides an SSM client for Parameter Store access
// Returns nil if SSM is disabled (for local development)
func ProvideSSMClient(awsConfig aws.Config, disableSSM DisableSSM) *ssm.Client {
	if disableSSM {
		return nil
	}

	return ssm.NewFromConfig(awsConfig)
}

// ProvideParameterStore provides a ParameterStore implementation.
// A config file wins; otherwise SSM Parameter Store in AWS, falling back to
// environment variables when SSM is disabled.
func ProvideParameterStore(ctx context.Context, ssmClient *ssm.Client, env string, configFile ConfigFile) services.ParameterStore {
	logger := zerolog.Ctx(ctx)

	if configFile != "" {
		logger.Info().Str("file", string(configFile)).Msg("Using config file for configuration")
		return services.NewFileParameterStore(string(configFile))
	}

	if ssmClient == nil {
		logger.Info().Msg("Using environment variables for configuration (SSM disabled)")
		return services.NewEnvParameterStore(env)
	}

	logger.Info().Msg("Using AWS Systems Manager Parameter Store for configuration")
	return services.NewSSMParameterStore(ssmClient, env)
}

// ProvideAppConfig loads application configuration and resolves the client
// secret from Secrets Manager when only CLIENT_SECRET_NAME is configured.
func ProvideAppConfig(ctx context.Context, store services.ParameterStore, secrets *services.SecretsManagerService) (*services.Config, error) {
	logger := zerolog.Ctx(ctx)

	config, err := store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.ClientSecret == "" && config.ClientSecretName != "" {
		secret, err := secrets.GetClientSecret(ctx, config.ClientSecretName)
		if err != nil {
			return nil, fmt.Errorf("failed to load client secret: %w", err)
		}
		config.ClientSecret = secret
	}

	logger.Info().
		Str("auth_provider", config.AuthProvider).
		Str("redirect_uri", config.RedirectURI()).
		Str("session_backend", config.SessionBackend).
		Bool("has_client_secret", config.ClientSecret != "").
		Bool("has_allow_list", len(config.AllowedGroups) > 0 || len(config.AllowedEmailDomains) > 0).
		Msg("Configuration loaded successfully")

	return config, nil
}
