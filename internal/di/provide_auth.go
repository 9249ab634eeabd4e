package di

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/securecookie"
	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/auth"
	"github.com/savaki/auth-broker/internal/authz"
	"github.com/savaki/auth-broker/internal/metrics"
	"github.com/savaki/auth-broker/internal/services"
	"github.com/savaki/auth-broker/internal/session"
)

// ProvideSessionKeyService returns nil when no SESSION_KEY_SECRET_NAME is configured.
func ProvideSessionKeyService(client services.SecretsManagerAPI, config *services.Config) *services.SessionKeyService {
	if config.SessionKeySecretName == "" {
		return nil
	}
	return services.NewSessionKeyService(client, config.SessionKeySecretName)
}

// ProvideSessionKeys returns the cookie signing keys, newest first. Keys come
// from Secrets Manager, then SECRET_KEY, then, outside Lambda only, a random
// key that lives as long as the process.
func ProvideSessionKeys(ctx context.Context, config *services.Config, keyService *services.SessionKeyService) ([][]byte, error) {
	logger := zerolog.Ctx(ctx)
	inLambda := os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""

	if keyService != nil {
		keys, err := keyService.GetSessionKeys(ctx)
		if err == nil {
			return keys, nil
		}

		logger.Error().Err(err).Msg("Failed to fetch session keys from Secrets Manager")

		// In production (Lambda), we must fail fast rather than using ephemeral keys
		// Ephemeral keys break sessions across Lambda containers causing auth loops
		if inLambda {
			return nil, fmt.Errorf("session keys required in Lambda environment: %w", err)
		}
	}

	if config.SecretKey != "" {
		key := sha256.Sum256([]byte(config.SecretKey))
		return [][]byte{key[:]}, nil
	}

	if inLambda {
		return nil, errors.New("SESSION_KEY_SECRET_NAME or SECRET_KEY required in Lambda environment")
	}

	logger.Warn().Msg("Using ephemeral session key for local development only")
	return [][]byte{securecookie.GenerateRandomKey(32)}, nil
}

// ProvideCookies marks cookies Secure unless the service is served over http.
func ProvideCookies(config *services.Config, keys [][]byte) *session.Cookies {
	return session.NewCookies(keys, !config.IsLocal(), int(config.SessionTTL.Seconds()))
}

// ProvideRegistry builds the provider registry. Calls to the identity
// provider go through an instrumented client.
func ProvideRegistry(config *services.Config, m *metrics.Metrics) *auth.Registry {
	providerConfig := config.ProviderConfig()
	providerConfig.HTTPClient = m.InstrumentClient(&http.Client{Timeout: auth.DefaultHTTPTimeout})
	return auth.NewRegistry(providerConfig)
}

func ProvideBroker(ctx context.Context, registry *auth.Registry, config *services.Config) (*auth.Broker, error) {
	logger := zerolog.Ctx(ctx)

	id, err := config.ProviderID()
	if err != nil {
		return nil, err
	}

	broker, err := auth.NewBroker(registry, id)
	if err != nil {
		return nil, fmt.Errorf("failed to configure auth provider %s: %w", id, err)
	}

	logger.Info().
		Str("provider", id.String()).
		Str("redirect_uri", config.RedirectURI()).
		Msg("Identity provider configured")

	return broker, nil
}

func ProvideAuthorizer(ctx context.Context, config *services.Config) *authz.Authorizer {
	logger := zerolog.Ctx(ctx)

	authorizer := authz.NewAllowListAuthorizer(config.AllowedEmailDomains, config.AllowedGroups)
	if !authorizer.Enabled() {
		logger.Info().Msg("Authorization disabled - all authenticated users allowed")
		return authorizer
	}

	logger.Info().
		Strs("allowed_email_domains", config.AllowedEmailDomains).
		Strs("allowed_groups", config.AllowedGroups).
		Msg("Authorization enabled")

	return authorizer
}
