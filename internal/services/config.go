package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/savaki/auth-broker/internal/auth"
)

// Session backends.
const (
	SessionBackendMemory   = "memory"
	SessionBackendRedis    = "redis"
	SessionBackendDynamoDB = "dynamodb"
)

// Config holds all application configuration values
type Config struct {
	AuthProvider     string `env:"AUTH_PROVIDER" envDefault:"entraid" yaml:"auth_provider"`
	ClientID         string `env:"CLIENT_ID" yaml:"client_id"`
	ClientSecret     string `env:"CLIENT_SECRET" yaml:"client_secret"`
	ClientSecretName string `env:"CLIENT_SECRET_NAME" yaml:"client_secret_name"` // Secrets Manager fallback for ClientSecret

	// Entra ID
	TenantID string `env:"TENANT_ID" yaml:"tenant_id"`

	// Cognito
	CognitoDomain string `env:"COGNITO_DOMAIN" yaml:"cognito_domain"`
	CognitoRegion string `env:"COGNITO_REGION" envDefault:"eu-south-1" yaml:"cognito_region"`

	Host         string `env:"HOST" envDefault:"http://localhost" yaml:"host"`
	Port         int    `env:"PORT" envDefault:"8080" yaml:"port"`
	PublicURL    string `env:"PUBLIC_URL" yaml:"public_url"` // replaces HOST:PORT when set, e.g. behind API Gateway
	CallbackPath string `env:"CALLBACK_PATH" envDefault:"/login/callback" yaml:"callback_path"`
	LoginPath    string `env:"LOGIN_PATH" envDefault:"/login" yaml:"login_path"`

	SecretKey            string        `env:"SECRET_KEY" yaml:"secret_key"`
	SessionKeySecretName string        `env:"SESSION_KEY_SECRET_NAME" yaml:"session_key_secret_name"`
	SessionBackend       string        `env:"SESSION_BACKEND" envDefault:"memory" yaml:"session_backend"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"24h" yaml:"session_ttl"`
	SessionTable         string        `env:"SESSION_TABLE" yaml:"session_table"`
	RedisAddr            string        `env:"REDIS_ADDR" envDefault:"localhost:6379" yaml:"redis_addr"`
	RedisPassword        string        `env:"REDIS_PASSWORD" yaml:"redis_password"`

	AllowedGroups       []string `env:"ALLOWED_GROUPS" envSeparator:"," yaml:"allowed_groups"`
	AllowedEmailDomains []string `env:"ALLOWED_EMAIL_DOMAINS" envSeparator:"," yaml:"allowed_email_domains"`
}

// BaseURL returns the externally visible origin of the service.
func (c *Config) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimSuffix(c.PublicURL, "/")
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedirectURI is the callback URL registered with the identity provider.
func (c *Config) RedirectURI() string {
	return c.BaseURL() + c.CallbackPath
}

// LogoutURI is where the provider sends the browser after logout.
func (c *Config) LogoutURI() string {
	return c.BaseURL() + "/"
}

// IsLocal reports whether the service is served over plain http.
func (c *Config) IsLocal() bool {
	return strings.HasPrefix(c.BaseURL(), "http://")
}

// ProviderID parses AuthProvider.
func (c *Config) ProviderID() (auth.ProviderID, error) {
	return auth.ParseProviderID(c.AuthProvider)
}

// ProviderConfig builds the provider connection parameters.
func (c *Config) ProviderConfig() auth.ProviderConfig {
	return auth.ProviderConfig{
		ClientID:      c.ClientID,
		ClientSecret:  c.ClientSecret,
		RedirectURI:   c.RedirectURI(),
		PostLogoutURI: c.LogoutURI(),
		TenantID:      c.TenantID,
		CognitoDomain: c.CognitoDomain,
		CognitoRegion: c.CognitoRegion,
	}
}

// Validate checks the values needed before the service can start.
func (c *Config) Validate() error {
	if _, err := c.ProviderID(); err != nil {
		return err
	}
	if !strings.HasPrefix(c.CallbackPath, "/") || !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("CALLBACK_PATH and LOGIN_PATH must start with /")
	}
	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	case SessionBackendDynamoDB:
		if c.SessionTable == "" {
			return fmt.Errorf("SESSION_TABLE is required for the dynamodb session backend")
		}
	default:
		return fmt.Errorf("unknown session backend: %s", c.SessionBackend)
	}
	return nil
}
