package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
)

const (
	sessionKeyLength = 32

	// MaxSessionKeys is how many key versions a rotation keeps.
	MaxSessionKeys = 3
)

// SecretVersion represents a single rotated secret version
type SecretVersion struct {
	Secret    string `json:"secret"`
	Timestamp string `json:"timestamp"`
}

// SessionKeyService provides cookie signing keys from Secrets Manager
type SessionKeyService struct {
	client     SecretsManagerAPI
	secretName string
	onceFunc   func() ([][]byte, error)
}

// NewSessionKeyService creates a new session key service
func NewSessionKeyService(client SecretsManagerAPI, secretName string) *SessionKeyService {
	s := &SessionKeyService{
		client:     client,
		secretName: secretName,
	}

	// fetched once per process; Lambda restarts pick up rotated keys
	s.onceFunc = sync.OnceValues(func() ([][]byte, error) {
		return s.fetchSessionKeys(context.Background())
	})

	return s
}

// GetSessionKeys returns the current signing keys, newest first.
func (s *SessionKeyService) GetSessionKeys(ctx context.Context) ([][]byte, error) {
	return s.onceFunc()
}

func (s *SessionKeyService) fetchSessionKeys(ctx context.Context) ([][]byte, error) {
	logger := zerolog.Ctx(ctx)

	logger.Info().Str("secret_name", s.secretName).Msg("Fetching session keys from Secrets Manager")

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", s.secretName, err)
	}

	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", s.secretName)
	}

	var versions []SecretVersion
	if err := json.Unmarshal([]byte(*result.SecretString), &versions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret versions: %w", err)
	}

	keys := DecodeSessionKeys(ctx, versions)
	if len(keys) == 0 {
		return nil, fmt.Errorf("no valid session keys found in secret %s", s.secretName)
	}

	logger.Info().Int("key_count", len(keys)).Msg("Successfully loaded session keys")

	return keys, nil
}

// DecodeSessionKeys decodes versions in order, skipping any that are not
// base64 or not 32 bytes long.
func DecodeSessionKeys(ctx context.Context, versions []SecretVersion) [][]byte {
	logger := zerolog.Ctx(ctx)

	keys := make([][]byte, 0, len(versions))
	for i, version := range versions {
		decoded, err := base64.StdEncoding.DecodeString(version.Secret)
		if err != nil {
			logger.Warn().
				Int("index", i).
				Str("timestamp", version.Timestamp).
				Err(err).
				Msg("Failed to decode secret version, skipping")
			continue
		}

		if len(decoded) != sessionKeyLength {
			logger.Warn().
				Int("index", i).
				Int("length", len(decoded)).
				Str("timestamp", version.Timestamp).
				Msg("Secret version has invalid length, skipping")
			continue
		}

		keys = append(keys, decoded)
	}
	return keys
}

// GenerateSessionKey returns a new base64 encoded 256-bit key.
func GenerateSessionKey() (string, error) {
	b := make([]byte, sessionKeyLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// PrependSessionKey puts secret in front of the valid existing versions and
// keeps at most MaxSessionKeys.
func PrependSessionKey(ctx context.Context, versions []SecretVersion, secret string, now time.Time) []SecretVersion {
	valid := make([]SecretVersion, 0, len(versions)+1)
	valid = append(valid, SecretVersion{
		Secret:    secret,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
	for i, v := range versions {
		if len(DecodeSessionKeys(ctx, versions[i:i+1])) == 0 {
			continue
		}
		valid = append(valid, v)
	}

	if len(valid) > MaxSessionKeys {
		valid = valid[:MaxSessionKeys]
	}
	return valid
}
