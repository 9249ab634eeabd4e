package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvParameterStore(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("CLIENT_ID=from-file\nTENANT_ID=tenant-file\n"), 0o600))

	t.Setenv("AUTH_PROVIDER", "entraid")
	t.Setenv("TENANT_ID", "tenant-env")
	t.Setenv("HOST", "http://localhost")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_GROUPS", "Engineering,Ops")
	t.Setenv("SESSION_TTL", "2h")

	store := NewEnvParameterStore("test", dotenv)
	config, err := store.GetConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "from-file", config.ClientID)
	assert.Equal(t, "tenant-env", config.TenantID) // process environment wins
	assert.Equal(t, 9000, config.Port)
	assert.Equal(t, []string{"Engineering", "Ops"}, config.AllowedGroups)
	assert.Equal(t, 2*time.Hour, config.SessionTTL)
	assert.Equal(t, "http://localhost:9000/login/callback", config.RedirectURI())

	value, err := store.GetParameter(context.Background(), "CLIENT_ID")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestEnvParameterStore_MissingFile(t *testing.T) {
	t.Setenv("CLIENT_ID", "abc")

	store := NewEnvParameterStore("test", filepath.Join(t.TempDir(), "missing.env"))
	config, err := store.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", config.ClientID)
}

func TestFileParameterStore(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	content := `
auth_provider: cognito
client_id: client-1
cognito_domain: my-pool.auth.us-east-1.amazoncognito.com
port: 3000
session_ttl: 30m
allowed_email_domains:
  - example.com
`
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o600))

	store := NewFileParameterStore(filename)
	config, err := store.GetConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cognito", config.AuthProvider)
	assert.Equal(t, "client-1", config.ClientID)
	assert.Equal(t, 3000, config.Port)
	assert.Equal(t, 30*time.Minute, config.SessionTTL)
	assert.Equal(t, []string{"example.com"}, config.AllowedEmailDomains)
	assert.Equal(t, "/login/callback", config.CallbackPath) // default kept
	assert.Equal(t, "eu-south-1", config.CognitoRegion)

	value, err := store.GetParameter(context.Background(), "port")
	require.NoError(t, err)
	assert.Equal(t, "3000", value)
}

type fakeSSM struct {
	params []types.Parameter
	gets   int
}

func (f *fakeSSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.gets++
	for _, p := range f.params {
		if aws.ToString(p.Name) == aws.ToString(params.Name) {
			return &ssm.GetParameterOutput{Parameter: &p}, nil
		}
	}
	return &ssm.GetParameterOutput{}, nil
}

func (f *fakeSSM) GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	// one parameter per page to exercise pagination
	start := 0
	if params.NextToken != nil {
		for i, p := range f.params {
			if aws.ToString(p.Name) == *params.NextToken {
				start = i
			}
		}
	}

	out := &ssm.GetParametersByPathOutput{Parameters: f.params[start : start+1]}
	if start+1 < len(f.params) {
		out.NextToken = f.params[start+1].Name
	}
	return out, nil
}

func TestSSMParameterStore(t *testing.T) {
	client := &fakeSSM{
		params: []types.Parameter{
			{Name: aws.String("/prod/auth-broker/auth-provider"), Value: aws.String("entraid")},
			{Name: aws.String("/prod/auth-broker/client-id"), Value: aws.String("client-1")},
			{Name: aws.String("/prod/auth-broker/tenant-id"), Value: aws.String("tenant-1")},
			{Name: aws.String("/prod/auth-broker/public-url"), Value: aws.String("https://auth.example.com")},
			{Name: aws.String("/prod/auth-broker/session-backend"), Value: aws.String("dynamodb")},
			{Name: aws.String("/prod/auth-broker/session-table"), Value: aws.String("prod-auth-broker-sessions")},
		},
	}

	store := NewSSMParameterStore(client, "prod")
	config, err := store.GetConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "client-1", config.ClientID)
	assert.Equal(t, "tenant-1", config.TenantID)
	assert.Equal(t, SessionBackendDynamoDB, config.SessionBackend)
	assert.Equal(t, "prod-auth-broker-sessions", config.SessionTable)
	assert.Equal(t, "https://auth.example.com/login/callback", config.RedirectURI())
	assert.NoError(t, config.Validate())

	// served from cache
	value, err := store.GetParameter(context.Background(), "/prod/auth-broker/client-id")
	require.NoError(t, err)
	assert.Equal(t, "client-1", value)
	assert.Equal(t, 0, client.gets)
}

func TestSSMParameterName(t *testing.T) {
	assert.Equal(t, "CLIENT_ID", SSMParameterName("client-id"))
	assert.Equal(t, "SESSION_KEY_SECRET_NAME", SSMParameterName("session-key-secret-name"))
}
