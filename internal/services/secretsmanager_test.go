package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type secretVersion struct {
	id     string
	value  string
	stages []string
}

// fakeSecretsManager keeps versions of a single secret in memory.
type fakeSecretsManager struct {
	versions []*secretVersion
}

func (f *fakeSecretsManager) byStage(stage string) *secretVersion {
	for _, v := range f.versions {
		if hasStage(v, stage) {
			return v
		}
	}
	return nil
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	stage := aws.ToString(params.VersionStage)
	if stage == "" {
		stage = "AWSCURRENT"
	}
	v := f.byStage(stage)
	if id := aws.ToString(params.VersionId); id != "" {
		v = f.byID(id)
		if v != nil && !hasStage(v, stage) {
			v = nil
		}
	}
	if v == nil {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(v.value),
		VersionId:    aws.String(v.id),
	}, nil
}

func (f *fakeSecretsManager) byID(id string) *secretVersion {
	for _, v := range f.versions {
		if v.id == id {
			return v
		}
	}
	return nil
}

func hasStage(v *secretVersion, stage string) bool {
	for _, s := range v.stages {
		if s == stage {
			return true
		}
	}
	return false
}

func (f *fakeSecretsManager) PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	if v := f.byID(aws.ToString(params.ClientRequestToken)); v != nil {
		if v.value != aws.ToString(params.SecretString) {
			return nil, errors.New("ResourceExistsException")
		}
		return &secretsmanager.PutSecretValueOutput{}, nil
	}
	f.versions = append(f.versions, &secretVersion{
		id:     aws.ToString(params.ClientRequestToken),
		value:  aws.ToString(params.SecretString),
		stages: params.VersionStages,
	})
	return &secretsmanager.PutSecretValueOutput{}, nil
}

func (f *fakeSecretsManager) UpdateSecretVersionStage(ctx context.Context, params *secretsmanager.UpdateSecretVersionStageInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretVersionStageOutput, error) {
	stage := aws.ToString(params.VersionStage)
	for _, v := range f.versions {
		if v.id == aws.ToString(params.RemoveFromVersionId) {
			v.stages = remove(v.stages, stage)
		}
		if v.id == aws.ToString(params.MoveToVersionId) {
			v.stages = append(remove(v.stages, "AWSPENDING"), stage)
		}
	}
	return &secretsmanager.UpdateSecretVersionStageOutput{}, nil
}

func remove(stages []string, stage string) []string {
	var out []string
	for _, s := range stages {
		if s != stage {
			out = append(out, s)
		}
	}
	return out
}

func mustKey(t *testing.T) string {
	t.Helper()
	key, err := GenerateSessionKey()
	require.NoError(t, err)
	return key
}

func TestSecretsManagerService_GetClientSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("plain", func(t *testing.T) {
		client := &fakeSecretsManager{versions: []*secretVersion{{id: "v1", value: "s3cret", stages: []string{"AWSCURRENT"}}}}
		secret, err := NewSecretsManagerService(client).GetClientSecret(ctx, "auth-broker/client")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", secret)
	})

	t.Run("json", func(t *testing.T) {
		client := &fakeSecretsManager{versions: []*secretVersion{{id: "v1", value: `{"client_secret":"s3cret"}`, stages: []string{"AWSCURRENT"}}}}
		secret, err := NewSecretsManagerService(client).GetClientSecret(ctx, "auth-broker/client")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", secret)
	})

	t.Run("json without field", func(t *testing.T) {
		client := &fakeSecretsManager{versions: []*secretVersion{{id: "v1", value: `{"other":"x"}`, stages: []string{"AWSCURRENT"}}}}
		_, err := NewSecretsManagerService(client).GetClientSecret(ctx, "auth-broker/client")
		assert.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewSecretsManagerService(&fakeSecretsManager{}).GetClientSecret(ctx, "auth-broker/client")
		assert.Error(t, err)
	})
}

func TestSessionKeyService(t *testing.T) {
	ctx := context.Background()
	k1, k2 := mustKey(t), mustKey(t)

	versions := []SecretVersion{
		{Secret: k1, Timestamp: "2026-01-02T00:00:00Z"},
		{Secret: "not-base64!", Timestamp: "2026-01-01T00:00:00Z"},
		{Secret: base64.StdEncoding.EncodeToString([]byte("short")), Timestamp: "2025-12-31T00:00:00Z"},
		{Secret: k2, Timestamp: "2025-12-30T00:00:00Z"},
	}
	data, err := json.Marshal(versions)
	require.NoError(t, err)

	client := &fakeSecretsManager{versions: []*secretVersion{{id: "v1", value: string(data), stages: []string{"AWSCURRENT"}}}}
	service := NewSessionKeyService(client, "auth-broker/session-keys")

	keys, err := service.GetSessionKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	want1, _ := base64.StdEncoding.DecodeString(k1)
	want2, _ := base64.StdEncoding.DecodeString(k2)
	assert.Equal(t, want1, keys[0])
	assert.Equal(t, want2, keys[1])
}

func TestSessionKeyService_NoValidKeys(t *testing.T) {
	client := &fakeSecretsManager{versions: []*secretVersion{{id: "v1", value: `[]`, stages: []string{"AWSCURRENT"}}}}
	_, err := NewSessionKeyService(client, "auth-broker/session-keys").GetSessionKeys(context.Background())
	assert.Error(t, err)
}

func TestPrependSessionKey(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	var versions []SecretVersion
	for i := 0; i < 4; i++ {
		versions = PrependSessionKey(ctx, versions, mustKey(t), now.Add(time.Duration(i)*time.Hour))
	}

	assert.Len(t, versions, MaxSessionKeys)
	assert.Equal(t, "2026-10-19T15:00:00Z", versions[0].Timestamp)
	assert.Equal(t, "2026-10-19T13:00:00Z", versions[2].Timestamp)

	versions = PrependSessionKey(ctx, []SecretVersion{{Secret: "bad"}}, mustKey(t), now)
	assert.Len(t, versions, 1)
}

func TestSessionKeyRotator(t *testing.T) {
	ctx := context.Background()
	existing := mustKey(t)
	data, err := json.Marshal([]SecretVersion{{Secret: existing, Timestamp: "2026-01-01T00:00:00Z"}})
	require.NoError(t, err)

	client := &fakeSecretsManager{versions: []*secretVersion{{id: "v1", value: string(data), stages: []string{"AWSCURRENT"}}}}
	rotator := NewSessionKeyRotator(client)

	err = rotator.Rotate(ctx, "auth-broker/session-keys")
	require.NoError(t, err)

	current := client.byStage("AWSCURRENT")
	require.NotNil(t, current)
	assert.True(t, strings.HasPrefix(current.id, "manual-"))
	assert.Nil(t, client.byStage("AWSPENDING"))

	var versions []SecretVersion
	require.NoError(t, json.Unmarshal([]byte(current.value), &versions))
	require.Len(t, versions, 2)
	assert.NotEqual(t, existing, versions[0].Secret)
	assert.Equal(t, existing, versions[1].Secret)

	keys, err := NewSessionKeyService(client, "auth-broker/session-keys").GetSessionKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestSessionKeyRotator_FirstRotation(t *testing.T) {
	client := &fakeSecretsManager{}

	err := NewSessionKeyRotator(client).Rotate(context.Background(), "auth-broker/session-keys")
	require.NoError(t, err)

	current := client.byStage("AWSCURRENT")
	require.NotNil(t, current)

	var versions []SecretVersion
	require.NoError(t, json.Unmarshal([]byte(current.value), &versions))
	assert.Len(t, versions, 1)
}

func TestSessionKeyRotator_CreateSecretRetry(t *testing.T) {
	ctx := context.Background()
	client := &fakeSecretsManager{versions: []*secretVersion{{id: "v1", value: `[]`, stages: []string{"AWSCURRENT"}}}}
	rotator := NewSessionKeyRotator(client)

	event := RotationEvent{
		Step:               StepCreateSecret,
		SecretId:           "auth-broker/session-keys",
		ClientRequestToken: "token-1",
	}
	require.NoError(t, rotator.HandleRotation(ctx, event))
	pending := client.byStage("AWSPENDING")
	require.NotNil(t, pending)

	require.NoError(t, rotator.HandleRotation(ctx, event))
	assert.Len(t, client.versions, 2)
	assert.Equal(t, pending.value, client.byStage("AWSPENDING").value)

	event.Step = StepFinishSecret
	require.NoError(t, rotator.HandleRotation(ctx, event))
	assert.Equal(t, "token-1", client.byStage("AWSCURRENT").id)
}

func TestSessionKeyRotator_UnknownStep(t *testing.T) {
	err := NewSessionKeyRotator(&fakeSecretsManager{}).HandleRotation(context.Background(), RotationEvent{Step: "bogus"})
	assert.Error(t, err)
}

func TestSessionKeyRotator_CancelRotation(t *testing.T) {
	client := &fakeSecretsManager{versions: []*secretVersion{
		{id: "v1", value: `[]`, stages: []string{"AWSCURRENT"}},
		{id: "v2", value: `[]`, stages: []string{"AWSPENDING"}},
	}}

	err := NewSessionKeyRotator(client).CancelRotation(context.Background(), "auth-broker/session-keys", "v2")
	require.NoError(t, err)

	assert.Nil(t, client.byStage("AWSPENDING"))
	assert.Equal(t, "v1", client.byStage("AWSCURRENT").id)
}
