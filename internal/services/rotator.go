package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
)

// Secrets Manager rotation steps.
const (
	StepCreateSecret = "createSecret"
	StepSetSecret    = "setSecret"
	StepTestSecret   = "testSecret"
	StepFinishSecret = "finishSecret"
)

// RotationSteps lists the steps in the order Secrets Manager invokes them.
var RotationSteps = []string{StepCreateSecret, StepSetSecret, StepTestSecret, StepFinishSecret}

// RotationEvent is the payload Secrets Manager sends to a rotation function.
type RotationEvent struct {
	Step               string `json:"Step"`
	Token              string `json:"Token"`
	SecretId           string `json:"SecretId"`
	ClientRequestToken string `json:"ClientRequestToken"`
}

// SessionKeyRotator rotates the session key secret, prepending a new key and
// keeping the most recent MaxSessionKeys.
type SessionKeyRotator struct {
	client SecretsManagerAPI
	now    func() time.Time
}

func NewSessionKeyRotator(client SecretsManagerAPI) *SessionKeyRotator {
	return &SessionKeyRotator{
		client: client,
		now:    time.Now,
	}
}

// Rotate runs every rotation step with a manual request token.
func (r *SessionKeyRotator) Rotate(ctx context.Context, secretID string) error {
	token := fmt.Sprintf("manual-%d", r.now().Unix())
	for _, step := range RotationSteps {
		event := RotationEvent{
			Step:               step,
			SecretId:           secretID,
			ClientRequestToken: token,
		}
		if err := r.HandleRotation(ctx, event); err != nil {
			return fmt.Errorf("%s step failed: %w", step, err)
		}
	}
	return nil
}

func (r *SessionKeyRotator) HandleRotation(ctx context.Context, event RotationEvent) error {
	switch event.Step {
	case StepCreateSecret:
		return r.createSecret(ctx, event)
	case StepSetSecret:
		return nil
	case StepTestSecret:
		return r.testSecret(ctx, event)
	case StepFinishSecret:
		return r.finishSecret(ctx, event)
	default:
		return fmt.Errorf("unknown rotation step: %s", event.Step)
	}
}

func (r *SessionKeyRotator) createSecret(ctx context.Context, event RotationEvent) error {
	logger := zerolog.Ctx(ctx)

	_, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(event.SecretId),
		VersionId:    aws.String(event.ClientRequestToken),
		VersionStage: aws.String("AWSPENDING"),
	})
	if err == nil {
		logger.Info().Str("version_id", event.ClientRequestToken).Msg("Pending secret already exists")
		return nil
	}

	newSecret, err := GenerateSessionKey()
	if err != nil {
		return err
	}

	var versions []SecretVersion
	current, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(event.SecretId),
	})
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("Failed to get current secret - starting fresh")
	case current.SecretString == nil || *current.SecretString == "":
		logger.Warn().Msg("Secret is empty - starting fresh")
	default:
		if err := json.Unmarshal([]byte(*current.SecretString), &versions); err != nil {
			logger.Warn().Err(err).Msg("Current secret is corrupt (invalid JSON) - overwriting with fresh secret")
			versions = nil
		}
	}

	versions = PrependSessionKey(ctx, versions, newSecret, r.now())

	secretJSON, err := json.Marshal(versions)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}

	logger.Info().Int("version_count", len(versions)).Msg("Creating secret with valid versions")

	_, err = r.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:           aws.String(event.SecretId),
		SecretString:       aws.String(string(secretJSON)),
		ClientRequestToken: aws.String(event.ClientRequestToken),
		VersionStages:      []string{"AWSPENDING"},
	})
	if err != nil {
		return fmt.Errorf("failed to put secret value: %w", err)
	}

	return nil
}

func (r *SessionKeyRotator) testSecret(ctx context.Context, event RotationEvent) error {
	output, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(event.SecretId),
		VersionStage: aws.String("AWSPENDING"),
	})
	if err != nil {
		return fmt.Errorf("failed to get pending secret: %w", err)
	}
	if output.SecretString == nil {
		return fmt.Errorf("pending secret has no string value")
	}

	var versions []SecretVersion
	if err := json.Unmarshal([]byte(*output.SecretString), &versions); err != nil {
		return fmt.Errorf("pending secret is not valid JSON: %w", err)
	}

	if len(versions) == 0 {
		return fmt.Errorf("pending secret has no versions")
	}

	if _, err := base64.StdEncoding.DecodeString(versions[0].Secret); err != nil {
		return fmt.Errorf("pending secret is not valid base64: %w", err)
	}

	return nil
}

func (r *SessionKeyRotator) finishSecret(ctx context.Context, event RotationEvent) error {
	input := &secretsmanager.UpdateSecretVersionStageInput{
		SecretId:        aws.String(event.SecretId),
		VersionStage:    aws.String("AWSCURRENT"),
		MoveToVersionId: aws.String(event.ClientRequestToken),
	}

	// the first rotation of a new secret has no current version to demote
	current, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(event.SecretId),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err == nil && current.VersionId != nil {
		if *current.VersionId == event.ClientRequestToken {
			return nil
		}
		input.RemoveFromVersionId = current.VersionId
	}

	if _, err := r.client.UpdateSecretVersionStage(ctx, input); err != nil {
		return fmt.Errorf("failed to update version stage: %w", err)
	}

	return nil
}

// CancelRotation removes the AWSPENDING label from versionID so a stuck
// rotation can be restarted.
func (r *SessionKeyRotator) CancelRotation(ctx context.Context, secretID, versionID string) error {
	_, err := r.client.UpdateSecretVersionStage(ctx, &secretsmanager.UpdateSecretVersionStageInput{
		SecretId:            aws.String(secretID),
		VersionStage:        aws.String("AWSPENDING"),
		RemoveFromVersionId: aws.String(versionID),
	})
	if err != nil {
		return fmt.Errorf("failed to remove AWSPENDING stage: %w", err)
	}
	return nil
}
