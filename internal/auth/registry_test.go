package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	registry := NewRegistry(ProviderConfig{
		ClientID:      testClientID,
		RedirectURI:   testRedirectURI,
		TenantID:      testTenantID,
		CognitoDomain: "my-pool",
	})

	entra, err := registry.Resolve(ProviderEntraID)
	require.NoError(t, err)
	assert.Equal(t, ProviderEntraID, entra.ID())
	assert.IsType(t, &EntraIDProvider{}, entra)

	cognito, err := registry.Resolve(ProviderCognito)
	require.NoError(t, err)
	assert.Equal(t, ProviderCognito, cognito.ID())
	assert.IsType(t, &CognitoProvider{}, cognito)

	for _, id := range []ProviderID{"", "okta", "ENTRAID"} {
		p, err := registry.Resolve(id)
		assert.ErrorIs(t, err, ErrUnknownProvider)
		assert.Nil(t, p)
	}
}

func TestRegistry_MissingConfig(t *testing.T) {
	registry := NewRegistry(ProviderConfig{ClientID: testClientID, RedirectURI: testRedirectURI})

	p, err := registry.Resolve(ProviderEntraID)
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.Nil(t, p)

	p, err = registry.Resolve(ProviderCognito)
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.Nil(t, p)
}
