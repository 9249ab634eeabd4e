package auth

import "fmt"

// Registry constructs the Provider for a ProviderID from a single
// ProviderConfig. It performs no network calls.
type Registry struct {
	config ProviderConfig
}

// NewRegistry returns a Registry over the given provider configuration.
func NewRegistry(config ProviderConfig) *Registry {
	return &Registry{config: config}
}

// Resolve returns the Provider for id. Identifiers outside the supported set
// fail with ErrUnknownProvider rather than falling back to a default.
func (r *Registry) Resolve(id ProviderID) (Provider, error) {
	var (
		provider Provider
		err      error
	)
	switch id {
	case ProviderEntraID:
		provider, err = NewEntraIDProvider(r.config)
	case ProviderCognito:
		provider, err = NewCognitoProvider(r.config)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}
