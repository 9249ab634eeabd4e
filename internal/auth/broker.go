package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Broker turns an authorization code into a Session using the configured
// Provider. It holds no mutable state and is safe for concurrent use.
type Broker struct {
	registry *Registry
	provider Provider
}

// NewBroker resolves the active provider. An unknown or misconfigured
// provider is returned as an error; callers must not start without a Broker.
func NewBroker(registry *Registry, id ProviderID) (*Broker, error) {
	provider, err := registry.Resolve(id)
	if err != nil {
		return nil, err
	}
	return &Broker{
		registry: registry,
		provider: provider,
	}, nil
}

// Provider returns the active provider identifier.
func (b *Broker) Provider() ProviderID {
	return b.provider.ID()
}

// BuildLoginRedirect returns the provider authorization URL.
func (b *Broker) BuildLoginRedirect(state string) string {
	return b.provider.AuthorizationURL(state)
}

// CompleteLogin exchanges code for an access token, resolves the identity and
// groups, and returns the Session to persist. An empty code is treated as
// absent and fails before any network call. Nothing is retried; codes are
// single-use.
func (b *Broker) CompleteLogin(ctx context.Context, code string) (*Session, error) {
	logger := zerolog.Ctx(ctx)
	id := b.provider.ID()

	if code == "" {
		return nil, newError(ErrMissingCode, id, nil)
	}

	tokens, err := b.provider.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrTransport) {
			return nil, newError(ErrProviderUnreachable, id, err)
		}
		return nil, newError(ErrTokenExchangeRejected, id, err)
	}

	accessToken, ok := tokens.AccessToken()
	if !ok {
		rejected := newError(ErrTokenExchangeRejected, id, nil)
		rejected.Response = tokens.Redacted()
		return nil, rejected
	}

	identity, err := b.provider.FetchIdentity(ctx, accessToken)
	if err != nil {
		return nil, newError(ErrIdentityFetchFailed, id, err)
	}
	if identity == nil {
		identity = IdentityRecord{}
	}

	groups, err := b.provider.FetchGroups(ctx, accessToken)
	if err != nil {
		logger.Warn().
			Err(newError(ErrGroupFetchFailed, id, err)).
			Str("provider", id.String()).
			Str("user", DisplayName(identity)).
			Msg("Group fetch failed, continuing without groups")
		groups = nil
	}
	if groups == nil {
		groups = GroupMembership{}
	}

	session := &Session{
		Identity: identity,
		Groups:   groups,
		Provider: id,
	}

	logger.Info().
		Str("provider", id.String()).
		Str("user", session.DisplayName()).
		Int("group_count", len(groups)).
		Msg("Identity resolved")

	return session, nil
}

// BuildLogoutRedirect returns the provider logout URL. The provider recorded
// in snapshot is used when it can be resolved, otherwise the active one.
func (b *Broker) BuildLogoutRedirect(snapshot *Session, postLogoutURI string) string {
	provider := b.provider
	if snapshot != nil && snapshot.Provider != "" && snapshot.Provider != provider.ID() {
		if p, err := b.registry.Resolve(snapshot.Provider); err == nil {
			provider = p
		}
	}
	return provider.LogoutURL(postLogoutURI)
}
