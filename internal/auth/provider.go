package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ProviderID identifies the identity provider a process federates to.
type ProviderID string

const (
	ProviderEntraID ProviderID = "entraid"
	ProviderCognito ProviderID = "cognito"
)

// ParseProviderID converts a configured provider name into a ProviderID.
// Unknown names fail with ErrUnknownProvider; there is no default.
func ParseProviderID(s string) (ProviderID, error) {
	switch id := ProviderID(strings.ToLower(strings.TrimSpace(s))); id {
	case ProviderEntraID, ProviderCognito:
		return id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}

func (id ProviderID) String() string {
	return string(id)
}

// DefaultHTTPTimeout bounds each call to the remote provider when the
// ProviderConfig does not carry its own client.
const DefaultHTTPTimeout = 10 * time.Second

// ProviderConfig holds the connection parameters for the configured provider.
// It is built once at startup and treated as read-only afterwards.
type ProviderConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string // must match the URI registered with the provider byte-for-byte
	PostLogoutURI string

	// Entra ID
	TenantID     string
	AuthorityURL string // defaults to https://login.microsoftonline.com
	GraphURL     string // defaults to https://graph.microsoft.com/v1.0

	// Cognito
	CognitoDomain string // full URL, host, or bare domain prefix
	CognitoRegion string

	HTTPClient *http.Client
}

func (c ProviderConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultHTTPTimeout}
}

// TokenResponse is the parsed body of a token endpoint response. It may hold
// an access token or the provider's error fields.
type TokenResponse map[string]any

// AccessToken returns the access_token field when present and non-empty.
func (t TokenResponse) AccessToken() (string, bool) {
	v, ok := t["access_token"].(string)
	return v, ok && v != ""
}

// Redacted returns a copy safe for logs and error pages: any field whose name
// mentions a token is masked.
func (t TokenResponse) Redacted() map[string]any {
	if t == nil {
		return nil
	}
	out := make(map[string]any, len(t))
	for k, v := range t {
		if strings.Contains(strings.ToLower(k), "token") {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}

// IdentityRecord is a user profile as returned by the provider. Claim names
// differ between providers; use DisplayName to pick a user identifier.
type IdentityRecord map[string]any

// GroupMembership lists the groups returned for a user. An empty list is valid.
type GroupMembership []map[string]any

// Provider is the capability set every identity provider variant implements.
// Variants share no implementation.
type Provider interface {
	// ID returns the provider identifier.
	ID() ProviderID

	// AuthorizationURL builds the authorization endpoint URL. It makes no
	// network calls. An empty state omits the state parameter.
	AuthorizationURL(state string) string

	// ExchangeCode posts the authorization code to the token endpoint and
	// returns the parsed response as-is. Network failures wrap ErrTransport.
	ExchangeCode(ctx context.Context, code string) (TokenResponse, error)

	// FetchIdentity reads the user profile with the access token.
	FetchIdentity(ctx context.Context, accessToken string) (IdentityRecord, error)

	// FetchGroups reads the user's group memberships with the access token.
	FetchGroups(ctx context.Context, accessToken string) (GroupMembership, error)

	// LogoutURL returns the provider logout URL that sends the browser back
	// to postLogoutURI.
	LogoutURL(postLogoutURI string) string
}
