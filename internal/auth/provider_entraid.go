package auth

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	defaultAuthorityURL = "https://login.microsoftonline.com"
	defaultGraphURL     = "https://graph.microsoft.com/v1.0"
)

// EntraIDProvider implements Provider for Microsoft Entra ID, reading the
// profile and group memberships from Microsoft Graph.
type EntraIDProvider struct {
	oauth2Config oauth2.Config
	logoutURL    string
	graphURL     string
	client       *http.Client
}

// NewEntraIDProvider builds the Entra ID endpoints for the configured tenant.
func NewEntraIDProvider(cfg ProviderConfig) (*EntraIDProvider, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: entraid requires TENANT_ID, CLIENT_ID and a redirect URI", ErrMissingConfig)
	}

	authority := strings.TrimSuffix(cmp.Or(cfg.AuthorityURL, defaultAuthorityURL), "/")
	base := authority + "/" + url.PathEscape(cfg.TenantID) + "/oauth2/v2.0"

	return &EntraIDProvider{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/authorize",
				TokenURL: base + "/token",
			},
			Scopes: []string{"openid", "profile", "email", "User.Read", "GroupMember.Read.All"},
		},
		logoutURL: base + "/logout",
		graphURL:  strings.TrimSuffix(cmp.Or(cfg.GraphURL, defaultGraphURL), "/"),
		client:    cfg.httpClient(),
	}, nil
}

// ID returns ProviderEntraID.
func (p *EntraIDProvider) ID() ProviderID {
	return ProviderEntraID
}

// AuthorizationURL returns the v2.0 authorize URL with response_mode=query.
func (p *EntraIDProvider) AuthorizationURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// ExchangeCode redeems the code at the tenant token endpoint.
func (p *EntraIDProvider) ExchangeCode(ctx context.Context, code string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", p.oauth2Config.ClientID)
	form.Set("client_secret", p.oauth2Config.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.oauth2Config.RedirectURL)

	return postForm(ctx, p.client, p.oauth2Config.Endpoint.TokenURL, form)
}

// FetchIdentity reads Graph /me. Entra ID profiles carry userPrincipalName.
func (p *EntraIDProvider) FetchIdentity(ctx context.Context, accessToken string) (IdentityRecord, error) {
	var record IdentityRecord
	if err := getJSON(ctx, p.client, p.graphURL+"/me", accessToken, &record); err != nil {
		return nil, fmt.Errorf("graph /me: %w", err)
	}
	return record, nil
}

// FetchGroups reads Graph /me/memberOf and returns the entries of its value array.
// Only the first page is read.
func (p *EntraIDProvider) FetchGroups(ctx context.Context, accessToken string) (GroupMembership, error) {
	var page struct {
		Value []map[string]any `json:"value"`
	}
	if err := getJSON(ctx, p.client, p.graphURL+"/me/memberOf", accessToken, &page); err != nil {
		return nil, fmt.Errorf("graph /me/memberOf: %w", err)
	}
	if page.Value == nil {
		return GroupMembership{}, nil
	}
	return GroupMembership(page.Value), nil
}

// LogoutURL returns the tenant logout endpoint with post_logout_redirect_uri.
func (p *EntraIDProvider) LogoutURL(postLogoutURI string) string {
	params := url.Values{}
	params.Set("post_logout_redirect_uri", postLogoutURI)
	return p.logoutURL + "?" + params.Encode()
}
