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

// DefaultCognitoRegion is used to expand a bare Cognito domain prefix.
const DefaultCognitoRegion = "eu-south-1"

// CognitoProvider implements Provider for an AWS Cognito user pool hosted UI.
type CognitoProvider struct {
	oauth2Config oauth2.Config
	domain       string
	client       *http.Client
}

// CognitoDomainURL normalizes the configured Cognito domain into a base URL.
//
//	https://auth.example.com         -> unchanged
//	my-pool.auth.us-east-1.amazoncognito.com -> https:// prepended
//	my-pool                          -> https://my-pool.auth.{region}.amazoncognito.com
func CognitoDomainURL(domain, region string) string {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), "/")
	switch {
	case domain == "":
		return ""
	case strings.HasPrefix(domain, "https://"), strings.HasPrefix(domain, "http://"):
		return domain
	case !strings.Contains(domain, "."):
		return fmt.Sprintf("https://%s.auth.%s.amazoncognito.com", domain, cmp.Or(region, DefaultCognitoRegion))
	default:
		return "https://" + domain
	}
}

// NewCognitoProvider builds the hosted UI endpoints for the configured domain.
func NewCognitoProvider(cfg ProviderConfig) (*CognitoProvider, error) {
	domain := CognitoDomainURL(cfg.CognitoDomain, cfg.CognitoRegion)
	if domain == "" || cfg.ClientID == "" || cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: cognito requires COGNITO_DOMAIN, CLIENT_ID and a redirect URI", ErrMissingConfig)
	}

	return &CognitoProvider{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  domain + "/oauth2/authorize",
				TokenURL: domain + "/oauth2/token",
			},
			Scopes: []string{"openid", "profile", "email"},
		},
		domain: domain,
		client: cfg.httpClient(),
	}, nil
}

// ID returns ProviderCognito.
func (p *CognitoProvider) ID() ProviderID {
	return ProviderCognito
}

// AuthorizationURL returns the hosted UI authorize URL. Cognito has no
// response_mode parameter.
func (p *CognitoProvider) AuthorizationURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// ExchangeCode redeems the code at the user pool token endpoint.
func (p *CognitoProvider) ExchangeCode(ctx context.Context, code string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", p.oauth2Config.ClientID)
	form.Set("client_secret", p.oauth2Config.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.oauth2Config.RedirectURL)

	return postForm(ctx, p.client, p.oauth2Config.Endpoint.TokenURL, form)
}

// FetchIdentity reads /oauth2/userInfo. Cognito profiles carry email,
// username and, for federated users, preferred_username.
func (p *CognitoProvider) FetchIdentity(ctx context.Context, accessToken string) (IdentityRecord, error) {
	var record IdentityRecord
	if err := getJSON(ctx, p.client, p.domain+"/oauth2/userInfo", accessToken, &record); err != nil {
		return nil, fmt.Errorf("cognito userInfo: %w", err)
	}
	return record, nil
}

// FetchGroups always returns an empty list. Cognito exposes groups only as
// cognito:groups inside the ID token, which this service does not decode.
func (p *CognitoProvider) FetchGroups(ctx context.Context, accessToken string) (GroupMembership, error) {
	return GroupMembership{}, nil
}

// LogoutURL returns the hosted UI logout endpoint. logout_uri and
// redirect_uri both point at postLogoutURI.
func (p *CognitoProvider) LogoutURL(postLogoutURI string) string {
	params := url.Values{}
	params.Set("client_id", p.oauth2Config.ClientID)
	params.Set("logout_uri", postLogoutURI)
	params.Set("redirect_uri", postLogoutURI)
	return p.domain + "/logout?" + params.Encode()
}
