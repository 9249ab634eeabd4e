package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

const (
	testClientID     = "client-1"
	testClientSecret = "secret-1"
	testTenantID     = "tenant-1"
	testRedirectURI  = "http://localhost:8080/login/callback"
	testLogoutURI    = "http://localhost:8080/"
)

// mockIdP serves the Entra ID token and Graph endpoints and the Cognito
// hosted UI endpoints from one httptest server.
type mockIdP struct {
	server *httptest.Server

	mu             sync.Mutex
	tokenStatus    int
	tokenBody      map[string]any
	identityStatus int
	identity       map[string]any
	groupsStatus   int
	groups         map[string]any

	requests  []string
	tokenForm url.Values
	bearer    string
}

func newMockIdP(t *testing.T) *mockIdP {
	t.Helper()

	m := &mockIdP{
		tokenStatus:    http.StatusOK,
		tokenBody:      map[string]any{"access_token": "t1", "token_type": "Bearer", "id_token": "id1"},
		identityStatus: http.StatusOK,
		identity:       map[string]any{"userPrincipalName": "alice@example.com"},
		groupsStatus:   http.StatusOK,
		groups: map[string]any{"value": []any{
			map[string]any{"id": "g1", "displayName": "Engineering"},
		}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+testTenantID+"/oauth2/v2.0/token", m.handleToken)
	mux.HandleFunc("POST /oauth2/token", m.handleToken)
	mux.HandleFunc("GET /v1.0/me", m.handleIdentity)
	mux.HandleFunc("GET /oauth2/userInfo", m.handleIdentity)
	mux.HandleFunc("GET /v1.0/me/memberOf", m.handleGroups)

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Method+" "+r.URL.Path)
		m.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.server.Close)

	return m
}

func (m *mockIdP) handleToken(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	m.mu.Lock()
	m.tokenForm = r.PostForm
	status, body := m.tokenStatus, m.tokenBody
	m.mu.Unlock()

	writeJSON(w, status, body)
}

func (m *mockIdP) handleIdentity(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.bearer = r.Header.Get("Authorization")
	status, body := m.identityStatus, m.identity
	m.mu.Unlock()

	writeJSON(w, status, body)
}

func (m *mockIdP) handleGroups(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	status, body := m.groupsStatus, m.groups
	m.mu.Unlock()

	writeJSON(w, status, body)
}

func (m *mockIdP) set(fn func(m *mockIdP)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

func (m *mockIdP) form() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenForm
}

func (m *mockIdP) authorization() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bearer
}

func (m *mockIdP) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (m *mockIdP) entraConfig() ProviderConfig {
	return ProviderConfig{
		ClientID:      testClientID,
		ClientSecret:  testClientSecret,
		RedirectURI:   testRedirectURI,
		PostLogoutURI: testLogoutURI,
		TenantID:      testTenantID,
		AuthorityURL:  m.server.URL,
		GraphURL:      m.server.URL + "/v1.0",
		HTTPClient:    m.server.Client(),
	}
}

func (m *mockIdP) cognitoConfig() ProviderConfig {
	return ProviderConfig{
		ClientID:      testClientID,
		ClientSecret:  testClientSecret,
		RedirectURI:   testRedirectURI,
		PostLogoutURI: testLogoutURI,
		CognitoDomain: m.server.URL,
		HTTPClient:    m.server.Client(),
	}
}
