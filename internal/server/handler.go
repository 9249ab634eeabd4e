package server

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/savaki/auth-broker/internal/auth"
	"github.com/savaki/auth-broker/internal/authz"
	"github.com/savaki/auth-broker/internal/metrics"
	"github.com/savaki/auth-broker/internal/session"
)

//go:embed templates
var templates embed.FS

var homeTemplate = template.Must(template.ParseFS(templates, "templates/home.html"))

// Paths configures the routes the handler serves.
type Paths struct {
	Login         string // e.g. /login
	Callback      string // must match the path of the registered redirect URI
	PostLogoutURI string // absolute URL the provider returns to after logout
}

type Handler struct {
	broker     *auth.Broker
	store      session.Store
	cookies    *session.Cookies
	authorizer *authz.Authorizer // optional
	metrics    *metrics.Metrics  // optional
	paths      Paths
}

type HandlerInput struct {
	Broker     *auth.Broker
	Store      session.Store
	Cookies    *session.Cookies
	Authorizer *authz.Authorizer
	Metrics    *metrics.Metrics
	Paths      Paths
}

func NewHandler(input HandlerInput) *Handler {
	paths := input.Paths
	if paths.Login == "" {
		paths.Login = "/login"
	}
	if paths.Callback == "" {
		paths.Callback = "/login/callback"
	}

	return &Handler{
		broker:     input.Broker,
		store:      input.Store,
		cookies:    input.Cookies,
		authorizer: input.Authorizer,
		metrics:    input.Metrics,
		paths:      paths,
	}
}

type ErrorResponse struct {
	Error       string         `json:"error"`
	Description string         `json:"description,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	Details     map[string]any `json:"details,omitempty"` // redacted provider payload
}

// Routes configures all HTTP routes
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.HandleHome)
	mux.HandleFunc("GET "+h.paths.Login, h.HandleLogin)
	mux.HandleFunc("GET "+h.paths.Callback, h.HandleCallback)
	mux.HandleFunc("GET /logout", h.HandleLogout)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /me", h.RequireAuth(false)(http.HandlerFunc(h.HandleMe)))

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	return mux
}

// currentSession returns the stored session for the request's cookie, or nil.
func (h *Handler) currentSession(r *http.Request) (string, *auth.Session, error) {
	id := h.cookies.SessionID(r)
	if id == "" {
		return "", nil, nil
	}
	s, err := h.store.Get(r.Context(), id)
	return id, s, err
}

type homeData struct {
	LoginPath string
	Provider  string
	User      string
	Session   *auth.Session
}

// HandleHome shows the signed-in identity, or a login link.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	_, s, err := h.currentSession(r)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := homeData{
		LoginPath: h.paths.Login,
		Provider:  h.broker.Provider().String(),
		Session:   s,
	}
	if s != nil {
		data.User = s.DisplayName()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTemplate.Execute(w, data); err != nil {
		logger.Error().Err(err).Msg("Failed to render home page")
	}
}

// HandleLogin redirects to the identity provider for authentication
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	state, err := session.GenerateID()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate state")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.cookies.SetState(w, r, state); err != nil {
		logger.Error().Err(err).Msg("Failed to save login state")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logger.Info().
		Str("provider", h.broker.Provider().String()).
		Msg("Redirecting to identity provider for login")

	http.Redirect(w, r, h.broker.BuildLoginRedirect(state), http.StatusFound)
}

// HandleCallback completes the login started by HandleLogin
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var (
		ctx      = r.Context()
		logger   = zerolog.Ctx(ctx)
		query    = r.URL.Query()
		provider = h.broker.Provider().String()
	)

	if providerErr := query.Get("error"); providerErr != "" {
		logger.Warn().
			Str("provider", provider).
			Str("error", providerErr).
			Str("error_description", query.Get("error_description")).
			Msg("Identity provider returned an error")
		h.metrics.RecordLogin(provider, metrics.OutcomeProviderErr)
		h.errorResponse(w, http.StatusBadRequest, ErrorResponse{
			Error:       providerErr,
			Description: query.Get("error_description"),
			Provider:    provider,
		})
		return
	}

	expected := h.cookies.State(r)
	received := query.Get("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		logger.Warn().
			Bool("state_exists", expected != "").
			Msg("State mismatch")
		h.metrics.RecordLogin(provider, metrics.OutcomeStateInvalid)
		h.errorResponse(w, http.StatusBadRequest, ErrorResponse{Error: "invalid state"})
		return
	}

	s, err := h.broker.CompleteLogin(ctx, query.Get("code"))
	if err != nil {
		resp := ErrorResponse{Error: err.Error(), Provider: provider}
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			resp.Error = authErr.Kind.Error()
			resp.Details = authErr.Response
		}

		logger.Error().
			Err(err).
			Str("provider", provider).
			Interface("details", resp.Details).
			Msg("Login failed")
		h.metrics.RecordLogin(provider, metrics.OutcomeProviderErr)
		h.errorResponse(w, auth.StatusCode(err), resp)
		return
	}

	if err := h.authorizer.Authorize(profileOf(s)); err != nil {
		logger.Warn().
			Err(err).
			Str("user", s.DisplayName()).
			Msg("User authorization failed")
		h.metrics.RecordLogin(provider, metrics.OutcomeDenied)
		h.errorResponse(w, http.StatusForbidden, ErrorResponse{Error: "access denied", Provider: provider})
		return
	}

	id, err := session.GenerateID()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate session id")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	previous := h.cookies.SessionID(r)

	if err := h.store.Put(ctx, id, s); err != nil {
		logger.Error().Err(err).Msg("Failed to store session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.cookies.SetSessionID(w, r, id); err != nil {
		logger.Error().Err(err).Msg("Failed to save session cookie")
		_ = h.store.Clear(ctx, id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if previous != "" && previous != id {
		if err := h.store.Clear(ctx, previous); err != nil {
			logger.Warn().Err(err).Msg("Failed to clear previous session")
		}
	}

	logger.Info().
		Str("provider", provider).
		Str("user", s.DisplayName()).
		Msg("User authenticated successfully")
	h.metrics.RecordLogin(provider, metrics.OutcomeSuccess)

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout clears the stored session, expires the cookie and redirects to
// the provider logout endpoint.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var (
		ctx    = r.Context()
		logger = zerolog.Ctx(ctx)
	)

	id, snapshot, err := h.currentSession(r)
	if err != nil {
		// still log the browser out
		logger.Warn().Err(err).Msg("Failed to load session for logout")
	}

	if id != "" {
		if err := h.store.Clear(ctx, id); err != nil {
			logger.Error().Err(err).Msg("Failed to clear session")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	if err := h.cookies.Expire(w, r); err != nil {
		logger.Error().Err(err).Msg("Failed to expire session cookie")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logoutURL := h.broker.BuildLogoutRedirect(snapshot, h.paths.PostLogoutURI)

	user := auth.UnknownUser
	if snapshot != nil {
		user = snapshot.DisplayName()
	}
	logger.Info().
		Str("user", user).
		Str("logout_url", logoutURL).
		Msg("Logging out user")
	h.metrics.RecordLogin(h.broker.Provider().String(), metrics.OutcomeLogout)

	http.Redirect(w, r, logoutURL, http.StatusFound)
}

// HandleMe returns the current session as JSON.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	s := SessionFromContext(r.Context())

	h.jsonResponse(w, http.StatusOK, struct {
		User string `json:"user"`
		*auth.Session
	}{
		User:    s.DisplayName(),
		Session: s,
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (h *Handler) jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// errorResponse writes an error JSON response
func (h *Handler) errorResponse(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	h.jsonResponse(w, statusCode, resp)
}

// profileOf extracts what the authorization policies look at.
func profileOf(s *auth.Session) authz.Profile {
	profile := authz.Profile{User: s.DisplayName()}
	for _, group := range s.Groups {
		for _, key := range []string{"displayName", "id"} {
			if v, ok := group[key].(string); ok && v != "" {
				profile.Groups = append(profile.Groups, v)
			}
		}
	}
	return profile
}
