package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	// CookieName is the name of the browser cookie holding the session id.
	CookieName = "auth-session"

	sessionIDKey = "sid"
	stateKey     = "state"
)

// Cookies reads and writes the signed browser cookie. The cookie carries only
// the opaque session id and the pending login state, never identity data or
// tokens.
type Cookies struct {
	store *sessions.CookieStore
}

// NewCookies creates a cookie codec signed with keys, newest first. Older keys
// still verify cookies issued before a rotation.
func NewCookies(keys [][]byte, secure bool, maxAge int) *Cookies {
	var keyPairs [][]byte
	for _, key := range keys {
		keyPairs = append(keyPairs, key, nil) // sign only
	}

	store := sessions.NewCookieStore(keyPairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(maxAge)

	return &Cookies{store: store}
}

func (c *Cookies) get(r *http.Request) *sessions.Session {
	// a cookie signed with a retired key decodes to a fresh session
	s, _ := c.store.Get(r, CookieName)
	return s
}

// SetState records the login state to be checked on callback.
func (c *Cookies) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	s := c.get(r)
	s.Values[stateKey] = state
	return s.Save(r, w)
}

// State returns the pending login state, or "" when none is recorded.
func (c *Cookies) State(r *http.Request) string {
	v, _ := c.get(r).Values[stateKey].(string)
	return v
}

// SetSessionID stores id in the cookie and drops the pending login state.
func (c *Cookies) SetSessionID(w http.ResponseWriter, r *http.Request, id string) error {
	s := c.get(r)
	delete(s.Values, stateKey)
	s.Values[sessionIDKey] = id
	return s.Save(r, w)
}

// SessionID returns the session id from the cookie, or "".
func (c *Cookies) SessionID(r *http.Request) string {
	v, _ := c.get(r).Values[sessionIDKey].(string)
	return v
}

// Expire removes all values and tells the browser to drop the cookie.
func (c *Cookies) Expire(w http.ResponseWriter, r *http.Request) error {
	s := c.get(r)
	s.Values = make(map[any]any)
	s.Options.MaxAge = -1
	return s.Save(r, w)
}
