// Package session persists authenticated sessions server-side, keyed by an
// opaque id that the browser holds in a signed cookie.
package session

import (
	"context"
	"time"

	"github.com/savaki/auth-broker/internal/auth"
)

// DefaultTTL is how long a stored session lives when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// Store keeps one auth.Session per session id. Implementations must give
// read-your-own-write consistency per key.
type Store interface {
	// Put writes the whole session under key, replacing any previous value.
	Put(ctx context.Context, key string, s *auth.Session) error

	// Get returns the session for key, or nil when absent or expired.
	Get(ctx context.Context, key string) (*auth.Session, error)

	// Clear removes the session for key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error
}
