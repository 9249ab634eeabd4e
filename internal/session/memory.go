package session

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/savaki/auth-broker/internal/auth"
)

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart and are not shared between instances.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore returns an empty MemoryStore whose entries expire after ttl.
// Expired entries are evicted by a background janitor.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		cache: gocache.New(ttl, min(ttl, time.Minute)),
	}
}

func (m *MemoryStore) Put(ctx context.Context, key string, s *auth.Session) error {
	if key == "" || s == nil {
		return ErrInvalidSession
	}
	m.cache.Set(key, *s, gocache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*auth.Session, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, nil
	}

	s, ok := v.(auth.Session)
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Clear(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Len reports the number of stored entries. Entries that expired since the
// last janitor run are still counted.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}
