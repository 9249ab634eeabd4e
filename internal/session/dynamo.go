package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/savaki/auth-broker/internal/auth"
	"github.com/savaki/auth-broker/internal/dao/sessiondao"
)

// DynamoStore keeps sessions in a DynamoDB table with a ttl attribute.
type DynamoStore struct {
	dao *sessiondao.DAO
	ttl time.Duration
}

// NewDynamoStore creates a DynamoDB-backed session store.
func NewDynamoStore(dao *sessiondao.DAO, ttl time.Duration) *DynamoStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DynamoStore{
		dao: dao,
		ttl: ttl,
	}
}

func (d *DynamoStore) Put(ctx context.Context, key string, s *auth.Session) error {
	if key == "" || s == nil {
		return ErrInvalidSession
	}

	identity, err := json.Marshal(s.Identity)
	if err != nil {
		return fmt.Errorf("session: failed to marshal identity: %w", err)
	}
	groups, err := json.Marshal(s.Groups)
	if err != nil {
		return fmt.Errorf("session: failed to marshal groups: %w", err)
	}

	_, err = d.dao.Put(ctx, sessiondao.PutInput{
		ID:       key,
		Provider: s.Provider.String(),
		Identity: string(identity),
		Groups:   string(groups),
		TTL:      d.ttl,
	})
	return err
}

func (d *DynamoStore) Get(ctx context.Context, key string) (*auth.Session, error) {
	if key == "" {
		return nil, nil
	}

	record, err := d.dao.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	s := &auth.Session{
		Identity: auth.IdentityRecord{},
		Groups:   auth.GroupMembership{},
		Provider: auth.ProviderID(record.Provider),
	}
	if record.Identity != "" {
		if err := json.Unmarshal([]byte(record.Identity), &s.Identity); err != nil {
			return nil, fmt.Errorf("session: failed to unmarshal identity: %w", err)
		}
	}
	if record.Groups != "" {
		if err := json.Unmarshal([]byte(record.Groups), &s.Groups); err != nil {
			return nil, fmt.Errorf("session: failed to unmarshal groups: %w", err)
		}
	}
	return s, nil
}

func (d *DynamoStore) Clear(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return d.dao.Delete(ctx, key)
}
