package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store holds live sessions in memory and serializes work per session
type Store struct {
	cache *cache.Cache
	locks *KeyedMutex
}

// NewStore creates a store whose entries expire after ttl without activity
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		cache: cache.New(ttl, 10*time.Minute),
		locks: NewKeyedMutex(),
	}
}

// Lock acquires the per-session lock. Hold it across load, mutate and save.
func (s *Store) Lock(ctx context.Context, sessionID string) (func(), error) {
	return s.locks.Lock(ctx, sessionID)
}

// Get returns a copy of the session
func (s *Store) Get(sessionID string) (*Session, bool) {
	if x, found := s.cache.Get(sessionID); found {
		return x.(*Session).Clone(), true
	}
	return nil, false
}

// Save stores a copy of the session and refreshes its expiry
func (s *Store) Save(sess *Session) {
	cp := sess.Clone()
	cp.UpdatedAt = time.Now().UTC()
	s.cache.Set(cp.ID, cp, cache.DefaultExpiration)
}

func (s *Store) Delete(sessionID string) {
	s.cache.Delete(sessionID)
}

// Count returns the number of live sessions
func (s *Store) Count() int {
	return s.cache.ItemCount()
}
