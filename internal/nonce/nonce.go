package nonce

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultTTL = 12 * time.Hour

// Store mints anti-forgery tokens for trigger links. A token stays valid for its
// TTL so every link of one render can share it.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		cache: cache.New(ttl, ttl/2),
		ttl:   ttl,
	}
}

func (s *Store) Mint() string {
	token := uuid.NewString()
	s.cache.Set(token, struct{}{}, s.ttl)
	return token
}

func (s *Store) Verify(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	if _, err := uuid.Parse(token); err != nil {
		return false
	}
	_, found := s.cache.Get(token)
	return found
}

func (s *Store) Revoke(token string) {
	s.cache.Delete(token)
}
