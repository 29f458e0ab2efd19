// Package memory holds the default download token table: a process-lifetime
// map. A restart drops every outstanding token; the source verification
// codes stay valid, so users just verify again.
package memory

import (
	"context"
	"sync"
	"time"

	"handoff_service/internal/models"
	"handoff_service/internal/storage"
)

type entry struct {
	token     models.DownloadToken
	expiresAt time.Time
}

type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]entry
	now    func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]entry),
		now:    time.Now,
	}
}

// NewTokenStoreWithClock allows tests to drive expiry with a fake clock.
func NewTokenStoreWithClock(now func() time.Time) *TokenStore {
	return &TokenStore{
		tokens: make(map[string]entry),
		now:    now,
	}
}

func (s *TokenStore) PutToken(_ context.Context, t models.DownloadToken, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[t.Token] = entry{
		token:     t,
		expiresAt: s.now().Add(ttl),
	}

	return nil
}

// ConsumeToken looks a token up, checks expiry, and deletes it, all under one
// lock. The check and the delete never separate, so a second redemption of
// the same token always sees an empty slot.
func (s *TokenStore) ConsumeToken(_ context.Context, token string) (models.DownloadToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[token]
	if !ok {
		return models.DownloadToken{}, storage.ErrTokenNotFound
	}

	delete(s.tokens, token)

	if s.now().After(e.expiresAt) {
		return models.DownloadToken{}, storage.ErrTokenNotFound
	}

	return e.token, nil
}

func (s *TokenStore) Close() {}
