package middleware

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName carries the login token.
	CookieName = "station_session"
	// TokenTTL is how long a login stays valid.
	TokenTTL = 30 * 24 * time.Hour
)

// TokenStore keeps the login tokens issued by this process. Tokens are random and only valid
// while they are in the store, so a restart logs everyone out.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenStore(ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = TokenTTL
	}
	return &TokenStore{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a new token.
func (s *TokenStore) Issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for token, expires := range s.tokens {
		if now.After(expires) {
			delete(s.tokens, token)
		}
	}

	token := uuid.NewString()
	s.tokens[token] = now.Add(s.ttl)
	return token
}

// Valid reports whether token was issued here and has not expired or been revoked.
func (s *TokenStore) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.now().After(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// Revoke forgets token.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}
