// internal/auth/session.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"

	"github.com/google/uuid"
)

// Sessions maps opaque resume tokens to account ids. Tokens are handed out
// at login, resolved by lrs, and destroyed on explicit logout. A password
// change does not invalidate existing tokens.
type Sessions struct {
	mu      sync.Mutex
	byToken map[string]uuid.UUID
}

func NewSessions() *Sessions {
	return &Sessions{byToken: make(map[string]uuid.UUID)}
}

// NewToken returns a URL-safe token from 32 random bytes.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create mints a token for the account. Each login gets its own token; an
// earlier token stays valid until logged out.
func (s *Sessions) Create(accountID uuid.UUID) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.byToken[token] = accountID
	s.mu.Unlock()
	return token, nil
}

// Resolve looks up the account behind a token.
func (s *Sessions) Resolve(token string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	return id, ok
}

// Destroy drops a token. Unknown tokens are a no-op.
func (s *Sessions) Destroy(token string) {
	s.mu.Lock()
	delete(s.byToken, token)
	s.mu.Unlock()
}
