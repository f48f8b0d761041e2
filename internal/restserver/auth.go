package restserver

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionTTL = 7 * 24 * time.Hour

// sessionStore tracks issued session tokens in memory. Sessions do not
// survive a restart; clients just log in again.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]time.Time)}
}

// issue creates a new session token
func (s *sessionStore) issue(now time.Time) string {
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop expired sessions while we hold the lock
	for t, expiry := range s.tokens {
		if now.After(expiry) {
			delete(s.tokens, t)
		}
	}
	s.tokens[token] = now.Add(sessionTTL)

	return token
}

// valid reports whether token identifies a live session
func (s *sessionStore) valid(token string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	return ok && now.Before(expiry)
}

// checkPassword compares a login attempt against the configured admin
// password in constant time
func (c *Controller) checkPassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(c.authCfg.AdminPassword)) == 1
}

// authMiddleware validates the bearer token on every API request
func (c *Controller) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if ok && c.sessions.valid(token, c.now()) {
			next.ServeHTTP(w, r)
			return
		}

		c.logger.Debugf("Auth failed for %s - no valid session token", r.URL.Path)
		http.Error(w, "Authentication required", http.StatusUnauthorized)
	})
}
