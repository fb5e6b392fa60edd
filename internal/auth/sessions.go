// Package auth implements dashboard session handling: opaque bearer tokens
// in an http-only cookie, validated against an in-memory table. Sessions do
// not survive a restart.
package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const CookieName = "session_token"

// Sessions maps opaque tokens to the logged-in username.
type Sessions struct {
	maxAge time.Duration
	mu     sync.RWMutex
	tokens map[string]string
}

func NewSessions(maxAge time.Duration) *Sessions {
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return &Sessions{
		maxAge: maxAge,
		tokens: make(map[string]string),
	}
}

// Issue creates a session for username and returns the new token.
func (s *Sessions) Issue(username string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = username
	s.mu.Unlock()
	return token
}

// Lookup resolves a token to its username.
func (s *Sessions) Lookup(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	username, ok := s.tokens[token]
	return username, ok
}

// Revoke drops a token; unknown tokens are a no-op.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Cookie builds the session cookie for token.
func (s *Sessions) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.maxAge.Seconds()),
	}
}

// ClearCookie builds the cookie that removes the session from the browser.
func ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}
}

// UserFromRequest returns the logged-in username for the request, if any.
func (s *Sessions) UserFromRequest(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return s.Lookup(cookie.Value)
}
