package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueLookupRevoke(t *testing.T) {
	s := NewSessions(time.Hour)

	token := s.Issue("admin")
	require.NotEmpty(t, token)

	username, ok := s.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, "admin", username)

	s.Revoke(token)
	_, ok = s.Lookup(token)
	assert.False(t, ok)

	// Revoking twice is harmless.
	s.Revoke(token)
}

func TestTokensAreUnique(t *testing.T) {
	s := NewSessions(time.Hour)
	a := s.Issue("admin")
	b := s.Issue("admin")
	assert.NotEqual(t, a, b)
}

func TestCookieAttributes(t *testing.T) {
	s := NewSessions(7 * 24 * time.Hour)
	c := s.Cookie("tok")
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 7*24*3600, c.MaxAge)

	cleared := ClearCookie()
	assert.Equal(t, -1, cleared.MaxAge)
}

func newAuthedContext(t *testing.T, s *Sessions, path string, token string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestMiddlewareRedirectsAnonymous(t *testing.T) {
	s := NewSessions(time.Hour)
	mw := Middleware(s)
	handler := mw(func(c echo.Context) error { return c.String(http.StatusOK, "secret") })

	c, rec := newAuthedContext(t, s, "/", "")
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestMiddlewareWebsocketGets403(t *testing.T) {
	s := NewSessions(time.Hour)
	mw := Middleware(s)
	handler := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ws") })

	c, rec := newAuthedContext(t, s, "/ws", "bogus")
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewarePassesAuthenticated(t *testing.T) {
	s := NewSessions(time.Hour)
	token := s.Issue("admin")
	mw := Middleware(s)
	handler := mw(func(c echo.Context) error { return c.String(http.StatusOK, "secret") })

	c, rec := newAuthedContext(t, s, "/downloads", token)
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "secret", rec.Body.String())
}

func TestMiddlewarePublicPaths(t *testing.T) {
	s := NewSessions(time.Hour)
	mw := Middleware(s)
	handler := mw(func(c echo.Context) error { return c.String(http.StatusOK, "public") })

	for _, path := range []string{"/login", "/logout", "/health", "/metrics", "/favicon.ico", "/static/app.js"} {
		c, rec := newAuthedContext(t, s, path, "")
		require.NoError(t, handler(c))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
