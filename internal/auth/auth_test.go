package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/sgm/internal/config"
)

func testManager() *Manager {
	return NewManager(config.AuthConfig{
		SessionSecret:    "session-secret",
		JWTSecret:        "jwt-secret",
		AccessTTL:        time.Minute,
		RefreshTTL:       time.Hour,
		PasswordResetTTL: time.Hour,
	})
}

func TestSession(t *testing.T) {
	m := testManager()

	t.Run("Should round-trip a signed cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		m.CreateSession(rr, 42)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range rr.Result().Cookies() {
			req.AddCookie(c)
		}
		uid, ok := m.ParseSession(req)
		require.True(t, ok)
		assert.Equal(t, uint(42), uid)
	})

	t.Run("Should reject a tampered cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "1." + m.sign("2")})
		_, ok := m.ParseSession(req)
		assert.False(t, ok)
	})
}

func TestTokens(t *testing.T) {
	m := testManager()

	t.Run("Should issue a pair whose access token parses", func(t *testing.T) {
		pair, err := m.IssuePair(7)
		require.NoError(t, err)
		claims, err := m.Parse(pair.Access, KindAccess)
		require.NoError(t, err)
		uid, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, uint(7), uid)
	})

	t.Run("Should not accept a refresh token as access token", func(t *testing.T) {
		pair, err := m.IssuePair(7)
		require.NoError(t, err)
		_, err = m.Parse(pair.Refresh, KindAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)

		access, uid, err := m.Refresh(pair.Refresh)
		require.NoError(t, err)
		assert.Equal(t, uint(7), uid)
		_, err = m.Parse(access, KindAccess)
		assert.NoError(t, err)
	})

	t.Run("Should reject expired tokens", func(t *testing.T) {
		pair, err := m.IssuePair(7)
		require.NoError(t, err)
		later := *m
		later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err = later.Parse(pair.Access, KindAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should reject tokens signed with another secret", func(t *testing.T) {
		other := NewManager(config.AuthConfig{JWTSecret: "other", AccessTTL: time.Minute})
		pair, err := other.IssuePair(7)
		require.NoError(t, err)
		_, err = m.Parse(pair.Access, KindAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should bind reset tokens to the password hash", func(t *testing.T) {
		tok, err := m.IssuePasswordReset(3, "hash-1")
		require.NoError(t, err)
		claims, err := m.Parse(tok, KindPasswordReset)
		require.NoError(t, err)
		assert.Equal(t, Fingerprint("hash-1"), claims.Fingerprint)
		assert.NotEqual(t, Fingerprint("hash-2"), claims.Fingerprint)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := testManager()
	m.SetUserVerifier(func(_ context.Context, uid uint) bool { return uid != 99 })

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/whoami", func(c *gin.Context) {
		uid, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"uid": uid, "ok": ok})
	})

	do := func(mutate func(*http.Request)) string {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		mutate(req)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Body.String()
	}

	t.Run("Should identify a bearer token", func(t *testing.T) {
		pair, err := m.IssuePair(5)
		require.NoError(t, err)
		body := do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pair.Access) })
		assert.JSONEq(t, `{"uid":5,"ok":true}`, body)
	})

	t.Run("Should drop identities failing verification", func(t *testing.T) {
		pair, err := m.IssuePair(99)
		require.NoError(t, err)
		body := do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pair.Access) })
		assert.JSONEq(t, `{"uid":0,"ok":false}`, body)
	})

	t.Run("Should ignore malformed authorization headers", func(t *testing.T) {
		body := do(func(r *http.Request) { r.Header.Set("Authorization", "Token abc") })
		assert.JSONEq(t, `{"uid":0,"ok":false}`, body)
	})
}
