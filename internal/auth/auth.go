// Package auth establishes request identity from a signed session cookie or
// a bearer JWT and stores the user id on the request context.
package auth

import (
	"context"
	"time"

	"github.com/diewo77/sgm/internal/config"
)

type ctxKey string

const (
	sessionCookieName = "session"
	userIDCtxKey      = ctxKey("userID")
	sessionLifetime   = 14 * 24 * time.Hour
)

// UserVerifier validates that an identified user still exists and is
// active. Identities failing it are dropped.
type UserVerifier func(ctx context.Context, uid uint) bool

// Manager signs sessions and tokens.
type Manager struct {
	sessionSecret []byte
	jwtSecret     []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	verifier      UserVerifier
	now           func() time.Time
}

func NewManager(cfg config.AuthConfig) *Manager {
	return &Manager{
		sessionSecret: []byte(cfg.SessionSecret),
		jwtSecret:     []byte(cfg.JWTSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		resetTTL:      cfg.PasswordResetTTL,
		now:           time.Now,
	}
}

// SetUserVerifier configures the check run by Middleware on every identity.
// If nil, no extra verification is performed.
func (m *Manager) SetUserVerifier(v UserVerifier) { m.verifier = v }

// WithUserID stores user id in context.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	v := ctx.Value(userIDCtxKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
