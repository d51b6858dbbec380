package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates access, refresh and password reset tokens so one
// cannot be replayed as another.
type TokenKind string

const (
	KindAccess        TokenKind = "access"
	KindRefresh       TokenKind = "refresh"
	KindPasswordReset TokenKind = "password_reset"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Kind TokenKind `json:"typ"`
	// Fingerprint binds a password reset token to the hash it replaces.
	Fingerprint string `json:"fp,omitempty"`
}

// UserID returns the subject as a user id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// TokenPair is the body returned by the token endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (m *Manager) issue(userID uint, kind TokenKind, ttl time.Duration, fingerprint string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Kind:        kind,
		Fingerprint: fingerprint,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// IssuePair signs an access and a refresh token for userID.
func (m *Manager) IssuePair(userID uint) (TokenPair, error) {
	access, err := m.issue(userID, KindAccess, m.accessTTL, "")
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.issue(userID, KindRefresh, m.refreshTTL, "")
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Parse verifies signature, expiry and kind.
func (m *Manager) Parse(token string, kind TokenKind) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return &claims, nil
}

// Refresh exchanges a refresh token for a new access token.
func (m *Manager) Refresh(refresh string) (string, uint, error) {
	claims, err := m.Parse(refresh, KindRefresh)
	if err != nil {
		return "", 0, err
	}
	uid, _ := claims.UserID()
	access, err := m.issue(uid, KindAccess, m.accessTTL, "")
	return access, uid, err
}

// IssuePasswordReset signs a reset token that stops verifying once the
// password hash changes.
func (m *Manager) IssuePasswordReset(userID uint, passwordHash string) (string, error) {
	return m.issue(userID, KindPasswordReset, m.resetTTL, Fingerprint(passwordHash))
}

// Fingerprint is a short digest of a password hash.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
