package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware attaches the user id to the request context when the request
// carries a valid bearer token or session cookie for a verified user. It
// never aborts; guards decide what an anonymous request may do.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, fromCookie, ok := m.identify(c)
		if ok && m.verifier != nil && !m.verifier(c.Request.Context(), uid) {
			// Identity refers to a non-existing/disabled user.
			if fromCookie {
				ClearSession(c.Writer)
			}
			ok = false
		}
		if ok {
			c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), uid))
		}
		c.Next()
	}
}

func (m *Manager) identify(c *gin.Context) (uid uint, fromCookie, ok bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return 0, false, false
		}
		claims, err := m.Parse(strings.TrimSpace(token), KindAccess)
		if err != nil {
			return 0, false, false
		}
		uid, _ = claims.UserID()
		return uid, false, true
	}
	uid, ok = m.ParseSession(c.Request)
	return uid, true, ok
}

// UserID returns the identified user of a gin request.
func UserID(c *gin.Context) (uint, bool) {
	return UserIDFromContext(c.Request.Context())
}
