// Package policy wires the gate to the database and exposes gin guards.
package policy

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/httpx"
	"github.com/diewo77/sgm/internal/roles"
)

// Resource types with object policies.
const (
	ResourceUser         = "user"
	ResourceNotification = "notification"
)

// AuthGate holds the configured HybridGate with caching.
// Use this as a central authorization point in your application.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate creates a fully configured authorization gate.
// - db: GORM database connection for profile lookups
// - cacheSize, cacheTTL: bounds of the profile LRU (e.g. 1024, 5*time.Minute)
func NewAuthGate(db *gorm.DB, cacheSize int, cacheTTL time.Duration) *AuthGate {
	// Create DB resolver that fetches profiles from database
	dbResolver := NewDBProfileResolver(db)

	// Wrap with caching to avoid DB queries on every request
	cachedResolver := gate.NewCachedResolver[uint](dbResolver, cacheSize, cacheTTL)

	// Create hybrid gate that combines profile permissions with ownership policies
	hybridGate := gate.NewHybridGate[uint](cachedResolver)

	ag := &AuthGate{
		Gate:          hybridGate,
		CacheResolver: cachedResolver,
	}
	// Users read and edit themselves; only admins delete or edit others.
	ag.RegisterPolicy(ResourceUser, WithAdminOverride(OwnerMay(gate.ActionView, gate.ActionChange), ag.IsAdmin))
	// Notifications are private to their recipient, admins included.
	ag.RegisterPolicy(ResourceNotification, OwnerMay(gate.ActionView, gate.ActionChange))
	return ag
}

// RegisterPolicy adds an ownership policy for a resource type.
func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[uint]) {
	ag.Gate.Register(resourceType, p)
}

// Check enforces req for the user identified on ctx.
func (ag *AuthGate) Check(ctx context.Context, req gate.Requirement) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthenticated
	}
	return ag.Gate.Check(ctx, userID, req)
}

// Authorize checks the resourceType:action permission then the object
// policy of resourceType.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthenticated
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

// AuthorizeObject runs only the object policy, for resources every
// authenticated user may reach subject to ownership.
func (ag *AuthGate) AuthorizeObject(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthenticated
	}
	if _, err := ag.Gate.Profile(ctx, userID); err != nil {
		return err
	}
	return ag.Gate.AuthorizeObject(ctx, userID, action, resourceType, resource)
}

// Can is a convenience method that returns bool instead of error.
func (ag *AuthGate) Can(ctx context.Context, req gate.Requirement) bool {
	return ag.Check(ctx, req) == nil
}

// IsAdmin reports whether userID holds the superadmin permission.
func (ag *AuthGate) IsAdmin(ctx context.Context, userID uint) bool {
	return ag.Gate.Can(ctx, userID, gate.Requirement{Permission: gate.PermissionAll})
}

// Invalidate clears the cache for a specific user.
// Call this when a user's role is changed.
func (ag *AuthGate) Invalidate(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// InvalidateAll clears the entire profile cache.
// Call this after profiles are reseeded.
func (ag *AuthGate) InvalidateAll() {
	ag.CacheResolver.InvalidateAll()
}

// RequireAuth answers 401 when the request carries no identity.
func (ag *AuthGate) RequireAuth() gin.HandlerFunc {
	return ag.Require(gate.Requirement{})
}

// Require returns middleware enforcing req: 401 without identity, 403 when
// the requirement is not met.
func (ag *AuthGate) Require(req gate.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ag.Check(c.Request.Context(), req); err != nil {
			httpx.Error(c, err)
			return
		}
		c.Next()
	}
}

// RequirePermission returns middleware that checks profile permission.
func (ag *AuthGate) RequirePermission(perm gate.Permission) gin.HandlerFunc {
	return ag.Require(gate.Requirement{Permission: perm})
}

// RequireRole returns middleware that only allows the given roles.
func (ag *AuthGate) RequireRole(rs ...roles.Role) gin.HandlerFunc {
	return ag.Require(gate.NeedRole(roles.Strings(rs...)...))
}

// RequireAdmin returns middleware that only allows users with the "*:*"
// superadmin permission.
func (ag *AuthGate) RequireAdmin() gin.HandlerFunc {
	return ag.RequirePermission(gate.PermissionAll)
}
