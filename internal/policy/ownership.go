package policy

import (
	"context"
	"slices"

	"github.com/diewo77/sgm/internal/gate"
)

// Owned is a record that belongs to exactly one user.
type Owned interface {
	OwnerID() uint
}

// OwnerPolicy lets the owner of a record perform a fixed set of actions on
// it. A nil record (list or create) is allowed; records that do not
// implement Owned are denied.
type OwnerPolicy struct {
	actions []gate.Action
}

// OwnerMay returns a policy granting owners the given actions.
func OwnerMay(actions ...gate.Action) *OwnerPolicy {
	return &OwnerPolicy{actions: slices.Clone(actions)}
}

func (p *OwnerPolicy) Can(_ context.Context, userID uint, action gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	owned, ok := resource.(Owned)
	if !ok {
		return false
	}
	return owned.OwnerID() == userID && slices.Contains(p.actions, action)
}

// AdminOverride admits administrators before consulting inner.
type AdminOverride struct {
	inner   gate.Policy[uint]
	isAdmin func(ctx context.Context, userID uint) bool
}

func WithAdminOverride(inner gate.Policy[uint], isAdmin func(ctx context.Context, userID uint) bool) *AdminOverride {
	return &AdminOverride{inner: inner, isAdmin: isAdmin}
}

func (p *AdminOverride) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	if p.isAdmin(ctx, userID) {
		return true
	}
	return p.inner.Can(ctx, userID, action, resource)
}
