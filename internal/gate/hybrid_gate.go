package gate

import (
	"context"
	"slices"
)

// Requirement is what a caller must hold: a role among Roles (when set) and
// Permission (when set). An empty Requirement only demands a resolved profile.
type Requirement struct {
	Permission Permission
	Roles      []string
}

// Need builds a permission requirement.
func Need(resource string, action Action) Requirement {
	return Requirement{Permission: NewPermission(resource, action)}
}

// NeedRole builds a role requirement.
func NeedRole(roles ...string) Requirement {
	return Requirement{Roles: roles}
}

// HybridGate checks profile requirements, then any per-object policy
// registered for the resource type.
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register sets the object policy for a resource type. Call it during
// startup only; the map is not guarded.
func (g *HybridGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Profile resolves the subject, mapping a zero subject to ErrUnauthenticated
// and a missing profile to ErrUnauthorized.
func (g *HybridGate[U]) Profile(ctx context.Context, user U) (Profile, error) {
	var zero U
	if user == zero {
		return nil, ErrUnauthenticated
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return nil, ErrUnauthorized
	}
	return profile, nil
}

// Check enforces req for user.
func (g *HybridGate[U]) Check(ctx context.Context, user U, req Requirement) error {
	profile, err := g.Profile(ctx, user)
	if err != nil {
		return err
	}
	if len(req.Roles) > 0 && !slices.Contains(req.Roles, profile.Name()) {
		return ErrUnauthorized
	}
	if req.Permission != "" && !profile.HasPermission(req.Permission) {
		return ErrUnauthorized
	}
	return nil
}

// Authorize checks resourceType:action on the profile, then the object
// policy for resourceType when resource is non-nil.
func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	if err := g.Check(ctx, user, Need(resourceType, action)); err != nil {
		return err
	}
	return g.AuthorizeObject(ctx, user, action, resourceType, resource)
}

// AuthorizeObject runs only the object policy. A resource type without a
// policy is allowed.
func (g *HybridGate[U]) AuthorizeObject(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthenticated
	}
	if resource == nil {
		return nil
	}
	if p, ok := g.policies[resourceType]; ok && !p.Can(ctx, user, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

func (g *HybridGate[U]) Can(ctx context.Context, user U, req Requirement) bool {
	return g.Check(ctx, user, req) == nil
}
