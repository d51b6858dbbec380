package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/sgm/internal/gate"
)

type note struct{ recipient uint }

func newTestGate() *gate.HybridGate[uint] {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile(1, "admin", gate.PermissionAll))
	resolver.Set(2, gate.NewStaticProfile(2, "chauffeur", "dashboard:view", "transport:view", "transport:update_status"))
	resolver.Set(3, gate.NewStaticProfile(3, "douane", "dashboard:view", "export:view", "export:validate"))
	g := gate.NewHybridGate[uint](resolver)
	g.Register("notification", gate.PolicyFunc[uint](func(_ context.Context, user uint, _ gate.Action, resource any) bool {
		n, ok := resource.(*note)
		return ok && n.recipient == user
	}))
	return g
}

func TestHybridGate_Check(t *testing.T) {
	g := newTestGate()
	ctx := context.Background()

	tests := []struct {
		name string
		user uint
		req  gate.Requirement
		want error
	}{
		{"zero user", 0, gate.Need("transport", "view"), gate.ErrUnauthenticated},
		{"unknown user", 99, gate.Requirement{}, gate.ErrUnauthorized},
		{"permission held", 2, gate.Need("transport", "update_status"), nil},
		{"permission missing", 2, gate.Need("export", "validate"), gate.ErrUnauthorized},
		{"admin wildcard", 1, gate.Need("export", "validate"), nil},
		{"role match", 3, gate.NeedRole("douane"), nil},
		{"role mismatch even for admin", 1, gate.NeedRole("douane"), gate.ErrUnauthorized},
		{"role and permission", 3, gate.Requirement{Roles: []string{"douane"}, Permission: "export:validate"}, nil},
		{"empty requirement", 2, gate.Requirement{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(ctx, tt.user, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Check() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHybridGate_AuthorizeWithPolicy(t *testing.T) {
	g := newTestGate()
	ctx := context.Background()

	if err := g.AuthorizeObject(ctx, 2, gate.ActionView, "notification", &note{recipient: 2}); err != nil {
		t.Errorf("recipient should see own notification, got %v", err)
	}
	if err := g.AuthorizeObject(ctx, 3, gate.ActionView, "notification", &note{recipient: 2}); err != gate.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized for other recipient, got %v", err)
	}
	if err := g.AuthorizeObject(ctx, 3, gate.ActionView, "unregistered", &note{}); err != nil {
		t.Errorf("resource without policy should pass, got %v", err)
	}
	if err := g.Authorize(ctx, 2, gate.ActionView, "transport", nil); err != nil {
		t.Errorf("expected transport:view allowed, got %v", err)
	}
	if err := g.Authorize(ctx, 2, gate.ActionDelete, "transport", nil); err != gate.ErrUnauthorized {
		t.Errorf("expected transport:delete denied, got %v", err)
	}
}
