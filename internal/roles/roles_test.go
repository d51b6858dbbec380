package roles

import (
	"slices"
	"testing"

	"github.com/diewo77/sgm/internal/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("Should accept every declared role", func(t *testing.T) {
		for _, r := range All() {
			got, err := Parse(string(r))
			require.NoError(t, err)
			assert.Equal(t, r, got)
		}
	})
	t.Run("Should reject unknown roles", func(t *testing.T) {
		_, err := Parse("superuser")
		assert.Error(t, err)
		assert.False(t, Role("").Valid())
	})
}

func TestPermissions(t *testing.T) {
	t.Run("Should declare an entry for every role", func(t *testing.T) {
		for _, r := range All() {
			assert.NotEmpty(t, Permissions(r), "role %s", r)
		}
	})

	t.Run("Should only use catalogued codes", func(t *testing.T) {
		catalog := Catalog()
		for _, r := range All() {
			for _, p := range Permissions(r) {
				_, ok := catalog[p]
				assert.True(t, ok, "role %s grants uncatalogued %s", r, p)
			}
		}
	})

	t.Run("Should hand out copies", func(t *testing.T) {
		perms := Permissions(Chauffeur)
		perms[0] = "tampered:yes"
		assert.Equal(t, DashboardView, Permissions(Chauffeur)[0])
	})

	t.Run("Should return nil for unknown roles", func(t *testing.T) {
		assert.Nil(t, Permissions("ghost"))
	})

	t.Run("Should swap grants when agent_minier becomes douane", func(t *testing.T) {
		agent := Profile(AgentMinier)
		douane := Profile(Douane)

		assert.True(t, agent.HasPermission(ExtractionAdd))
		assert.False(t, douane.HasPermission(ExtractionAdd))
		assert.True(t, douane.HasPermission(ExportValidate))
		for _, p := range Permissions(AgentMinier) {
			if !slices.Contains(Permissions(Douane), p) {
				assert.False(t, douane.HasPermission(p), "douane kept %s", p)
			}
		}
	})

	t.Run("Should give admin every code", func(t *testing.T) {
		admin := Profile(Admin)
		for _, code := range CatalogCodes() {
			assert.True(t, admin.HasPermission(code), "admin lacks %s", code)
		}
		assert.True(t, admin.HasPermission(gate.NewPermission("anything", gate.ActionView)))
	})

	t.Run("Should keep lecteur read-only", func(t *testing.T) {
		assert.Equal(t, []gate.Permission{DashboardView}, Permissions(Lecteur))
	})
}

func TestLandingFor(t *testing.T) {
	cases := map[Role]string{
		Admin:           "/dashboard/admin",
		AgentMinier:     "/dashboard/agent",
		ResponsableSite: "/dashboard/site-manager",
		Chauffeur:       "/dashboard/driver",
		Douane:          "/dashboard/customs",
		Environnement:   "/dashboard/environment",
		Lecteur:         "/dashboard/viewer",
	}
	for r, path := range cases {
		t.Run("Should route "+string(r), func(t *testing.T) {
			assert.Equal(t, path, LandingFor(r).Path())
		})
	}

	t.Run("Should fall back to viewer for unknown or empty roles", func(t *testing.T) {
		assert.Equal(t, LandingViewer, LandingFor("ghost"))
		assert.Equal(t, LandingViewer, LandingFor(""))
	})

	t.Run("Should reserve every landing except viewer", func(t *testing.T) {
		for _, l := range Landings() {
			r, ok := l.Role()
			if l == LandingViewer {
				assert.False(t, ok)
				continue
			}
			require.True(t, ok)
			assert.Equal(t, l, LandingFor(r))
		}
	})
}
