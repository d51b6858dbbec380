package policy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/db/dbtest"
	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/policy"
	"github.com/diewo77/sgm/internal/roles"
)

func createUser(t *testing.T, conn *gorm.DB, username string, role roles.Role, active bool) models.User {
	t.Helper()
	var profile models.Profile
	require.NoError(t, conn.Where("name = ?", string(role)).First(&profile).Error)
	u := models.User{
		Username: username, Email: username + "@example.com", Password: "x",
		Role: role, IsActive: active, Language: "fr", ProfileID: &profile.ID,
	}
	require.NoError(t, conn.Create(&u).Error)
	return u
}

func TestAuthGate_Check(t *testing.T) {
	conn := dbtest.New(t)
	ag := policy.NewAuthGate(conn, 16, time.Minute)
	admin := createUser(t, conn, "admin", roles.Admin, true)
	agent := createUser(t, conn, "agent", roles.AgentMinier, true)
	customs := createUser(t, conn, "customs", roles.Douane, true)
	disabled := createUser(t, conn, "gone", roles.Douane, false)

	as := func(u models.User) context.Context { return auth.WithUserID(context.Background(), u.ID) }

	t.Run("Should require an identity", func(t *testing.T) {
		assert.ErrorIs(t, ag.Check(context.Background(), gate.Requirement{}), gate.ErrUnauthenticated)
	})
	t.Run("Should grant table permissions", func(t *testing.T) {
		assert.NoError(t, ag.Check(as(agent), gate.Requirement{Permission: roles.ExtractionAdd}))
		assert.ErrorIs(t, ag.Check(as(agent), gate.Requirement{Permission: roles.ExportValidate}), gate.ErrUnauthorized)
	})
	t.Run("Should let the admin wildcard through permission checks", func(t *testing.T) {
		assert.NoError(t, ag.Check(as(admin), gate.Requirement{Permission: roles.ExportValidate}))
	})
	t.Run("Should enforce roles even for admins", func(t *testing.T) {
		req := gate.NeedRole(string(roles.Douane))
		assert.NoError(t, ag.Check(as(customs), req))
		assert.ErrorIs(t, ag.Check(as(admin), req), gate.ErrUnauthorized)
	})
	t.Run("Should deny inactive users", func(t *testing.T) {
		assert.ErrorIs(t, ag.Check(as(disabled), gate.Requirement{}), gate.ErrUnauthorized)
	})
	t.Run("Should deny users whose profile does not mirror their role", func(t *testing.T) {
		drifted := createUser(t, conn, "drifted", roles.Lecteur, true)
		require.NoError(t, conn.Model(&drifted).Update("role", string(roles.Admin)).Error)
		assert.ErrorIs(t, ag.Check(as(drifted), gate.Requirement{}), gate.ErrUnauthorized)
	})
	t.Run("Should apply the user object policy", func(t *testing.T) {
		assert.NoError(t, ag.AuthorizeObject(as(agent), gate.ActionChange, policy.ResourceUser, &agent))
		assert.ErrorIs(t, ag.AuthorizeObject(as(agent), gate.ActionChange, policy.ResourceUser, &customs), gate.ErrUnauthorized)
		assert.NoError(t, ag.AuthorizeObject(as(admin), gate.ActionChange, policy.ResourceUser, &customs))
	})
	t.Run("Should serve stale profiles until invalidated", func(t *testing.T) {
		require.NoError(t, ag.Check(as(customs), gate.Requirement{Permission: roles.ExportValidate}))
		require.NoError(t, conn.Model(&customs).Update("is_active", false).Error)
		assert.NoError(t, ag.Check(as(customs), gate.Requirement{Permission: roles.ExportValidate}))
		ag.Invalidate(customs.ID)
		assert.ErrorIs(t, ag.Check(as(customs), gate.Requirement{}), gate.ErrUnauthorized)
	})
}

func TestAuthGate_Guards(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := dbtest.New(t)
	ag := policy.NewAuthGate(conn, 16, time.Minute)
	driver := createUser(t, conn, "driver", roles.Chauffeur, true)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-User") == "driver" {
			c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), driver.ID))
		}
	})
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/auth", ag.RequireAuth(), ok)
	r.GET("/status", ag.RequirePermission(roles.TransportUpdateStatus), ok)
	r.GET("/admin", ag.RequireAdmin(), ok)
	r.GET("/customs", ag.RequireRole(roles.Douane), ok)

	do := func(path string, asDriver bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if asDriver {
			req.Header.Set("X-User", "driver")
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := do("/auth", false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rr.Body.String())
	assert.Equal(t, http.StatusNoContent, do("/auth", true).Code)
	assert.Equal(t, http.StatusNoContent, do("/status", true).Code)
	assert.Equal(t, http.StatusForbidden, do("/admin", true).Code)
	assert.Equal(t, http.StatusForbidden, do("/customs", true).Code)
	assert.Equal(t, http.StatusUnauthorized, do("/customs", false).Code)
}
