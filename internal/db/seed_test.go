package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/diewo77/sgm/internal/config"
	"github.com/diewo77/sgm/internal/db"
	"github.com/diewo77/sgm/internal/db/dbtest"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
)

func TestSeedProfiles(t *testing.T) {
	conn := dbtest.New(t)

	t.Run("Should create one profile per role with its exact permissions", func(t *testing.T) {
		for _, role := range roles.All() {
			var profile models.Profile
			require.NoError(t, conn.Preload("Permissions").Where("name = ?", string(role)).First(&profile).Error)
			var got []string
			for _, p := range profile.Permissions {
				got = append(got, string(p.Code()))
			}
			var want []string
			for _, p := range roles.Permissions(role) {
				want = append(want, string(p))
			}
			assert.ElementsMatch(t, want, got, "role %s", role)
		}
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		var before, after int64
		conn.Model(&models.Permission{}).Count(&before)
		require.NoError(t, db.SeedProfiles(conn))
		conn.Model(&models.Permission{}).Count(&after)
		assert.Equal(t, before, after)
		var profiles int64
		conn.Model(&models.Profile{}).Count(&profiles)
		assert.Equal(t, int64(len(roles.All())), profiles)
	})

	t.Run("Should resync users to the profile of their role", func(t *testing.T) {
		u := models.User{Username: "drift", Email: "drift@example.com", Password: "x", Role: roles.Douane, IsActive: true, Language: "fr"}
		require.NoError(t, conn.Create(&u).Error)
		require.NoError(t, db.SeedProfiles(conn))

		var reloaded models.User
		require.NoError(t, conn.Preload("Profile").First(&reloaded, u.ID).Error)
		require.NotNil(t, reloaded.Profile)
		assert.Equal(t, string(roles.Douane), reloaded.Profile.Name)
	})
}

func TestSeedAdmin(t *testing.T) {
	conn := dbtest.New(t)
	app := config.AppConfig{SeedAdminUsername: "root", SeedAdminPassword: "Sup3rSecret!"}

	require.NoError(t, db.Seed(conn, app))
	require.NoError(t, db.Seed(conn, app))

	var admins []models.User
	require.NoError(t, conn.Where("username = ?", "root").Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, roles.Admin, admins[0].Role)
	assert.True(t, admins[0].IsActive)
	assert.Equal(t, "root@localhost", admins[0].Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admins[0].Password), []byte("Sup3rSecret!")))
}
