package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/policy"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
	"github.com/diewo77/sgm/internal/validation"
)

func signup(username string) services.CreateUserInput {
	return services.CreateUserInput{Username: username, Email: strings.ToUpper(username) + "@Example.com", Password: "longenough"}
}

func TestUserService_Create(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root", roles.Admin)

	t.Run("Should default self-registered users to lecteur", func(t *testing.T) {
		in := signup("visitor")
		in.Role = roles.Admin
		u, err := e.users.Create(ctx, in, nil)
		require.NoError(t, err)
		assert.Equal(t, roles.Lecteur, u.Role)
		assert.True(t, u.IsActive)
		assert.True(t, u.ReceiveNotifications)
		assert.Equal(t, "fr", u.Language)
		assert.Equal(t, "visitor@example.com", u.Email)

		var profile models.Profile
		require.NoError(t, e.db.First(&profile, *u.ProfileID).Error)
		assert.Equal(t, string(roles.Lecteur), profile.Name)
		assert.Contains(t, e.invalidated.ids, u.ID)
	})
	t.Run("Should honour the role chosen by an admin", func(t *testing.T) {
		in := signup("customs")
		in.Role = roles.Douane
		u, err := e.users.Create(ctx, in, admin)
		require.NoError(t, err)
		assert.Equal(t, roles.Douane, u.Role)
	})
	t.Run("Should reject unknown roles", func(t *testing.T) {
		in := signup("ghost")
		in.Role = "pirate"
		_, err := e.users.Create(ctx, in, admin)
		assert.ErrorIs(t, err, services.ErrValidation)
	})
	t.Run("Should validate the input", func(t *testing.T) {
		_, err := e.users.Create(ctx, services.CreateUserInput{Username: "ab", Email: "nope", Password: "short"}, nil)
		require.ErrorIs(t, err, services.ErrValidation)
		var se *services.Error
		require.ErrorAs(t, err, &se)
		details, ok := se.Details.(validation.Violations)
		require.True(t, ok)
		assert.Equal(t, "too_short", details["username"])
		assert.Equal(t, "invalid_email", details["email"])
		assert.Equal(t, "too_short", details["password"])
	})
	t.Run("Should reject taken usernames and emails", func(t *testing.T) {
		_, err := e.users.Create(ctx, signup("visitor"), nil)
		assert.ErrorIs(t, err, services.ErrValidation)
	})
	t.Run("Should reject passwords longer than bcrypt accepts", func(t *testing.T) {
		in := signup("longpw")
		in.Password = strings.Repeat("a", 80)
		_, err := e.users.Create(ctx, in, nil)
		require.ErrorIs(t, err, services.ErrValidation)
		var se *services.Error
		require.ErrorAs(t, err, &se)
		details, ok := se.Details.(validation.Violations)
		require.True(t, ok)
		assert.Equal(t, "too_long", details["password"])

		in = signup("widepw")
		in.Password = strings.Repeat("é", 40)
		_, err = e.users.Create(ctx, in, nil)
		require.ErrorIs(t, err, services.ErrValidation)
		require.ErrorAs(t, err, &se)
		assert.Equal(t, map[string]string{"password": "too_long"}, se.Details)
	})
	t.Run("Should bound passwords set directly in bytes", func(t *testing.T) {
		u := e.user(t, "bytes", roles.Lecteur)
		err := e.users.SetPassword(ctx, u.ID, strings.Repeat("é", 40))
		require.ErrorIs(t, err, services.ErrValidation)
		assert.ErrorIs(t, e.users.SetPassword(ctx, u.ID, "short"), services.ErrValidation)
		require.NoError(t, e.users.SetPassword(ctx, u.ID, strings.Repeat("é", 36)))
	})
}

func TestUserService_RoleChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ag := policy.NewAuthGate(e.db, 16, time.Minute)
	users := services.NewUserService(e.db, e.tokens, ag, e.activity, e.notifications, logger.NewLogger(logger.TestConfig()))
	admin := e.user(t, "root", roles.Admin)
	agent := e.user(t, "miner", roles.AgentMinier)
	as := auth.WithUserID(ctx, agent.ID)

	require.NoError(t, ag.Check(as, gate.Requirement{Permission: roles.ExtractionAdd}))
	require.ErrorIs(t, ag.Check(as, gate.Requirement{Permission: roles.ExportValidate}), gate.ErrUnauthorized)

	t.Run("Should forbid users from changing their own role", func(t *testing.T) {
		douane := roles.Douane
		_, err := users.Update(ctx, agent.ID, services.UpdateUserInput{Role: &douane}, agent)
		assert.ErrorIs(t, err, services.ErrForbidden)
		active := false
		_, err = users.Update(ctx, agent.ID, services.UpdateUserInput{IsActive: &active}, agent)
		assert.ErrorIs(t, err, services.ErrForbidden)
	})
	t.Run("Should let users edit their own preferences", func(t *testing.T) {
		dark := true
		sameRole := roles.AgentMinier
		got, err := users.Update(ctx, agent.ID, services.UpdateUserInput{DarkMode: &dark, Role: &sameRole}, agent)
		require.NoError(t, err)
		assert.True(t, got.DarkMode)
	})
	t.Run("Should swap permissions immediately when an admin changes the role", func(t *testing.T) {
		douane := roles.Douane
		got, err := users.Update(ctx, agent.ID, services.UpdateUserInput{Role: &douane}, admin)
		require.NoError(t, err)
		assert.Equal(t, roles.Douane, got.Role)

		var profile models.Profile
		require.NoError(t, e.db.First(&profile, *got.ProfileID).Error)
		assert.Equal(t, string(roles.Douane), profile.Name)

		assert.ErrorIs(t, ag.Check(as, gate.Requirement{Permission: roles.ExtractionAdd}), gate.ErrUnauthorized)
		assert.ErrorIs(t, ag.Check(as, gate.Requirement{Permission: roles.SiteLogOperation}), gate.ErrUnauthorized)
		assert.NoError(t, ag.Check(as, gate.Requirement{Permission: roles.ExportValidate}))
		assert.NoError(t, ag.Check(as, gate.NeedRole(string(roles.Douane))))
	})
	t.Run("Should deny disabled users at once", func(t *testing.T) {
		require.NoError(t, users.Disable(ctx, agent.ID, admin))
		assert.ErrorIs(t, ag.Check(as, gate.Requirement{}), gate.ErrUnauthorized)
		assert.False(t, users.Active(ctx, agent.ID))
	})
}

func TestUserService_Authenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "jdoe", roles.Chauffeur)

	t.Run("Should accept username or email", func(t *testing.T) {
		got, err := e.users.Authenticate(ctx, "jdoe", "password123", "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		_, err = e.users.Authenticate(ctx, "JDOE@example.com", "password123", "")
		require.NoError(t, err)

		var stored models.User
		require.NoError(t, e.db.First(&stored, u.ID).Error)
		assert.Equal(t, "10.0.0.1", stored.LastLoginIP)

		var logins int64
		require.NoError(t, e.db.Model(&models.ActivityLog{}).Where("user_id = ? AND action = ?", u.ID, models.ActivityLogin).Count(&logins).Error)
		assert.EqualValues(t, 2, logins)
	})
	t.Run("Should refuse bad credentials without detail", func(t *testing.T) {
		_, err := e.users.Authenticate(ctx, "jdoe", "wrong", "")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
		assert.ErrorIs(t, err, gate.ErrUnauthenticated)
		_, err = e.users.Authenticate(ctx, "nobody", "password123", "")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	})
	t.Run("Should refuse disabled accounts", func(t *testing.T) {
		require.NoError(t, e.users.Disable(ctx, u.ID, nil))
		_, err := e.users.Authenticate(ctx, "jdoe", "password123", "")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	})
}

func TestUserService_PasswordReset(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "jdoe", roles.Lecteur)

	t.Run("Should stay silent for unknown addresses", func(t *testing.T) {
		assert.Empty(t, e.users.RequestPasswordReset(ctx, "nobody@example.com"))
		assert.Empty(t, e.mailer.Sent())
	})
	t.Run("Should reset once with the emailed token", func(t *testing.T) {
		token := e.users.RequestPasswordReset(ctx, " JDOE@example.com ")
		require.NotEmpty(t, token)
		sent := e.mailer.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, u.Email, sent[0].To)
		assert.Contains(t, sent[0].Body, token)

		var stored models.EmailNotification
		require.NoError(t, e.db.Where("recipient_email = ?", u.Email).Last(&stored).Error)
		assert.Equal(t, models.EmailSent, stored.Status)
		assert.NotContains(t, stored.Body, token)

		assert.ErrorIs(t, e.users.ConfirmPasswordReset(ctx, token, "short"), services.ErrValidation)
		require.NoError(t, e.users.ConfirmPasswordReset(ctx, token, "brand-new-password"))
		_, err := e.users.Authenticate(ctx, "jdoe", "brand-new-password", "")
		require.NoError(t, err)

		assert.ErrorIs(t, e.users.ConfirmPasswordReset(ctx, token, "another-password"), services.ErrValidation)
	})
	t.Run("Should reject other tokens", func(t *testing.T) {
		pair, err := e.tokens.IssuePair(u.ID)
		require.NoError(t, err)
		assert.ErrorIs(t, e.users.ConfirmPasswordReset(ctx, pair.Access, "whatever-password"), services.ErrValidation)
		assert.ErrorIs(t, e.users.ConfirmPasswordReset(ctx, "garbage", "whatever-password"), services.ErrValidation)
	})
}
