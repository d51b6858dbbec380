package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
)

func measure(siteID uint, typ models.MeasurementType, v float64) services.MeasureInput {
	return services.MeasureInput{SiteID: siteID, MeasurementType: typ, Value: &v, Unit: "µg/m3"}
}

func TestEnvironmentService_RecordMeasure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t, "Mine A")
	officer := e.user(t, "officer", roles.Environnement)
	admin := e.user(t, "admin", roles.Admin)
	e.user(t, "agent", roles.AgentMinier)

	_, err := e.environment.CreateThreshold(ctx, services.ThresholdInput{
		MeasurementType: models.MeasurePM25, Warning: 50, Danger: 75, Critical: 100, Unit: "µg/m3",
	})
	require.NoError(t, err)

	countAlerts := func(t *testing.T) int64 {
		var n int64
		require.NoError(t, e.db.Model(&models.EnvironmentAlert{}).Count(&n).Error)
		return n
	}

	t.Run("Should raise nothing below warning", func(t *testing.T) {
		m, alert, err := e.environment.RecordMeasure(ctx, measure(site.ID, models.MeasurePM25, 30), officer)
		require.NoError(t, err)
		assert.NotZero(t, m.ID)
		assert.Nil(t, alert)
		assert.Zero(t, countAlerts(t))
	})
	t.Run("Should raise nothing without a threshold", func(t *testing.T) {
		_, alert, err := e.environment.RecordMeasure(ctx, measure(site.ID, models.MeasureNoise, 1e6), officer)
		require.NoError(t, err)
		assert.Nil(t, alert)
		assert.Zero(t, countAlerts(t))
	})
	t.Run("Should raise exactly one critical alert", func(t *testing.T) {
		m, alert, err := e.environment.RecordMeasure(ctx, measure(site.ID, models.MeasurePM25, 120), officer)
		require.NoError(t, err)
		require.NotNil(t, alert)
		assert.EqualValues(t, 1, countAlerts(t))
		assert.Equal(t, models.SeverityCritical, alert.Severity)
		assert.Equal(t, models.AlertActive, alert.Status)
		assert.Equal(t, "Alert PM2.5", alert.Title)
		assert.Equal(t, "critical threshold exceeded", alert.Description)
		assert.Equal(t, 100.0, alert.ThresholdValue)
		assert.Equal(t, 120.0, alert.ActualValue)
		assert.Equal(t, m.ID, alert.MeasureID)

		var recipients []uint
		require.NoError(t, e.db.Model(&models.Notification{}).Where("related_id = ?", alert.ID).
			Order("recipient_id").Pluck("recipient_id", &recipients).Error)
		assert.Equal(t, []uint{officer.ID, admin.ID}, recipients)

		var n models.Notification
		require.NoError(t, e.db.Where("recipient_id = ?", officer.ID).First(&n).Error)
		assert.Equal(t, models.PriorityCritical, n.Priority)
		assert.Equal(t, models.NotifyAlert, n.NotificationType)

		assert.Len(t, e.mailer.Sent(), 2)
		var sent int64
		require.NoError(t, e.db.Model(&models.EmailNotification{}).Where("status = ?", models.EmailSent).Count(&sent).Error)
		assert.EqualValues(t, 2, sent)
	})
	t.Run("Should classify danger and warning", func(t *testing.T) {
		_, alert, err := e.environment.RecordMeasure(ctx, measure(site.ID, models.MeasurePM25, 80), officer)
		require.NoError(t, err)
		assert.Equal(t, models.SeverityDanger, alert.Severity)
		_, alert, err = e.environment.RecordMeasure(ctx, measure(site.ID, models.MeasurePM25, 60), officer)
		require.NoError(t, err)
		assert.Equal(t, models.SeverityWarning, alert.Severity)
	})
	t.Run("Should reject unknown sites and types", func(t *testing.T) {
		_, _, err := e.environment.RecordMeasure(ctx, measure(999, models.MeasurePM25, 1), officer)
		assert.ErrorIs(t, err, services.ErrValidation)
		_, _, err = e.environment.RecordMeasure(ctx, measure(site.ID, "radon", 1), officer)
		assert.ErrorIs(t, err, services.ErrValidation)
		_, _, err = e.environment.RecordMeasure(ctx, services.MeasureInput{SiteID: site.ID, MeasurementType: models.MeasureCO2}, officer)
		assert.ErrorIs(t, err, services.ErrValidation)
	})
}

func TestEnvironmentService_EmailFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t, "Mine A")
	officer := e.user(t, "officer", roles.Environnement)
	e.mailer.err = errors.New("smtp down")

	_, err := e.environment.CreateThreshold(ctx, services.ThresholdInput{MeasurementType: models.MeasureCO2, Warning: 1, Danger: 2, Critical: 3})
	require.NoError(t, err)
	_, alert, err := e.environment.RecordMeasure(ctx, measure(site.ID, models.MeasureCO2, 5), officer)
	require.NoError(t, err)
	require.NotNil(t, alert)

	var email models.EmailNotification
	require.NoError(t, e.db.Where("recipient_email = ?", officer.Email).First(&email).Error)
	assert.Equal(t, models.EmailFailed, email.Status)
	assert.Equal(t, "smtp down", email.ErrorMessage)

	e.mailer.err = nil
	resent, err := e.notifications.ResendEmail(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmailSent, resent.Status)
	assert.NotNil(t, resent.SentAt)

	_, err = e.notifications.ResendEmail(ctx, email.ID)
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestEnvironmentService_Thresholds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("Should reject unordered limits", func(t *testing.T) {
		_, err := e.environment.CreateThreshold(ctx, services.ThresholdInput{MeasurementType: models.MeasurePM10, Warning: 10, Danger: 5, Critical: 20})
		assert.ErrorIs(t, err, services.ErrValidation)
	})
	t.Run("Should keep one threshold per type", func(t *testing.T) {
		th, err := e.environment.CreateThreshold(ctx, services.ThresholdInput{MeasurementType: models.MeasurePM10, Warning: 5, Danger: 10, Critical: 20})
		require.NoError(t, err)
		_, err = e.environment.CreateThreshold(ctx, services.ThresholdInput{MeasurementType: models.MeasurePM10, Warning: 1, Danger: 2, Critical: 3})
		assert.ErrorIs(t, err, services.ErrValidation)

		in := services.ThresholdInputFrom(th)
		in.Critical = 1
		_, err = e.environment.UpdateThreshold(ctx, th.ID, in)
		assert.ErrorIs(t, err, services.ErrValidation)
		in.Critical = 40
		got, err := e.environment.UpdateThreshold(ctx, th.ID, in)
		require.NoError(t, err)
		assert.Equal(t, 40.0, got.Critical)

		require.NoError(t, e.environment.DeleteThreshold(ctx, th.ID))
		_, err = e.environment.GetThreshold(ctx, th.ID)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestEnvironmentService_Alerts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t, "Mine A")
	officer := e.user(t, "officer", roles.Environnement)
	_, err := e.environment.CreateThreshold(ctx, services.ThresholdInput{MeasurementType: models.MeasureNoise, Warning: 70, Danger: 85, Critical: 100})
	require.NoError(t, err)

	_, first, err := e.environment.RecordMeasure(ctx, measure(site.ID, models.MeasureNoise, 90), officer)
	require.NoError(t, err)
	_, second, err := e.environment.RecordMeasure(ctx, measure(site.ID, models.MeasureNoise, 75), officer)
	require.NoError(t, err)

	t.Run("Should acknowledge active alerts once", func(t *testing.T) {
		got, err := e.environment.Acknowledge(ctx, second.ID, officer)
		require.NoError(t, err)
		assert.Equal(t, models.AlertAcknowledged, got.Status)
		require.NotNil(t, got.AssignedToID)
		assert.Equal(t, officer.ID, *got.AssignedToID)
		_, err = e.environment.Acknowledge(ctx, second.ID, officer)
		assert.ErrorIs(t, err, services.ErrConflict)
	})
	t.Run("Should list active alerts by default", func(t *testing.T) {
		list, err := e.environment.ListAlerts(ctx, services.AlertFilter{}, services.Page{})
		require.NoError(t, err)
		require.EqualValues(t, 1, list.Count)
		assert.Equal(t, first.ID, list.Items[0].ID)

		all, err := e.environment.ListAlerts(ctx, services.AlertFilter{Status: "all"}, services.Page{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, all.Count)

		_, err = e.environment.ListAlerts(ctx, services.AlertFilter{Status: "bogus"}, services.Page{})
		assert.ErrorIs(t, err, services.ErrValidation)
	})
	t.Run("Should resolve alerts once", func(t *testing.T) {
		got, err := e.environment.Resolve(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AlertResolved, got.Status)
		assert.NotNil(t, got.ResolvedAt)
		_, err = e.environment.Resolve(ctx, second.ID)
		assert.ErrorIs(t, err, services.ErrConflict)
		_, err = e.environment.Resolve(ctx, 999)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}
