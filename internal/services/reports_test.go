package services_test

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
)

func TestReportService_Generate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", roles.Admin)
	site := e.site(t, "Mine A")
	e.extraction(t, site.ID, "100", models.ExtractionCompleted)
	e.extraction(t, site.ID, "30", models.ExtractionPlanned)
	_, err := e.extractions.Record(ctx, services.ExtractionInput{
		SiteID: site.ID, ExtractionDate: day(2023, 12, 31), QuantityTonnes: dec("999"), Status: models.ExtractionCompleted,
	}, nil)
	require.NoError(t, err)

	march := services.ReportInput{StartDate: day(2024, 3, 1), EndDate: day(2024, 3, 31), Format: models.FormatCSV}

	t.Run("Should store the extraction report of the period", func(t *testing.T) {
		rep, err := e.reports.GenerateExtractionReport(ctx, march, admin)
		require.NoError(t, err)
		assert.Equal(t, "Extraction report 2024-03-01 to 2024-03-31", rep.Title)
		assert.Equal(t, models.ReportExtractionSummary, rep.ReportType)
		assert.Equal(t, "reports/extraction-report-2024-03-01-to-2024-03-31-"+strconv.FormatUint(uint64(rep.ID), 10)+".csv", rep.FilePath)

		content, err := afero.ReadFile(e.fs, rep.FilePath)
		require.NoError(t, err)
		text := string(content)
		assert.Contains(t, text, "Mine A")
		assert.Contains(t, text, "130.00")
		assert.NotContains(t, text, "999")

		file, err := e.reports.Open(ctx, rep.ID, admin)
		require.NoError(t, err)
		assert.Equal(t, content, file.Content)
		assert.Equal(t, "text/csv", file.ContentType)
	})
	t.Run("Should default to pdf", func(t *testing.T) {
		rep, err := e.reports.GenerateExtractionReport(ctx, services.ReportInput{StartDate: march.StartDate, EndDate: march.EndDate}, admin)
		require.NoError(t, err)
		assert.Equal(t, models.FormatPDF, rep.Format)
		content, err := afero.ReadFile(e.fs, rep.FilePath)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(content), "%PDF"))
	})
	t.Run("Should reject inverted periods and unknown formats", func(t *testing.T) {
		_, err := e.reports.GenerateExportReport(ctx, services.ReportInput{StartDate: march.EndDate, EndDate: march.StartDate}, admin)
		assert.ErrorIs(t, err, services.ErrValidation)
		_, err = e.reports.GenerateExportReport(ctx, services.ReportInput{StartDate: march.StartDate, EndDate: march.EndDate, Format: "docx"}, admin)
		assert.ErrorIs(t, err, services.ErrValidation)
		_, err = e.reports.GenerateExportReport(ctx, services.ReportInput{EndDate: march.EndDate}, admin)
		assert.ErrorIs(t, err, services.ErrValidation)
	})
	t.Run("Should summarize exports as json", func(t *testing.T) {
		tr := e.transport(t, e.extraction(t, site.ID, "10", models.ExtractionCompleted).ID)
		e.export(t, tr.ID, "EXP-1")
		now := time.Now().UTC()
		rep, err := e.reports.GenerateExportReport(ctx, services.ReportInput{
			StartDate: models.NewDate(now.AddDate(0, 0, -2)), EndDate: models.NewDate(now.AddDate(0, 0, 2)), Format: models.FormatJSON,
		}, admin)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(rep.Title, "Export report "))

		content, err := afero.ReadFile(e.fs, rep.FilePath)
		require.NoError(t, err)
		assert.True(t, json.Valid(content))
		assert.Contains(t, string(content), "EXP-1")
		assert.Contains(t, string(content), "1001.25")
	})
	t.Run("Should delete the report file", func(t *testing.T) {
		rep, err := e.reports.GenerateExtractionReport(ctx, march, admin)
		require.NoError(t, err)
		require.NoError(t, e.reports.Delete(ctx, rep.ID))
		ok, err := afero.Exists(e.fs, rep.FilePath)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = e.reports.Open(ctx, rep.ID, admin)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestDashboardService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin", roles.Admin)
	driver := e.user(t, "driver", roles.Chauffeur)
	site := e.site(t, "Mine A")
	closed := e.site(t, "Old pit")
	_, err := e.sites.Update(ctx, closed.ID, func() services.SiteInput {
		in := services.SiteInputFrom(closed)
		in.Status = models.SiteClosed
		return in
	}(), admin)
	require.NoError(t, err)

	x := e.extraction(t, site.ID, "100", models.ExtractionCompleted)
	e.extraction(t, site.ID, "30", models.ExtractionPlanned)
	tr, err := e.transports.Create(ctx, services.TransportInput{ExtractionID: x.ID, DriverID: &driver.ID, QuantityTransported: dec("20")})
	require.NoError(t, err)
	_, err = e.transports.RecordDeparture(ctx, tr.QRCode)
	require.NoError(t, err)
	e.export(t, tr.ID, "EXP-1")
	e.export(t, tr.ID, "EXP-2")

	t.Run("Should summarize the whole supply chain", func(t *testing.T) {
		sum, err := e.dashboard.Summary(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, sum.TotalSites)
		assert.EqualValues(t, 2, sum.TotalExtractions)
		assert.Equal(t, "130.00", sum.TotalExtractionVolume.StringFixed(2))
		assert.EqualValues(t, 1, sum.ActiveTransports)
		assert.EqualValues(t, 2, sum.TotalExports)
		assert.Equal(t, "2002.50", sum.ExportRevenue.StringFixed(2))
	})
	t.Run("Should bump the version when refreshing a period again", func(t *testing.T) {
		period := services.PeriodInput{PeriodStart: day(2024, 3, 1), PeriodEnd: day(2024, 3, 31)}
		first, err := e.dashboard.RefreshMetrics(ctx, period, admin)
		require.NoError(t, err)
		require.Len(t, first, 10)
		for _, m := range first {
			assert.EqualValues(t, 1, m.Version)
		}
		second, err := e.dashboard.RefreshMetrics(ctx, period, admin)
		require.NoError(t, err)
		for i, m := range second {
			assert.Equal(t, first[i].ID, m.ID)
			assert.EqualValues(t, 2, m.Version)
		}

		var total struct {
			Count    int    `json:"count"`
			Quantity string `json:"quantity"`
		}
		require.NoError(t, json.Unmarshal(second[0].Value, &total))
		assert.Equal(t, 2, total.Count)
		assert.Equal(t, "130", total.Quantity)

		list, err := e.dashboard.ListMetrics(ctx, services.MetricFilter{MetricType: models.MetricSiteActive}, services.Page{})
		require.NoError(t, err)
		require.EqualValues(t, 1, list.Count)
		assert.JSONEq(t, "1", string(list.Items[0].Value))

		_, err = e.dashboard.RefreshMetrics(ctx, services.PeriodInput{PeriodStart: period.PeriodEnd, PeriodEnd: period.PeriodStart}, admin)
		assert.ErrorIs(t, err, services.ErrValidation)
	})
	t.Run("Should gather each landing's figures", func(t *testing.T) {
		data, err := e.dashboard.Landing(ctx, roles.LandingFor(driver.Role), driver)
		require.NoError(t, err)
		assert.Equal(t, "driver", data["landing"])
		assert.Len(t, data["my_transports"], 1)

		data, err = e.dashboard.Landing(ctx, roles.LandingFor(admin.Role), admin)
		require.NoError(t, err)
		assert.EqualValues(t, 2, data["total_users"])

		data, err = e.dashboard.Landing(ctx, roles.LandingFor("unknown"), driver)
		require.NoError(t, err)
		assert.Equal(t, "viewer", data["landing"])
		assert.Contains(t, data, "summary")
	})
}

func TestNotificationService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", roles.Douane)
	bob := e.user(t, "bob", roles.Douane)
	e.user(t, "carol", roles.Lecteur)

	ids, err := e.notifications.NotifyRoles(e.db, services.Message{Title: "Hello", Body: "World", Type: models.NotifySystem, Priority: models.PriorityLow}, roles.Douane)
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, err = e.notifications.NotifyRoles(e.db, services.Message{Title: "Again", Type: models.NotifySystem, Priority: models.PriorityLow}, roles.Douane)
	require.NoError(t, err)

	n, err := e.notifications.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, err := e.notifications.List(ctx, alice.ID, true, services.Page{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.NoError(t, e.notifications.MarkAsRead(ctx, &list.Items[0]))
	assert.True(t, list.Items[0].IsRead)

	changed, err := e.notifications.MarkAllAsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	n, err = e.notifications.CountUnread(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = e.notifications.Get(ctx, 9999)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
