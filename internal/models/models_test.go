package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/sgm/internal/roles"
)

func TestUser(t *testing.T) {
	t.Run("Should fall back to the username when no name is set", func(t *testing.T) {
		u := &User{Username: "jdoe"}
		assert.Equal(t, "jdoe", u.FullName())
		u.FirstName, u.LastName = "Jane", "Doe"
		assert.Equal(t, "Jane Doe", u.FullName())
	})
	t.Run("Should report role membership", func(t *testing.T) {
		u := &User{ID: 7, Role: roles.Douane}
		assert.True(t, u.HasRole(roles.Admin, roles.Douane))
		assert.False(t, u.HasRole(roles.Admin))
		assert.False(t, u.IsAdmin())
		assert.Equal(t, uint(7), u.OwnerID())
	})
	t.Run("Should never serialize the password hash", func(t *testing.T) {
		b, err := json.Marshal(User{Username: "a", Password: "secret-hash"})
		require.NoError(t, err)
		assert.NotContains(t, string(b), "secret-hash")
	})
}

func TestExportStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to ExportStatus
		want     bool
	}{
		{ExportPending, ExportApproved, true},
		{ExportPending, ExportRejected, true},
		{ExportApproved, ExportShipped, true},
		{ExportShipped, ExportDelivered, true},
		{ExportPending, ExportShipped, false},
		{ExportApproved, ExportApproved, false},
		{ExportApproved, ExportRejected, false},
		{ExportRejected, ExportApproved, false},
		{ExportDelivered, ExportPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestExport_ComputeTotal(t *testing.T) {
	e := &Export{QuantityExported: decimal.RequireFromString("12.5"), UnitPrice: decimal.RequireFromString("80.10")}
	e.ComputeTotal()
	assert.Equal(t, "1001.25", e.TotalAmount.StringFixed(2))
}

func TestEnvironmentThreshold_Classify(t *testing.T) {
	th := &EnvironmentThreshold{Warning: 50, Danger: 75, Critical: 100}
	tests := []struct {
		name     string
		value    float64
		severity Severity
		limit    float64
		breached bool
	}{
		{"Should not breach below warning", 30, "", 0, false},
		{"Should not breach at exactly warning", 50, "", 0, false},
		{"Should classify warning", 60, SeverityWarning, 50, true},
		{"Should classify danger", 80, SeverityDanger, 75, true},
		{"Should classify critical", 120, SeverityCritical, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sev, limit, ok := th.Classify(tt.value)
			assert.Equal(t, tt.breached, ok)
			assert.Equal(t, tt.severity, sev)
			assert.Equal(t, tt.limit, limit)
		})
	}
	assert.True(t, th.Ordered())
	assert.False(t, (&EnvironmentThreshold{Warning: 10, Danger: 5, Critical: 20}).Ordered())
}

func TestTransport_Guards(t *testing.T) {
	tr := &Transport{Status: TransportPlanned}
	assert.True(t, tr.CanDepart())
	assert.True(t, tr.CanCancel())
	assert.False(t, tr.CanArrive())
	tr.Status = TransportInTransit
	assert.False(t, tr.CanDepart())
	assert.False(t, tr.CanCancel())
	assert.True(t, tr.CanArrive())
}

func TestDate(t *testing.T) {
	t.Run("Should round-trip YYYY-MM-DD", func(t *testing.T) {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(`"2024-03-15"`), &d))
		assert.Equal(t, 2024, d.Year())
		assert.Equal(t, time.March, d.Month())
		b, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, `"2024-03-15"`, string(b))
	})
	t.Run("Should reject other layouts", func(t *testing.T) {
		_, err := ParseDate("15/03/2024")
		assert.Error(t, err)
	})
	t.Run("Should scan database strings", func(t *testing.T) {
		var d Date
		require.NoError(t, d.Scan("2024-03-15 00:00:00+00:00"))
		assert.Equal(t, "2024-03-15", d.String())
	})
	t.Run("Should truncate to the UTC day", func(t *testing.T) {
		d := NewDate(time.Date(2024, 3, 15, 17, 4, 0, 0, time.UTC))
		assert.Equal(t, 0, d.Hour())
	})
}

func TestJSON(t *testing.T) {
	v, err := NewJSON(map[string]int{"total": 3})
	require.NoError(t, err)
	var back JSON
	require.NoError(t, back.Scan(`{"total":3}`))
	assert.JSONEq(t, string(v), string(back))
}

func TestMeasurementType_Label(t *testing.T) {
	assert.Equal(t, "PM2.5", MeasurePM25.Label())
	assert.True(t, MeasureNoise.Valid())
	assert.False(t, MeasurementType("radon").Valid())
	assert.Equal(t, "radon", MeasurementType("radon").Label())
}
