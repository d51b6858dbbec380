package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/services"
)

func TestTransportService_StateMachine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t, "Mine A")
	x := e.extraction(t, site.ID, "100", models.ExtractionCompleted)

	t.Run("Should plan transports with a uuid QR code", func(t *testing.T) {
		tr := e.transport(t, x.ID)
		assert.Equal(t, models.TransportPlanned, tr.Status)
		_, err := uuid.Parse(tr.QRCode)
		assert.NoError(t, err)
	})
	t.Run("Should refuse a second departure", func(t *testing.T) {
		tr := e.transport(t, x.ID)
		got, err := e.transports.RecordDeparture(ctx, tr.QRCode)
		require.NoError(t, err)
		assert.Equal(t, models.TransportInTransit, got.Status)
		require.NotNil(t, got.DepartureDate)
		departed := *got.DepartureDate

		_, err = e.transports.RecordDeparture(ctx, tr.QRCode)
		assert.ErrorIs(t, err, services.ErrConflict)
		assert.EqualError(t, err, "departure cannot be recorded")

		after, err := e.transports.Get(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TransportInTransit, after.Status)
		assert.True(t, departed.Equal(*after.DepartureDate))
	})
	t.Run("Should refuse a second arrival", func(t *testing.T) {
		tr := e.transport(t, x.ID)
		require.NoError(t, e.db.Model(tr).Update("qr_code", "abc123").Error)

		_, err := e.transports.RecordDeparture(ctx, "abc123")
		require.NoError(t, err)
		got, err := e.transports.RecordArrival(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, models.TransportArrived, got.Status)
		require.NotNil(t, got.ArrivalDate)

		_, err = e.transports.RecordArrival(ctx, "abc123")
		assert.ErrorIs(t, err, services.ErrConflict)
		assert.EqualError(t, err, "transport is not in transit")

		after, err := e.transports.GetByQR(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, models.TransportArrived, after.Status)
	})
	t.Run("Should refuse an arrival before departure", func(t *testing.T) {
		tr := e.transport(t, x.ID)
		_, err := e.transports.RecordArrival(ctx, tr.QRCode)
		assert.ErrorIs(t, err, services.ErrConflict)
	})
	t.Run("Should answer not found for unknown QR codes", func(t *testing.T) {
		_, err := e.transports.RecordDeparture(ctx, "nope")
		assert.ErrorIs(t, err, services.ErrNotFound)
		assert.EqualError(t, err, "transport not found")
		_, err = e.transports.RecordArrival(ctx, "")
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
	t.Run("Should cancel planned transports only", func(t *testing.T) {
		tr := e.transport(t, x.ID)
		got, err := e.transports.Cancel(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TransportCancelled, got.Status)
		_, err = e.transports.Cancel(ctx, tr.ID)
		assert.ErrorIs(t, err, services.ErrConflict)
		_, err = e.transports.RecordDeparture(ctx, tr.QRCode)
		assert.ErrorIs(t, err, services.ErrConflict)
	})
	t.Run("Should keep the QR code on update", func(t *testing.T) {
		tr := e.transport(t, x.ID)
		in := services.TransportInputFrom(tr)
		in.Destination = "Conakry"
		got, err := e.transports.Update(ctx, tr.ID, in)
		require.NoError(t, err)
		assert.Equal(t, tr.QRCode, got.QRCode)
		assert.Equal(t, "Conakry", got.Destination)
		assert.Equal(t, models.TransportPlanned, got.Status)
	})
}

func TestTransportService_Locations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t, "Mine A")
	tr := e.transport(t, e.extraction(t, site.ID, "10", models.ExtractionCompleted).ID)

	_, err := e.transports.AddLocation(ctx, tr.ID, services.LocationInput{Latitude: 10.5, Longitude: -13.7})
	require.NoError(t, err)
	_, err = e.transports.AddLocation(ctx, tr.ID, services.LocationInput{Latitude: 10.6, Longitude: -13.6})
	require.NoError(t, err)
	_, err = e.transports.AddLocation(ctx, tr.ID, services.LocationInput{Latitude: 120})
	assert.ErrorIs(t, err, services.ErrValidation)

	locs, err := e.transports.Locations(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, 10.5, locs[0].Latitude)

	_, err = e.transports.Locations(ctx, 999)
	assert.ErrorIs(t, err, services.ErrNotFound)

	t.Run("Should append after arrival", func(t *testing.T) {
		arrived := e.transport(t, e.extraction(t, site.ID, "5", models.ExtractionCompleted).ID)
		_, err := e.transports.RecordDeparture(ctx, arrived.QRCode)
		require.NoError(t, err)
		got, err := e.transports.RecordArrival(ctx, arrived.QRCode)
		require.NoError(t, err)
		require.Equal(t, models.TransportArrived, got.Status)

		_, err = e.transports.AddLocation(ctx, arrived.ID, services.LocationInput{Latitude: 9.5, Longitude: -13.7})
		require.NoError(t, err)
		locs, err := e.transports.Locations(ctx, arrived.ID)
		require.NoError(t, err)
		assert.Len(t, locs, 1)
	})
	t.Run("Should append after cancellation", func(t *testing.T) {
		cancelled := e.transport(t, e.extraction(t, site.ID, "5", models.ExtractionCompleted).ID)
		got, err := e.transports.Cancel(ctx, cancelled.ID)
		require.NoError(t, err)
		require.Equal(t, models.TransportCancelled, got.Status)

		_, err = e.transports.AddLocation(ctx, cancelled.ID, services.LocationInput{Latitude: 9.6, Longitude: -13.6})
		require.NoError(t, err)
		locs, err := e.transports.Locations(ctx, cancelled.ID)
		require.NoError(t, err)
		assert.Len(t, locs, 1)
	})
}

func TestTruckService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	truck, err := e.trucks.Create(ctx, services.TruckInput{RegistrationNumber: " rc-1234-a ", CapacityTonnes: dec("30")})
	require.NoError(t, err)
	assert.Equal(t, "RC-1234-A", truck.RegistrationNumber)
	assert.Equal(t, models.TruckActive, truck.Status)

	_, err = e.trucks.Create(ctx, services.TruckInput{RegistrationNumber: "RC-1234-A"})
	assert.ErrorIs(t, err, services.ErrValidation)

	agent := e.user(t, "agent", "agent_minier")
	_, err = e.trucks.Create(ctx, services.TruckInput{RegistrationNumber: "RC-2", DriverID: &agent.ID})
	assert.ErrorIs(t, err, services.ErrValidation)

	require.NoError(t, e.trucks.Delete(ctx, truck.ID))
	_, err = e.trucks.Get(ctx, truck.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
