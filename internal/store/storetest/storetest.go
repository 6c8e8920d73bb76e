// Package storetest holds behavior tests shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/sea-ice-obs/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

// Run exercises a store produced by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	domain.SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() { domain.SetClock(nil) })

	t.Run("observation round trip", func(t *testing.T) { testObservationRoundTrip(t, newStore(t)) })
	t.Run("get missing observation", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("list filters and order", func(t *testing.T) { testListFilters(t, newStore(t)) })
	t.Run("delete observation", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("voyages", func(t *testing.T) { testVoyages(t, newStore(t)) })
	t.Run("ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

func ptr[T any](v T) *T { return &v }

// voyage creates a voyage so observations have a valid owner in stores that
// enforce the reference.
func voyage(t *testing.T, s store.Store, name string) string {
	t.Helper()
	v, err := s.CreateVoyage(context.Background(), domain.VoyageMetadata{Name: name})
	require.NoError(t, err)
	return v.ID
}

func fullObservation(voyageID string) domain.Observation {
	return domain.Observation{
		VoyageID:              voyageID,
		ObservedAt:            time.Date(2026, 1, 6, 3, 7, 9, 0, time.UTC),
		Latitude:              -66.123456,
		Longitude:             111.000001,
		TotalIceConcentration: ptr(9.0),
		OpenWaterType:         "lead",
		Ice: domain.IceCategories{
			{
				Concentration:    ptr(6),
				IceType:          "FY",
				Thickness:        "120",
				Topography:       "R3",
				MeltPondCoverage: ptr(12.5),
				MeltPondDepth:    ptr(0.2),
			},
			nil,
			{IceType: "NI"},
		},
		AirTemp:       ptr(-8.5),
		WindDirection: ptr(225.0),
		CloudCover:    ptr(7),
		Weather:       "light snow",
		Observer:      "K. Smith",
		Comments:      "brash along the lead",
	}
}

func testObservationRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	voyageID := voyage(t, s, "round trip")
	in := fullObservation(voyageID)

	created, err := s.CreateObservation(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, testNow, created.ImportedAt)

	got, err := s.GetObservation(ctx, created.ID)
	require.NoError(t, err)

	want := in
	want.ID = created.ID
	want.ImportedAt = testNow
	assert.Equal(t, want, got)

	t.Run("stored values are not shared with the caller", func(t *testing.T) {
		*in.AirTemp = 99
		in.Ice[0].IceType = "changed"
		again, err := s.GetObservation(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, -8.5, *again.AirTemp)
		assert.Equal(t, "FY", again.Ice[0].IceType)
	})

	t.Run("explicit import time is kept", func(t *testing.T) {
		stamp := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
		obs := fullObservation(voyageID)
		obs.ImportedAt = stamp
		created, err := s.CreateObservation(ctx, obs)
		require.NoError(t, err)
		assert.Equal(t, stamp, created.ImportedAt)
	})
}

func testGetMissing(t *testing.T, s store.Store) {
	_, err := s.GetObservation(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testListFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b := voyage(t, s, "a"), voyage(t, s, "b")
	times := []time.Time{
		time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, ts := range times {
		_, err := s.CreateObservation(ctx, domain.Observation{
			VoyageID:   a,
			ObservedAt: ts,
			Latitude:   float64(-60 - i),
			Observer:   []string{"ann", "bob", "Ann"}[i],
		})
		require.NoError(t, err)
	}
	_, err := s.CreateObservation(ctx, domain.Observation{VoyageID: b, ObservedAt: times[0]})
	require.NoError(t, err)

	all, err := s.ListObservations(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byVoyage, err := s.ListObservations(ctx, store.Filter{VoyageID: a, Order: store.OrderObservedAt})
	require.NoError(t, err)
	require.Len(t, byVoyage, 3)
	assert.Equal(t, times[1], byVoyage[0].ObservedAt)
	assert.Equal(t, times[2], byVoyage[1].ObservedAt)
	assert.Equal(t, times[0], byVoyage[2].ObservedAt)

	inserted, err := s.ListObservations(ctx, store.Filter{VoyageID: a, Order: store.OrderImportedAt})
	require.NoError(t, err)
	require.Len(t, inserted, 3)
	assert.Equal(t, -60.0, inserted[0].Latitude)
	assert.Equal(t, -62.0, inserted[2].Latitude)

	byObserver, err := s.ListObservations(ctx, store.Filter{Observer: "ANN"})
	require.NoError(t, err)
	assert.Len(t, byObserver, 2)

	limited, err := s.ListObservations(ctx, store.Filter{VoyageID: a, Order: store.OrderObservedAt, Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, times[1], limited[0].ObservedAt)

	none, err := s.ListObservations(ctx, store.Filter{VoyageID: "zzz"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.CreateObservation(ctx, fullObservation(voyage(t, s, "delete")))
	require.NoError(t, err)

	require.NoError(t, s.DeleteObservation(ctx, created.ID))

	_, err = s.GetObservation(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.DeleteObservation(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testVoyages(t *testing.T, s store.Store) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	empty, err := s.ListVoyages(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	v, err := s.CreateVoyage(ctx, domain.VoyageMetadata{Name: "SIPEX III", Vessel: "Aurora", StartDate: &start})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, testNow, v.CreatedAt)

	got, err := s.GetVoyage(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v, got)
	assert.Nil(t, got.EndDate)

	found, err := s.FindVoyageByName(ctx, " sipex iii ")
	require.NoError(t, err)
	assert.Equal(t, v.ID, found.ID)

	_, err = s.FindVoyageByName(ctx, "other")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetVoyage(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.CreateVoyage(ctx, domain.VoyageMetadata{Name: "Second"})
	require.NoError(t, err)
	all, err := s.ListVoyages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "SIPEX III", all[0].Name)
	assert.Equal(t, "Second", all[1].Name)
}
