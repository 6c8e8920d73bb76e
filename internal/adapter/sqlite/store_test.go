package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/sea-ice-obs/internal/store"
	"github.com/couchcryptid/sea-ice-obs/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTestStore(t, filepath.Join(t.TempDir(), "obs.db"))
	})
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "obs.db")

	first, err := Open(ctx, path, slog.Default())
	require.NoError(t, err)
	v, err := first.CreateVoyage(ctx, domain.VoyageMetadata{Name: "persisted"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	got, err := second.GetVoyage(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Name)

	var count int
	require.NoError(t, second.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count, "migrations are applied once")
}

func TestCreateObservation_UnknownVoyage(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "obs.db"))

	_, err := s.CreateObservation(ctx, domain.Observation{
		VoyageID:   "no-such-voyage",
		ObservedAt: mustTime(t, "2026-01-05T14:30:00Z"),
		Latitude:   -65.25,
		Longitude:  110.5,
	})
	require.Error(t, err, "observations must reference a stored voyage")

	all, err := s.ListObservations(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	var fk int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "obs.db"), slog.Default())
	require.Error(t, err)
}

func TestTimeLayoutSortsAsText(t *testing.T) {
	a := formatTime(mustTime(t, "2026-01-01T00:00:00Z"))
	b := formatTime(mustTime(t, "2026-01-01T00:00:00.5Z"))
	assert.Less(t, a, b)
	assert.Len(t, a, len(b))
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := domain.RequireTimestamp("t", s)
	require.NoError(t, err)
	return v
}
