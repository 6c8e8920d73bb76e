// Package store defines the persistence contract for voyages and
// observations. Implementations live under internal/adapter.
package store

import (
	"context"
	"errors"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
)

// ErrNotFound is returned when a requested id does not exist.
var ErrNotFound = errors.New("not found")

// Order selects the sort order of ListObservations.
type Order string

const (
	// OrderObservedAt sorts by observation time, oldest first. Ties keep
	// insertion order.
	OrderObservedAt Order = "observed_at"
	// OrderImportedAt sorts by insertion, oldest first.
	OrderImportedAt Order = "imported_at"
)

// Filter narrows ListObservations. Zero values match everything.
type Filter struct {
	VoyageID string
	Observer string
	Order    Order
	Limit    int
}

// ObservationStore persists observations. Create assigns the record id and
// returns the stored copy.
type ObservationStore interface {
	CreateObservation(ctx context.Context, obs domain.Observation) (domain.Observation, error)
	GetObservation(ctx context.Context, id string) (domain.Observation, error)
	ListObservations(ctx context.Context, f Filter) ([]domain.Observation, error)
	DeleteObservation(ctx context.Context, id string) error
}

// VoyageStore persists voyages.
type VoyageStore interface {
	CreateVoyage(ctx context.Context, meta domain.VoyageMetadata) (domain.Voyage, error)
	GetVoyage(ctx context.Context, id string) (domain.Voyage, error)
	FindVoyageByName(ctx context.Context, name string) (domain.Voyage, error)
	ListVoyages(ctx context.Context) ([]domain.Voyage, error)
}

// Store is the full record store.
type Store interface {
	ObservationStore
	VoyageStore
	Ping(ctx context.Context) error
	Close() error
}
