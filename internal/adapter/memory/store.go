// Package memory is an in-process record store. Nothing survives a restart;
// it backs tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/sea-ice-obs/internal/store"
	"github.com/google/uuid"
)

// Store keeps records in insertion order behind a RWMutex. Reads return
// copies.
type Store struct {
	mu           sync.RWMutex
	observations []domain.Observation
	voyages      []domain.Voyage
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) CreateObservation(_ context.Context, obs domain.Observation) (domain.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obs = obs.Clone()
	obs.ID = uuid.NewString()
	if obs.ImportedAt.IsZero() {
		obs.ImportedAt = domain.Now()
	}
	s.observations = append(s.observations, obs)
	return obs.Clone(), nil
}

func (s *Store) GetObservation(_ context.Context, id string) (domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.observations {
		if o.ID == id {
			return o.Clone(), nil
		}
	}
	return domain.Observation{}, fmt.Errorf("observation %s: %w", id, store.ErrNotFound)
}

func (s *Store) ListObservations(_ context.Context, f store.Filter) ([]domain.Observation, error) {
	s.mu.RLock()
	out := make([]domain.Observation, 0, len(s.observations))
	for _, o := range s.observations {
		if f.VoyageID != "" && o.VoyageID != f.VoyageID {
			continue
		}
		if f.Observer != "" && !strings.EqualFold(o.Observer, f.Observer) {
			continue
		}
		out = append(out, o.Clone())
	}
	s.mu.RUnlock()

	if f.Order == store.OrderObservedAt {
		slices.SortStableFunc(out, func(a, b domain.Observation) int {
			return a.ObservedAt.Compare(b.ObservedAt)
		})
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) DeleteObservation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.observations, func(o domain.Observation) bool { return o.ID == id })
	if i < 0 {
		return fmt.Errorf("observation %s: %w", id, store.ErrNotFound)
	}
	s.observations = slices.Delete(s.observations, i, i+1)
	return nil
}

func (s *Store) CreateVoyage(_ context.Context, meta domain.VoyageMetadata) (domain.Voyage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := domain.Voyage{ID: uuid.NewString(), VoyageMetadata: meta, CreatedAt: domain.Now()}
	s.voyages = append(s.voyages, v)
	return v, nil
}

func (s *Store) GetVoyage(_ context.Context, id string) (domain.Voyage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.voyages {
		if v.ID == id {
			return v, nil
		}
	}
	return domain.Voyage{}, fmt.Errorf("voyage %s: %w", id, store.ErrNotFound)
}

// FindVoyageByName matches names case-insensitively and returns the oldest
// match.
func (s *Store) FindVoyageByName(_ context.Context, name string) (domain.Voyage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name = strings.TrimSpace(name)
	for _, v := range s.voyages {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return domain.Voyage{}, fmt.Errorf("voyage %q: %w", name, store.ErrNotFound)
}

func (s *Store) ListVoyages(_ context.Context) ([]domain.Voyage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Voyage{}, s.voyages...), nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
