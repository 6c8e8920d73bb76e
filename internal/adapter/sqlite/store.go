// Package sqlite persists voyages and observations in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/sea-ice-obs/internal/store"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a store.Store backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to the database at path, creating it if needed, and applies
// migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	// foreign_keys and busy_timeout are per connection, so they go in the DSN
	// and apply to every connection the pool opens.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragma journal_mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("sqlite store ready", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const observationColumns = `id, voyage_id, observed_at, latitude, longitude,
	total_ice_concentration, open_water_type, ice_json,
	air_temp, water_temp, wind_speed, wind_direction, cloud_cover,
	visibility, weather, observer, comments, imported_at`

func (s *Store) CreateObservation(ctx context.Context, obs domain.Observation) (domain.Observation, error) {
	obs.ID = uuid.NewString()
	if obs.ImportedAt.IsZero() {
		obs.ImportedAt = domain.Now()
	}

	ice, err := json.Marshal(obs.Ice)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("marshal ice categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO observations (`+observationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID,
		obs.VoyageID,
		formatTime(obs.ObservedAt),
		obs.Latitude,
		obs.Longitude,
		nullableFloat(obs.TotalIceConcentration),
		nullableString(obs.OpenWaterType),
		string(ice),
		nullableFloat(obs.AirTemp),
		nullableFloat(obs.WaterTemp),
		nullableFloat(obs.WindSpeed),
		nullableFloat(obs.WindDirection),
		nullableInt(obs.CloudCover),
		nullableString(obs.Visibility),
		nullableString(obs.Weather),
		nullableString(obs.Observer),
		nullableString(obs.Comments),
		formatTime(obs.ImportedAt),
	)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("insert observation: %w", err)
	}
	return s.GetObservation(ctx, obs.ID)
}

func (s *Store) GetObservation(ctx context.Context, id string) (domain.Observation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+observationColumns+` FROM observations WHERE id = ?`, id)
	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Observation{}, fmt.Errorf("observation %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return domain.Observation{}, fmt.Errorf("get observation: %w", err)
	}
	return obs, nil
}

func (s *Store) ListObservations(ctx context.Context, f store.Filter) ([]domain.Observation, error) {
	var (
		where []string
		args  []any
	)
	if f.VoyageID != "" {
		where = append(where, "voyage_id = ?")
		args = append(args, f.VoyageID)
	}
	if f.Observer != "" {
		where = append(where, "observer = ? COLLATE NOCASE")
		args = append(args, f.Observer)
	}

	query := `SELECT ` + observationColumns + ` FROM observations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Order == store.OrderObservedAt {
		query += " ORDER BY observed_at, rowid"
	} else {
		query += " ORDER BY rowid"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	out := []domain.Observation{}
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteObservation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM observations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete observation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("observation %s: %w", id, store.ErrNotFound)
	}
	return nil
}

const voyageColumns = `id, name, leader, captain, vessel, start_date, end_date, created_at`

func (s *Store) CreateVoyage(ctx context.Context, meta domain.VoyageMetadata) (domain.Voyage, error) {
	v := domain.Voyage{ID: uuid.NewString(), VoyageMetadata: meta, CreatedAt: domain.Now()}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO voyages (`+voyageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID,
		nullableString(v.Name),
		nullableString(v.Leader),
		nullableString(v.Captain),
		nullableString(v.Vessel),
		nullableTime(v.StartDate),
		nullableTime(v.EndDate),
		formatTime(v.CreatedAt),
	)
	if err != nil {
		return domain.Voyage{}, fmt.Errorf("insert voyage: %w", err)
	}
	return s.GetVoyage(ctx, v.ID)
}

func (s *Store) GetVoyage(ctx context.Context, id string) (domain.Voyage, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+voyageColumns+` FROM voyages WHERE id = ?`, id)
	v, err := scanVoyage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Voyage{}, fmt.Errorf("voyage %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return domain.Voyage{}, fmt.Errorf("get voyage: %w", err)
	}
	return v, nil
}

// FindVoyageByName matches names case-insensitively and returns the oldest
// match.
func (s *Store) FindVoyageByName(ctx context.Context, name string) (domain.Voyage, error) {
	name = strings.TrimSpace(name)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+voyageColumns+` FROM voyages WHERE name = ? COLLATE NOCASE ORDER BY rowid LIMIT 1`, name)
	v, err := scanVoyage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Voyage{}, fmt.Errorf("voyage %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return domain.Voyage{}, fmt.Errorf("find voyage: %w", err)
	}
	return v, nil
}

func (s *Store) ListVoyages(ctx context.Context) ([]domain.Voyage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+voyageColumns+` FROM voyages ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list voyages: %w", err)
	}
	defer rows.Close()

	out := []domain.Voyage{}
	for rows.Next() {
		v, err := scanVoyage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voyage: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voyages: %w", err)
	}
	return out, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanObservation(row scanner) (domain.Observation, error) {
	var (
		obs                                 domain.Observation
		observedAt, importedAt, iceJSON     string
		total, air, water, speed, direction sql.NullFloat64
		cloud                               sql.NullInt64
		openWater, visibility, weather      sql.NullString
		observer, comments                  sql.NullString
	)
	err := row.Scan(
		&obs.ID, &obs.VoyageID, &observedAt, &obs.Latitude, &obs.Longitude,
		&total, &openWater, &iceJSON,
		&air, &water, &speed, &direction, &cloud,
		&visibility, &weather, &observer, &comments, &importedAt,
	)
	if err != nil {
		return domain.Observation{}, err
	}

	if obs.ObservedAt, err = parseTime(observedAt); err != nil {
		return domain.Observation{}, err
	}
	if obs.ImportedAt, err = parseTime(importedAt); err != nil {
		return domain.Observation{}, err
	}
	if err := json.Unmarshal([]byte(iceJSON), &obs.Ice); err != nil {
		return domain.Observation{}, fmt.Errorf("decode ice categories: %w", err)
	}

	obs.TotalIceConcentration = floatPtr(total)
	obs.OpenWaterType = openWater.String
	obs.AirTemp = floatPtr(air)
	obs.WaterTemp = floatPtr(water)
	obs.WindSpeed = floatPtr(speed)
	obs.WindDirection = floatPtr(direction)
	obs.CloudCover = intPtr(cloud)
	obs.Visibility = visibility.String
	obs.Weather = weather.String
	obs.Observer = observer.String
	obs.Comments = comments.String
	return obs, nil
}

func scanVoyage(row scanner) (domain.Voyage, error) {
	var (
		v                             domain.Voyage
		name, leader, captain, vessel sql.NullString
		start, end                    sql.NullString
		created                       string
	)
	if err := row.Scan(&v.ID, &name, &leader, &captain, &vessel, &start, &end, &created); err != nil {
		return domain.Voyage{}, err
	}

	var err error
	if v.CreatedAt, err = parseTime(created); err != nil {
		return domain.Voyage{}, err
	}
	if v.StartDate, err = parseNullTime(start); err != nil {
		return domain.Voyage{}, err
	}
	if v.EndDate, err = parseNullTime(end); err != nil {
		return domain.Voyage{}, err
	}
	v.Name = name.String
	v.Leader = leader.String
	v.Captain = captain.String
	v.Vessel = vessel.String
	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return formatTime(*v)
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
