// Package importer applies the import policy around the codecs: decode,
// refuse the whole batch on any row error, resolve the voyage, persist record
// by record and announce what was stored. Export is the mirror.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sea-ice-obs/internal/codec"
	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/sea-ice-obs/internal/observability"
	"github.com/couchcryptid/sea-ice-obs/internal/store"
)

var (
	// ErrImportRejected is returned when any row failed validation. Nothing
	// is persisted; the report lists the row errors.
	ErrImportRejected = errors.New("import rejected")
	// ErrVoyageRequired is returned when the request names no voyage and the
	// file carries no voyage name.
	ErrVoyageRequired = errors.New("voyage required")
	// ErrPersistFailed is returned when the store failed part way through an
	// import. The report counts the records written before the failure.
	ErrPersistFailed = errors.New("persist observation")
)

// Publisher announces persisted observations.
type Publisher interface {
	Publish(ctx context.Context, records []domain.Observation) error
}

// ImportRequest is one uploaded file. VoyageID is optional for ASPeCt files
// whose preamble names the voyage.
type ImportRequest struct {
	VoyageID string
	Filename string
	Content  string
}

// ImportReport summarizes an import. On ErrImportRejected, Errors holds the
// row errors and nothing was persisted.
type ImportReport struct {
	Format    codec.Format      `json:"format"`
	VoyageID  string            `json:"voyage_id,omitempty"`
	Accepted  int               `json:"accepted"`
	Persisted int               `json:"persisted"`
	IDs       []string          `json:"ids"`
	Errors    []domain.RowError `json:"errors"`
}

// Export is an encoded voyage ready to be written out.
type Export struct {
	Filename    string
	ContentType string
	Content     string
	Records     int
}

// Service runs imports and exports against a record store.
type Service struct {
	store     store.Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Service. publisher may be nil to disable announcements.
func New(s store.Store, p Publisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: s, publisher: p, logger: logger, metrics: metrics}
}

// CheckReadiness reports whether the record store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		s.metrics.StoreUp.Set(0)
		return fmt.Errorf("record store: %w", err)
	}
	s.metrics.StoreUp.Set(1)
	return nil
}

// Preview decodes a file without persisting anything.
func (s *Service) Preview(filename, content string) codec.ImportResult {
	return s.decode(filename, content)
}

func (s *Service) decode(filename, content string) codec.ImportResult {
	start := time.Now()
	res := codec.Decode(filename, content)
	s.metrics.DecodeDuration.WithLabelValues(string(res.Format)).Observe(time.Since(start).Seconds())
	s.metrics.RowsAccepted.Add(float64(len(res.Observations)))
	s.metrics.RowsRejected.Add(float64(len(res.Errors)))
	return res
}

// Import decodes req and persists every accepted observation, or none if any
// row failed. Records are written one at a time; a store failure stops the
// import and the report counts what was already written.
func (s *Service) Import(ctx context.Context, req ImportRequest) (ImportReport, error) {
	res := s.decode(req.Filename, req.Content)
	report := ImportReport{
		Format:   res.Format,
		Accepted: len(res.Observations),
		IDs:      []string{},
		Errors:   res.Errors,
	}
	log := s.logger.With("filename", req.Filename, "format", res.Format)

	if !res.OK() {
		s.metrics.Imports.WithLabelValues(string(res.Format), "rejected").Inc()
		log.Warn("import rejected", "accepted", len(res.Observations), "rejected", len(res.Errors))
		return report, fmt.Errorf("%w: %d of %d rows failed validation",
			ErrImportRejected, len(res.Errors), len(res.Errors)+len(res.Observations))
	}

	voyage, err := s.resolveVoyage(ctx, req.VoyageID, res.Voyage)
	if err != nil {
		s.metrics.Imports.WithLabelValues(string(res.Format), "failed").Inc()
		return report, err
	}
	report.VoyageID = voyage.ID
	log = log.With("voyage_id", voyage.ID)

	importedAt := domain.Now()
	persisted := make([]domain.Observation, 0, len(res.Observations))
	for i, obs := range res.Observations {
		obs.VoyageID = voyage.ID
		obs.ImportedAt = importedAt

		created, err := s.store.CreateObservation(ctx, obs)
		if err != nil {
			s.metrics.Imports.WithLabelValues(string(res.Format), "failed").Inc()
			s.announce(ctx, log, persisted)
			log.Error("persist failed", "error", err, "persisted", len(persisted), "accepted", len(res.Observations))
			return report, fmt.Errorf("%w %d of %d: %w", ErrPersistFailed, i+1, len(res.Observations), err)
		}
		persisted = append(persisted, created)
		report.IDs = append(report.IDs, created.ID)
		report.Persisted++
		s.metrics.Persisted.Inc()
	}

	s.announce(ctx, log, persisted)
	s.metrics.Imports.WithLabelValues(string(res.Format), "accepted").Inc()
	log.Info("import complete", "persisted", report.Persisted)
	return report, nil
}

// resolveVoyage picks the target voyage: the explicit id, else the voyage
// named in the file (created on first sight).
func (s *Service) resolveVoyage(ctx context.Context, id string, meta *domain.VoyageMetadata) (domain.Voyage, error) {
	if id != "" {
		v, err := s.store.GetVoyage(ctx, id)
		if err != nil {
			return domain.Voyage{}, fmt.Errorf("resolve voyage: %w", err)
		}
		return v, nil
	}
	if meta == nil || meta.Name == "" {
		return domain.Voyage{}, ErrVoyageRequired
	}

	v, err := s.store.FindVoyageByName(ctx, meta.Name)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Voyage{}, fmt.Errorf("find voyage: %w", err)
	}

	v, err = s.store.CreateVoyage(ctx, *meta)
	if err != nil {
		return domain.Voyage{}, fmt.Errorf("create voyage: %w", err)
	}
	s.logger.Info("voyage created from file metadata", "voyage_id", v.ID, "name", v.Name)
	return v, nil
}

// announce publishes persisted records. Failures are logged and counted but
// never fail the import; the records are already stored.
func (s *Service) announce(ctx context.Context, log *slog.Logger, records []domain.Observation) {
	if s.publisher == nil || len(records) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, records); err != nil {
		s.metrics.PublishErrors.Inc()
		log.Warn("publish failed", "error", err, "count", len(records))
	}
}

// Export encodes every observation of a voyage, ordered by observation time.
func (s *Service) Export(ctx context.Context, voyageID string, format codec.Format) (Export, error) {
	voyage, err := s.store.GetVoyage(ctx, voyageID)
	if err != nil {
		return Export{}, fmt.Errorf("export: %w", err)
	}

	records, err := s.store.ListObservations(ctx, store.Filter{VoyageID: voyageID, Order: store.OrderObservedAt})
	if err != nil {
		return Export{}, fmt.Errorf("export: %w", err)
	}

	content, err := codec.Encode(format, &voyage.VoyageMetadata, records)
	if err != nil {
		return Export{}, err
	}

	s.metrics.Exports.WithLabelValues(string(format)).Inc()
	s.logger.Info("export complete", "voyage_id", voyageID, "format", format, "records", len(records))

	return Export{
		Filename:    codec.ExportFilename(&voyage.VoyageMetadata, format),
		ContentType: contentType(format),
		Content:     content,
		Records:     len(records),
	}, nil
}

func contentType(format codec.Format) string {
	if format == codec.FormatTabular {
		return "text/csv; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
