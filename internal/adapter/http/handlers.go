package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/sea-ice-obs/internal/codec"
	"github.com/couchcryptid/sea-ice-obs/internal/domain"
	"github.com/couchcryptid/sea-ice-obs/internal/importer"
	"github.com/couchcryptid/sea-ice-obs/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxListLimit = 1000

func (s *Server) handleCreateVoyage(w http.ResponseWriter, r *http.Request) {
	var meta domain.VoyageMetadata
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&meta); err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("decode voyage: %w", err))
		return
	}
	meta.Name = strings.TrimSpace(meta.Name)
	if meta.Name == "" {
		s.respondError(w, r, http.StatusBadRequest, errors.New("voyage name is required"))
		return
	}

	v, err := s.store.CreateVoyage(r.Context(), meta)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListVoyages(w http.ResponseWriter, r *http.Request) {
	voyages, err := s.store.ListVoyages(r.Context())
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, voyages)
}

func (s *Server) handleGetVoyage(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.GetVoyage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, v)
}

// handleImport serves both /imports and /voyages/{id}/imports. The body is the
// raw file text; the filename query parameter feeds format detection.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	content, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	report, err := s.importer.Import(r.Context(), importer.ImportRequest{
		VoyageID: chi.URLParam(r, "id"),
		Filename: r.URL.Query().Get("filename"),
		Content:  content,
	})
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusCreated, report)
	case errors.Is(err, importer.ErrImportRejected):
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, report)
	case errors.Is(err, importer.ErrPersistFailed):
		s.logFailure(r, http.StatusInternalServerError, err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, importFailure{Error: err.Error(), Report: report})
	default:
		s.respondError(w, r, statusFor(err), err)
	}
}

type importFailure struct {
	Error  string                `json:"error"`
	Report importer.ImportReport `json:"report"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	content, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.importer.Preview(r.URL.Query().Get("filename"), content))
}

func (s *Server) handleListObservations(w http.ResponseWriter, r *http.Request) {
	voyageID := chi.URLParam(r, "id")
	if _, err := s.store.GetVoyage(r.Context(), voyageID); err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}

	filter := store.Filter{
		VoyageID: voyageID,
		Observer: r.URL.Query().Get("observer"),
		Order:    store.OrderObservedAt,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q: must be 1-%d", raw, maxListLimit))
			return
		}
		filter.Limit = n
	}

	records, err := s.store.ListObservations(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, records)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := codec.FormatTabular
	if raw := r.URL.Query().Get("format"); raw != "" {
		f, err := codec.ParseFormat(raw)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, err)
			return
		}
		format = f
	}

	out, err := s.importer.Export(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("X-Record-Count", strconv.Itoa(out.Records))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out.Content) //nolint:errcheck // client went away
}

func (s *Server) handleGetObservation(w http.ResponseWriter, r *http.Request) {
	obs, err := s.store.GetObservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, obs)
}

func (s *Server) handleDeleteObservation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteObservation(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readUpload reads the request body up to the upload limit. It writes the
// error response itself and reports false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return "", false
		}
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return "", false
	}
	return string(body), true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrVoyageRequired), errors.Is(err, codec.ErrUnrecognizedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logFailure(r, status, err)
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) logFailure(r *http.Request, status int, err error) {
	log := s.logger.With(
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", middleware.GetReqID(r.Context()),
	)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	} else {
		log.Debug("request refused", "error", err)
	}
}
