package ingest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bissquit/fleet-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes caps CSV uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// Handler handles HTTP requests for telemetry ingestion.
type Handler struct {
	service *Service
}

// NewHandler creates a new ingest handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes registers the CSV upload route (admin only).
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/import/csv", h.ImportCSV)
}

// RegisterAPIClientRoutes registers the partner API ingestion route.
func (h *Handler) RegisterAPIClientRoutes(r chi.Router) {
	r.Post("/ingest/trips", h.IngestTrips)
}

// ImportCSV handles POST /import/csv. Expects a multipart form with the
// CSV under the "file" field.
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	count, err := h.service.ImportCSV(r.Context(), http.MaxBytesReader(w, file, maxUploadBytes))
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]int{"imported": count})
}

// IngestTripsRequest is the partner API payload: one or more trip objects.
type IngestTripsRequest struct {
	Trips []json.RawMessage `json:"trips"`
}

// IngestTrips handles POST /ingest/trips.
func (h *Handler) IngestTrips(w http.ResponseWriter, r *http.Request) {
	var req IngestTripsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Trips) == 0 {
		httputil.Error(w, http.StatusBadRequest, "trips must not be empty")
		return
	}

	count, err := h.service.IngestTrips(r.Context(), req.Trips)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusAccepted, map[string]int{"accepted": count})
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		httputil.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrEmptyFile, Status: http.StatusBadRequest},
		{Error: ErrMissingColumns, Status: http.StatusBadRequest},
	})
}
