/*
handlers.go - HTTP API handlers for the cash-flow engine

PURPOSE:
  Exposes the analytics service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the service.

ENDPOINTS:
  GET    /health                  Liveness
  POST   /api/forecast            History + forecast for a branch
  POST   /api/forecast/upload     Same, from multipart CSV uploads
  POST   /api/simulate            Base vs adjusted forecast
  POST   /api/debit-orders        Upcoming recurring debits
  DELETE /api/cache               Prune the series cache now

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (branch, horizon 1..120, model)
  3. Call the analytics service
  4. Map the result to DTOs
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON {error, details} with HTTP status:
  - 400: Schema, empty series, missing file, invalid input
  - 404: Branch has no statements
  - 422: Adjustments outside the forecast horizon (adds horizon range)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/warp/cashflow-engine/analytics"
	"github.com/warp/cashflow-engine/cashflow"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/ingest"
	"github.com/warp/cashflow-engine/logger"
)

// DefaultMaxUploadBytes bounds a multipart upload request.
const DefaultMaxUploadBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service        *analytics.Service
	CacheRetention time.Duration
	MaxUploadBytes int64
}

// NewHandler creates a new handler over the service.
func NewHandler(svc *analytics.Service, retention time.Duration) *Handler {
	return &Handler{
		Service:        svc,
		CacheRetention: retention,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// FORECAST HANDLERS
// =============================================================================

// Forecast returns the branch's daily history and its projection.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	freq, err := forecastRequest(req.Branch, req.HorizonDays, req.Model, req.Holidays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	freq.Source.Files = req.Files
	freq.Bounds = cashflow.DateRange{From: req.FromDate, To: req.ToDate}

	res, err := h.Service.Forecast(r.Context(), freq)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toForecastResponse(res))
}

// ForecastUpload is Forecast over statements posted as multipart file
// parts. Form fields: branch, horizon_days, model, holidays, from_date,
// to_date. Uploads are never cached.
func (h *Handler) ForecastUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	var horizon *int
	if v := r.FormValue("horizon_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid horizon_days: %s", v), err)
			return
		}
		horizon = &n
	}
	var holidays bool
	if v := r.FormValue("holidays"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid holidays: %s", v), err)
			return
		}
		holidays = b
	}

	freq, err := forecastRequest(r.FormValue("branch"), horizon, r.FormValue("model"), holidays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	for _, field := range []struct {
		name string
		dst  *cashflow.Date
	}{{"from_date", &freq.Bounds.From}, {"to_date", &freq.Bounds.To}} {
		if err := field.dst.UnmarshalText([]byte(r.FormValue(field.name))); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", field.name), err)
			return
		}
	}

	uploads, err := readUploads(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded files", err)
		return
	}
	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "At least one CSV file is required", nil)
		return
	}
	freq.Source.Uploads = uploads

	res, err := h.Service.Forecast(r.Context(), freq)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toForecastResponse(res))
}

// Simulate overlays what-if adjustments on the base forecast.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	freq, err := forecastRequest(req.Branch, req.HorizonDays, req.Model, req.Holidays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	freq.Source.Files = req.Files
	freq.Bounds = cashflow.DateRange{From: req.BaseFromDate, To: req.BaseToDate}

	adjustments := make([]cashflow.Adjustment, len(req.Adjustments))
	for i, a := range req.Adjustments {
		if a.Date.IsZero() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Adjustment %d has no date", i), nil)
			return
		}
		adjustments[i] = cashflow.Adjustment{Date: a.Date, Delta: a.Delta, Label: a.Label}
	}

	res, err := h.Service.Simulate(r.Context(), analytics.SimulateRequest{
		ForecastRequest: freq,
		Adjustments:     adjustments,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSimulateResponse(res))
}

// =============================================================================
// DEBIT ORDER HANDLERS
// =============================================================================

// DebitOrders predicts recurring debits due soon.
func (h *Handler) DebitOrders(w http.ResponseWriter, r *http.Request) {
	var req DebitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Branch) == "" {
		writeError(w, http.StatusBadRequest, "branch is required", nil)
		return
	}

	dreq := analytics.DebitOrderRequest{
		Source:        ingest.Source{Branch: req.Branch, Files: req.Files},
		DueWindowDays: -1,
	}
	if req.LookbackMonths != nil {
		if *req.LookbackMonths < 1 {
			writeError(w, http.StatusBadRequest, "lookback_months must be positive", nil)
			return
		}
		dreq.LookbackMonths = *req.LookbackMonths
	}
	if req.DueWindowDays != nil {
		if *req.DueWindowDays < 0 {
			writeError(w, http.StatusBadRequest, "due_window_days must not be negative", nil)
			return
		}
		dreq.DueWindowDays = *req.DueWindowDays
	}

	res, err := h.Service.DebitOrders(r.Context(), dreq)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebitOrderResponse(res))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// PruneCache removes old series cache entries. ?retention=48h overrides the
// configured retention.
func (h *Handler) PruneCache(w http.ResponseWriter, r *http.Request) {
	retention := h.CacheRetention
	if v := r.URL.Query().Get("retention"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid retention: %s", v), err)
			return
		}
		retention = d
	}

	removed, err := h.Service.PruneCache(r.Context(), retention)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PruneResponse{Removed: removed, Retention: retention.String()})
}

// =============================================================================
// HELPERS
// =============================================================================

// forecastRequest validates the fields shared by every forecast endpoint.
func forecastRequest(branch string, horizon *int, model string, holidays bool) (analytics.ForecastRequest, error) {
	if strings.TrimSpace(branch) == "" {
		return analytics.ForecastRequest{}, errors.New("branch is required")
	}
	h := forecast.DefaultHorizon
	if horizon != nil {
		h = *horizon
	}
	if h < forecast.MinHorizon || h > forecast.MaxHorizon {
		return analytics.ForecastRequest{}, fmt.Errorf("horizon_days must be between %d and %d, got %d",
			forecast.MinHorizon, forecast.MaxHorizon, h)
	}
	m, err := forecast.ParseModel(model)
	if err != nil {
		return analytics.ForecastRequest{}, err
	}
	return analytics.ForecastRequest{
		Source:   ingest.Source{Branch: branch},
		Horizon:  h,
		Model:    m,
		Holidays: holidays,
	}, nil
}

// readUploads reads every file part, ordered by field name then position.
func readUploads(r *http.Request) ([]ingest.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	fields := make([]string, 0, len(r.MultipartForm.File))
	for name := range r.MultipartForm.File {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var uploads []ingest.Upload
	for _, field := range fields {
		for _, fh := range r.MultipartForm.File[field] {
			f, err := fh.Open()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fh.Filename, err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fh.Filename, err)
			}
			uploads = append(uploads, ingest.Upload{Name: fh.Filename, Data: data})
		}
	}
	return uploads, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps engine errors to status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var overlap *cashflow.NoOverlapError
	switch {
	case errors.As(err, &overlap):
		first, last := overlap.First, overlap.Last
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:        "No adjustment falls within the forecast horizon",
			Details:      err.Error(),
			HorizonStart: &first,
			HorizonEnd:   &last,
		})
	case cashflow.IsNotFound(err):
		writeError(w, http.StatusNotFound, "No statements found", err)
	case errors.Is(err, cashflow.ErrSchema):
		writeError(w, http.StatusBadRequest, "Statements are missing required columns", err)
	case errors.Is(err, cashflow.ErrEmptySeries):
		writeError(w, http.StatusBadRequest, "No transactions in the requested range", err)
	case errors.Is(err, cashflow.ErrFileNotFound):
		writeError(w, http.StatusBadRequest, "Statement file not found", err)
	case errors.Is(err, ingest.ErrInvalidBranch):
		writeError(w, http.StatusBadRequest, "Invalid branch", err)
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
