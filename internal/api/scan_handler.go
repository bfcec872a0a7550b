package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/internal/scanner"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
)

// Error messages returned to clients
const (
	msgInvalidTimeframe = "Invalid timeframe. Use 1h, 4h or 1d."
	msgInvalidVenue     = "Invalid venue. Use 1-64 letters, digits, '.', '_' or '-'."
	msgNoData           = "No data available for the given venue and timeframe"
	msgTimeout          = "Scan timed out"
	msgSourceFailure    = "Item sources are unavailable"
	msgCancelled        = "Request cancelled"
	msgInternal         = "Internal server error"
)

// Scanner runs one venue scan
type Scanner interface {
	Scan(ctx context.Context, venue string, timeframe models.Timeframe) (*scanner.ScanResult, error)
}

// ScanResponse is the body of a successful scan
type ScanResponse struct {
	Venue     string              `json:"venue"`
	Timeframe models.Timeframe    `json:"timeframe"`
	Count     int                 `json:"count"`
	Results   []models.ScoredItem `json:"results"`
}

// ScanHandler handles venue scan endpoints
type ScanHandler struct {
	scanner Scanner
	timeout time.Duration
}

// NewScanHandler creates a new scan handler. A positive timeout bounds
// each scan, including both source fetches.
func NewScanHandler(s Scanner, timeout time.Duration) *ScanHandler {
	return &ScanHandler{
		scanner: s,
		timeout: timeout,
	}
}

// Scan handles GET /scan and GET /api/v1/scan
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	venue, err := models.ParseVenue(query.Get("venue"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, msgInvalidVenue)
		return
	}

	timeframe, err := models.ParseTimeframe(query.Get("timeframe"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, msgInvalidTimeframe)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.scanner.Scan(ctx, venue, timeframe)
	if err != nil {
		status, message := statusForError(err)
		if status >= http.StatusInternalServerError {
			logger.WithContext(ctx).Warn("Scan failed",
				logger.String("venue", venue),
				logger.String("timeframe", timeframe.String()),
				logger.Int("status", status),
				logger.ErrorField(err),
			)
		}
		respondWithError(w, status, message)
		return
	}

	respondWithJSON(w, http.StatusOK, ScanResponse{
		Venue:     result.Venue,
		Timeframe: result.Timeframe,
		Count:     len(result.Items),
		Results:   result.Items,
	})
}

// ListTimeframes handles GET /timeframes
func (h *ScanHandler) ListTimeframes(w http.ResponseWriter, r *http.Request) {
	timeframes := models.Timeframes()
	out := make([]map[string]interface{}, 0, len(timeframes))
	for _, tf := range timeframes {
		out = append(out, map[string]interface{}{
			"timeframe": tf,
			"seconds":   int64(tf.Duration().Seconds()),
			"default":   tf == models.DefaultTimeframe,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"timeframes": out,
		"count":      len(out),
	})
}

// statusForError maps scan errors to an HTTP status and client message.
// Deadlines are checked before source failures because a timed out fetch
// is reported as both.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidTimeframe):
		return http.StatusBadRequest, msgInvalidTimeframe
	case errors.Is(err, models.ErrInvalidVenue):
		return http.StatusBadRequest, msgInvalidVenue
	case errors.Is(err, models.ErrNoDataAvailable):
		return http.StatusNotFound, msgNoData
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, msgCancelled
	case errors.Is(err, models.ErrSourceUnavailable):
		return http.StatusBadGateway, msgSourceFailure
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
