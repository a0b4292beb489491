// Package api provides the HTTP message contract for the Scamometer
// analysis service.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/NoCodeNode/scamometer/internal/analysis"
	"github.com/NoCodeNode/scamometer/internal/batch"
	"github.com/NoCodeNode/scamometer/internal/model"
	"github.com/NoCodeNode/scamometer/internal/webhook"
)

// defaultMaxBodySize caps request bodies at 1 MiB
const defaultMaxBodySize int64 = 1 << 20

// Analyzer runs the per-URL analysis pipeline
type Analyzer interface {
	Run(ctx context.Context, tabID int, url string) (*analysis.Result, error)
}

// BatchController drives the durable batch queue
type BatchController interface {
	Start(ctx context.Context, urls []string) error
	Pause() error
	Resume(ctx context.Context) error
	Status() *batch.Snapshot
	Results() *batch.Results
}

// AnalysisReader exposes stored analysis results
type AnalysisReader interface {
	Get(rawURL string) (*analysis.Result, bool, error)
}

// Handler manages API endpoints
type Handler struct {
	analyzer    Analyzer
	batches     BatchController
	results     AnalysisReader
	maxBodySize int64
}

// NewHandler wires the API endpoints to their services
func NewHandler(analyzer Analyzer, batches BatchController, results AnalysisReader) *Handler {
	return &Handler{
		analyzer:    analyzer,
		batches:     batches,
		results:     results,
		maxBodySize: defaultMaxBodySize,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// handleHealth returns service health status
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "scamometer",
	})
}

// AnalyzeRequest asks for a fresh analysis of a single URL
type AnalyzeRequest struct {
	// URL is the full URL to analyze
	URL string `json:"url"`
}

// AnalyzeResponse carries the analysis outcome
type AnalyzeResponse struct {
	// OK indicates whether the analysis completed
	OK bool `json:"ok"`
	// Data holds the result when successful
	Data *analysis.Result `json:"data,omitempty"`
	// Error is the normalized error payload on failure
	Error *Error `json:"error,omitempty"`
}

// handleAnalyze runs the analysis pipeline synchronously for one URL
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var req AnalyzeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errCodeInvalidRequest, ErrInvalidRequestBody.Error())
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, errCodeValidation, ErrURLRequired.Error())
		return
	}

	result, err := h.analyzer.Run(r.Context(), 0, req.URL)
	if err != nil {
		status := http.StatusInternalServerError
		code := errCodeInternal

		switch {
		case errors.Is(err, model.ErrAuthentication), errors.Is(err, model.ErrMissingAPIKey):
			status = http.StatusUnauthorized
			code = errCodeAuth
		case errors.Is(err, model.ErrRequestTimeout),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
			code = errCodeTimeout
		}

		respondError(w, status, code, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{OK: true, Data: result})
}

// handleGetAnalysis returns the stored result for a URL, if any
func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		respondError(w, http.StatusBadRequest, errCodeValidation, ErrURLRequired.Error())
		return
	}

	result, ok, err := h.results.Get(rawURL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		return
	}

	if !ok {
		respondError(w, http.StatusNotFound, errCodeNotFound, ErrAnalysisNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{OK: true, Data: result})
}

// WebhookTestRequest probes a webhook endpoint before enabling deliveries
type WebhookTestRequest struct {
	// URL is the webhook endpoint to probe
	URL string `json:"url"`
	// Auth is an optional Authorization header value
	Auth string `json:"auth,omitempty"`
}

// WebhookTestResponse carries the probe outcome
type WebhookTestResponse struct {
	OK   bool                `json:"ok"`
	Data *webhook.TestResult `json:"data,omitempty"`
	// Error is the normalized error payload when the request is malformed
	Error *Error `json:"error,omitempty"`
}

// handleWebhookTest sends a probe payload to a candidate webhook endpoint.
// A rejected probe is still a 200; the outcome lives in the result body.
func (h *Handler) handleWebhookTest(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var req WebhookTestRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errCodeInvalidRequest, ErrInvalidRequestBody.Error())
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, errCodeValidation, ErrURLRequired.Error())
		return
	}

	result := webhook.Test(r.Context(), req.URL, req.Auth)

	writeJSON(w, http.StatusOK, WebhookTestResponse{OK: true, Data: &result})
}
