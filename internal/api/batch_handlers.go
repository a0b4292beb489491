package api

import (
	"errors"
	"net/http"

	"github.com/NoCodeNode/scamometer/internal/batch"
)

// BatchStartRequest queues a list of URLs for sequential analysis
type BatchStartRequest struct {
	// URLs is the queue, processed strictly in order
	URLs []string `json:"urls"`
}

// BatchResponse is the generic acknowledgement for batch commands
type BatchResponse struct {
	OK    bool   `json:"ok"`
	Error *Error `json:"error,omitempty"`
}

// BatchStatusResponse carries the latest progress snapshot
type BatchStatusResponse struct {
	OK   bool            `json:"ok"`
	Data *batch.Snapshot `json:"data,omitempty"`
	// Error is the normalized error payload when no batch exists
	Error *Error `json:"error,omitempty"`
}

// BatchResultsResponse carries the aggregated item outcomes
type BatchResultsResponse struct {
	OK    bool           `json:"ok"`
	Data  *batch.Results `json:"data,omitempty"`
	Error *Error         `json:"error,omitempty"`
}

// handleBatchStart creates and starts a new batch job
func (h *Handler) handleBatchStart(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var req BatchStartRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errCodeInvalidRequest, ErrInvalidRequestBody.Error())
		return
	}

	if len(req.URLs) == 0 {
		respondError(w, http.StatusBadRequest, errCodeValidation, ErrURLsRequired.Error())
		return
	}

	if err := h.batches.Start(r.Context(), req.URLs); err != nil {
		status := http.StatusInternalServerError
		code := errCodeInternal

		switch {
		case errors.Is(err, batch.ErrBatchActive):
			status = http.StatusConflict
			code = errCodeConflict
		case errors.Is(err, batch.ErrNoURLs):
			status = http.StatusBadRequest
			code = errCodeValidation
		}

		respondError(w, status, code, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, BatchResponse{OK: true})
}

// handleBatchPause stops the batch after the in-flight item is cancelled
func (h *Handler) handleBatchPause(w http.ResponseWriter, r *http.Request) {
	if err := h.batches.Pause(); err != nil {
		status := http.StatusInternalServerError
		code := errCodeInternal

		if errors.Is(err, batch.ErrNoBatch) {
			status = http.StatusNotFound
			code = errCodeNotFound
		}

		respondError(w, status, code, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, BatchResponse{OK: true})
}

// handleBatchResume re-enters the queue from persisted state
func (h *Handler) handleBatchResume(w http.ResponseWriter, r *http.Request) {
	if err := h.batches.Resume(r.Context()); err != nil {
		status := http.StatusInternalServerError
		code := errCodeInternal

		switch {
		case errors.Is(err, batch.ErrNoBatch):
			status = http.StatusNotFound
			code = errCodeNotFound
		case errors.Is(err, batch.ErrNotPaused):
			status = http.StatusConflict
			code = errCodeConflict
		}

		respondError(w, status, code, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, BatchResponse{OK: true})
}

// handleBatchStatus returns the latest progress snapshot
func (h *Handler) handleBatchStatus(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.batches.Status()
	if snapshot == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, batch.ErrNoBatch.Error())
		return
	}

	writeJSON(w, http.StatusOK, BatchStatusResponse{OK: true, Data: snapshot})
}

// handleBatchResults returns the aggregated outcomes for the current job
func (h *Handler) handleBatchResults(w http.ResponseWriter, _ *http.Request) {
	results := h.batches.Results()
	if results == nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, batch.ErrNoBatch.Error())
		return
	}

	writeJSON(w, http.StatusOK, BatchResultsResponse{OK: true, Data: results})
}
