package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/resume-builder/internal/pipeline"
)

// Server-side failure kinds that never come out of the pipeline
const (
	KindRateLimited pipeline.Kind = "rate_limited"
	KindJobFetch    pipeline.Kind = "job_fetch"
)

// HTTPStatus returns the appropriate HTTP status code for a failure kind
func HTTPStatus(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindValidation:
		return http.StatusBadRequest
	case pipeline.KindExtraction, KindJobFetch:
		return http.StatusUnprocessableEntity
	case pipeline.KindDecode:
		return http.StatusBadGateway
	case pipeline.KindCallExhausted:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.requestLogger(r).WithError(err).Error("failed to encode JSON response")
	}
}

// resultResponse writes the outcome of a pipeline operation.
func (s *Server) resultResponse(w http.ResponseWriter, r *http.Request, result pipeline.Result) {
	status := http.StatusOK
	if !result.Success {
		status = HTTPStatus(result.Kind)
	}
	s.jsonResponse(w, r, status, result)
}

// failure builds a failed Result for errors raised by the server itself.
func failure(kind pipeline.Kind, message string) pipeline.Result {
	return pipeline.Result{Success: false, Error: message, Kind: kind}
}
