package pipeline

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/verifiq/invoice-verifier/internal/extraction"
)

// writeJSON encodes a response body, logging encode failures
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// errorStatus maps pipeline errors to HTTP statuses. Malformed invocations
// are the caller's fault; everything else surfaces as a server error.
func errorStatus(err error) int {
	var rangeErr *MalformedPageRangeError
	var payloadErr *extraction.PayloadError
	if errors.As(err, &rangeErr) || errors.As(err, &payloadErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// handleInvocation runs the manifest pipeline for one invocation event
func (s *Server) handleInvocation(w http.ResponseWriter, r *http.Request) {
	var event Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		slog.Error("Error decoding invocation event", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.orchestrator.ProcessInvocation(event)
	if err != nil {
		slog.Error("Error processing invocation", "origin", event.OriginFileURI, "error", err)
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleVerify runs the single-document verifier
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Error decoding verify request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.verifier.Verify(req)
	if err != nil {
		slog.Error("Error verifying document", "bucket", req.Bucket, "key", req.Key, "error", err)
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
