package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/demoscope-io/demoscope/internal/api/middleware"
)

const contentTypeProblemJSON = "application/problem+json"

// problemDetail is an RFC 7807 error response body.
type problemDetail struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail"`
	Instance      string `json:"instance"`
	CorrelationID string `json:"correlation_id"` //nolint: tagliatelle
}

// writeJSON encodes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		)
	}
}

// writeProblem writes an RFC 7807 problem response.
func (s *Server) writeProblem(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem := problemDetail{
		Type:          fmt.Sprintf("https://demoscope.io/problems/%d", status),
		Title:         title,
		Status:        status,
		Detail:        detail,
		Instance:      r.URL.Path,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	}

	w.Header().Set("Content-Type", contentTypeProblemJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		s.logger.Error("Failed to encode problem response",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
