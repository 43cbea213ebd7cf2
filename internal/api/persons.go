package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/demoscope-io/demoscope/internal/api/middleware"
	"github.com/demoscope-io/demoscope/internal/ingestion"
)

// personsPageSize is the fixed page length of the record listing.
const personsPageSize = 20

// personsResponse is one page of stored records.
type personsResponse struct {
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`   //nolint: tagliatelle
	TotalCount int                `json:"total_count"` //nolint: tagliatelle
	TotalPages int                `json:"total_pages"` //nolint: tagliatelle
	Persons    []ingestion.Person `json:"persons"`
}

// handlePersons lists stored records, 20 per page, ordered by external id.
// The page query parameter is 1-based; absent or invalid values default to
// page 1, and pages past the end return an empty list.
func (s *Server) handlePersons(w http.ResponseWriter, r *http.Request) {
	page := 1

	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}

	ctx := r.Context()

	total, err := s.persons.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count records",
			slog.String("correlation_id", middleware.GetCorrelationID(ctx)),
			slog.String("error", err.Error()),
		)
		s.writeProblem(w, r, http.StatusInternalServerError,
			"Listing Failed", "Stored records could not be counted")

		return
	}

	offset := (page - 1) * personsPageSize

	persons, err := s.persons.List(ctx, personsPageSize, offset)
	if err != nil {
		s.logger.Error("Failed to list records",
			slog.String("correlation_id", middleware.GetCorrelationID(ctx)),
			slog.String("error", err.Error()),
		)
		s.writeProblem(w, r, http.StatusInternalServerError,
			"Listing Failed", "Stored records could not be listed")

		return
	}

	if persons == nil {
		persons = []ingestion.Person{}
	}

	totalPages := (total + personsPageSize - 1) / personsPageSize

	s.writeJSON(w, r, http.StatusOK, personsResponse{
		Page:       page,
		PageSize:   personsPageSize,
		TotalCount: total,
		TotalPages: totalPages,
		Persons:    persons,
	})
}
