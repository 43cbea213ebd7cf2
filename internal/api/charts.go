package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/demoscope-io/demoscope/internal/aggregation"
	"github.com/demoscope-io/demoscope/internal/api/middleware"
)

// chartsResponse wraps chart data with an existence flag so clients can
// distinguish "no records yet" from an empty aggregation result.
type chartsResponse struct {
	DataExists bool                   `json:"data_exists"` //nolint: tagliatelle
	Charts     *aggregation.ChartData `json:"charts,omitempty"`
}

// handleCharts returns the aggregated chart payload.
//
// Response codes:
//   - 200 OK: Either the chart payload or {"data_exists": false} when no
//     records are stored
//   - 500 Internal Server Error: Aggregation or store failure
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	data, err := s.charts.ChartData(r.Context())
	if err != nil {
		if errors.Is(err, aggregation.ErrNoData) {
			s.writeJSON(w, r, http.StatusOK, chartsResponse{DataExists: false})

			return
		}

		s.logger.Error("Failed to compute chart data",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		s.writeProblem(w, r, http.StatusInternalServerError,
			"Aggregation Failed", "Chart data could not be computed")

		return
	}

	s.writeJSON(w, r, http.StatusOK, chartsResponse{DataExists: true, Charts: data})
}
