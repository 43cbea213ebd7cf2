package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/demoscope-io/demoscope/internal/api/middleware"
)

// uploadFieldName is the multipart form field carrying the CSV file.
const uploadFieldName = "csv_file"

// handleUpload accepts a multipart CSV upload, runs it through the ingestion
// pipeline, and returns the per-upload report.
//
// The whole file is read into memory before processing: the pipeline needs
// the raw bytes for encoding detection, and uploads are capped by
// MaxUploadSize anyway.
//
// Response codes:
//   - 200 OK: Upload processed, report returned (the report may still show
//     zero accepted rows, e.g. for undecodable files)
//   - 400 Bad Request: Missing or unreadable multipart field
//   - 413 Request Entity Too Large: Upload exceeds the configured size limit
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)

	if err := r.ParseMultipartForm(s.config.MaxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeProblem(w, r, http.StatusRequestEntityTooLarge,
				"Upload Too Large", "The uploaded file exceeds the maximum allowed size")

			return
		}

		s.writeProblem(w, r, http.StatusBadRequest,
			"Invalid Upload", "Request body must be multipart/form-data")

		return
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		s.writeProblem(w, r, http.StatusBadRequest,
			"Missing File", "Multipart field \""+uploadFieldName+"\" is required")

		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("Failed to read uploaded file",
			slog.String("correlation_id", correlationID),
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		s.writeProblem(w, r, http.StatusBadRequest,
			"Unreadable File", "The uploaded file could not be read")

		return
	}

	s.logger.Info("Processing upload",
		slog.String("correlation_id", correlationID),
		slog.String("filename", header.Filename),
		slog.Int("size_bytes", len(data)),
	)

	report := s.pipeline.Ingest(r.Context(), data)

	s.writeJSON(w, r, http.StatusOK, report)
}
