package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	// Pipeline drives one upload end to end: encoding resolution, header
	// parsing, per-row validation, in-memory accumulation, and a single bulk
	// insert of everything that validated.
	//
	// Execution is single-request and synchronous; concurrent uploads race
	// independently against the store with no coordination (duplicate
	// external IDs across uploads are possible and accepted).
	Pipeline struct {
		store    Store
		detector Detector
		headers  *HeaderResolver
		logger   *slog.Logger
		now      func() time.Time
	}

	// PipelineOption configures optional Pipeline behavior.
	PipelineOption func(*Pipeline)
)

// WithDetector overrides the encoding detection strategy.
func WithDetector(d Detector) PipelineOption {
	return func(p *Pipeline) {
		p.detector = d
	}
}

// WithHeaderResolver sets the CSV header alias resolver. If not set, only
// canonical header names are recognized.
func WithHeaderResolver(r *HeaderResolver) PipelineOption {
	return func(p *Pipeline) {
		p.headers = r
	}
}

// WithLogger overrides the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithClock overrides the time source, used by tests to pin "today" and the
// UploadedAt timestamp.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates an upload pipeline backed by the given store.
func NewPipeline(store Store, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:    store,
		detector: NewHeuristicDetector(),
		headers:  NewHeaderResolver(&HeaderConfig{}),
		logger:   slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Ingest processes one uploaded CSV file and returns the upload report.
//
// Failure policy (never raises past this boundary):
//   - decode failure aborts the whole upload with an all-zero report, so a
//     corrupt file never produces misleading partial counts
//   - a row that fails validation increments the error count and processing
//     continues with the next row
//   - a bulk-insert failure after validation is logged and counted in
//     metrics; the report still reflects validation outcome
func (p *Pipeline) Ingest(ctx context.Context, data []byte) Report {
	start := time.Now()
	defer func() {
		ingestDuration.Observe(time.Since(start).Seconds())
	}()

	report := Report{UploadID: uuid.NewString()}
	logger := p.logger.With(slog.String("upload_id", report.UploadID))

	text, err := DecodeText(p.detector, data)
	if err != nil {
		uploadsAborted.Inc()
		logger.Error("Upload aborted: cannot decode file", slog.String("error", err.Error()))

		return report
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		uploadsAborted.Inc()
		logger.Error("Upload aborted: cannot read header row", slog.String("error", err.Error()))

		return report
	}

	fields := p.headers.ResolveAll(header)

	uploadedAt := p.now().UTC()
	today := dateOnly(uploadedAt)
	pending := make([]Person, 0)

	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			// Malformed line. Count it as a row error and keep scanning;
			// per-row failures never abort the batch.
			report.ErrorCount++
			rowsRejected.WithLabelValues("malformed_line").Inc()
			logger.Warn("Row is not parseable CSV",
				slog.Int("row", rowNum),
				slog.String("error", err.Error()))

			continue
		}

		outcome := ValidateRow(mapRow(fields, record), today)
		if outcome.Rejected {
			report.ErrorCount++
			rowsRejected.WithLabelValues(string(outcome.Reason)).Inc()
			logger.Warn("Row rejected",
				slog.Int("row", rowNum),
				slog.String("reason", string(outcome.Reason)))

			continue
		}

		pending = append(pending, Person{
			ExternalID:  outcome.Accepted.ExternalID,
			DateOfBirth: outcome.Accepted.DateOfBirth,
			Gender:      outcome.Accepted.Gender,
			Region:      outcome.Accepted.Region,
			UploadedAt:  uploadedAt,
		})
		report.SuccessCount++
		rowsAccepted.Inc()
	}

	report.TotalCount = report.SuccessCount + report.ErrorCount

	if len(pending) > 0 {
		if err := p.store.BulkInsert(ctx, pending); err != nil {
			// Best effort: the report reflects validation outcome, not
			// persistence outcome.
			bulkInsertFailures.Inc()
			logger.Error("Bulk insert failed",
				slog.Int("records", len(pending)),
				slog.String("error", err.Error()))
		}
	}

	logger.Info("Upload processed",
		slog.Int("total", report.TotalCount),
		slog.Int("success", report.SuccessCount),
		slog.Int("errors", report.ErrorCount))

	return report
}

// mapRow zips resolved header names with one record's values. Short rows map
// only the cells present, so required-field checks see the gap.
func mapRow(fields []string, record []string) Row {
	row := make(Row, len(fields))

	for i, name := range fields {
		if i >= len(record) {
			break
		}

		row[name] = record[i]
	}

	return row
}

// dateOnly truncates a timestamp to midnight UTC for date comparisons.
func dateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
