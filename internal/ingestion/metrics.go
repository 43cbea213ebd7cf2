package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demoscope_ingest_rows_accepted_total",
		Help: "Number of uploaded CSV rows that passed validation",
	})

	rowsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "demoscope_ingest_rows_rejected_total",
		Help: "Number of uploaded CSV rows rejected by validation, by reason",
	}, []string{"reason"})

	uploadsAborted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demoscope_ingest_uploads_aborted_total",
		Help: "Number of uploads aborted before row processing (read or decode failure)",
	})

	bulkInsertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demoscope_bulk_insert_failures_total",
		Help: "Number of bulk inserts that failed after successful validation",
	})

	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "demoscope_ingest_duration_seconds",
		Help:    "Wall-clock duration of one upload ingestion",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)
