// Package ingestion provides the demographic CSV upload pipeline: encoding
// resolution, per-row validation, and bulk persistence of accepted records.
package ingestion

import "time"

type (
	// Person is a validated demographic record as persisted by the store.
	//
	// ExternalID is supplied by the uploader and is not required to be unique;
	// duplicates may accumulate across uploads. Region is nil when the source
	// row carried no region (distinct from an empty string). Records are never
	// mutated after creation.
	Person struct {
		ExternalID  string    `json:"external_id"`
		DateOfBirth time.Time `json:"date_of_birth"`
		Gender      string    `json:"gender"`
		Region      *string   `json:"region,omitempty"`
		UploadedAt  time.Time `json:"uploaded_at"`
	}

	// Report summarizes one upload: how many data rows were observed, how many
	// passed validation, and how many were rejected.
	//
	// Invariant: TotalCount == SuccessCount + ErrorCount. The counts reflect
	// validation outcome only; a bulk-insert failure is logged and surfaced via
	// metrics but does not rewrite the counts.
	Report struct {
		UploadID     string `json:"upload_id"`
		TotalCount   int    `json:"total_count"`
		SuccessCount int    `json:"success_count"`
		ErrorCount   int    `json:"error_count"`
	}

	// Row is one data line of an uploaded CSV, mapped from canonical header
	// field names to raw string values.
	Row map[string]string
)

// Canonical CSV field names recognized in the upload header.
const (
	FieldID          = "id"
	FieldDateOfBirth = "date_of_birth"
	FieldGender      = "gender"
	FieldRegion      = "region"
)
