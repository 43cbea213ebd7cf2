package ingestion

import (
	"time"
	"unicode"
)

// Reason identifies why a row was rejected. The values double as stable
// log/metric labels.
type Reason string

// Row rejection reasons, in the order the rules are applied.
const (
	ReasonMissingOrMalformedDate Reason = "missing_or_malformed_date"
	ReasonFutureDate             Reason = "future_date"
	ReasonNumericRegion          Reason = "numeric_region"
	ReasonMissingRequiredField   Reason = "missing_required_field"
)

type (
	// Accepted carries the validated fields of a row that passed all rules.
	// Region is nil when the row had no region or an empty one.
	Accepted struct {
		ExternalID  string
		DateOfBirth time.Time
		Gender      string
		Region      *string
	}

	// Outcome is the tagged result of validating one row: either Accepted is
	// set, or Rejected is true and Reason names the first failed rule.
	Outcome struct {
		Accepted *Accepted
		Rejected bool
		Reason   Reason
	}
)

// ValidateRow applies the field-level rules to one raw row. The rules run in
// order and short-circuit on the first failure:
//
//  1. date_of_birth present and parseable as DD/MM/YYYY, else
//     missing_or_malformed_date
//  2. parsed date not strictly after today, else future_date
//  3. region, if present and non-empty, not composed entirely of digit
//     characters, else numeric_region
//  4. id present, else missing_required_field
//
// Today is injected rather than read from the clock so the function stays
// deterministic and testable; callers pass a date-only value (midnight UTC).
// Gender passes through verbatim with no validation.
func ValidateRow(row Row, today time.Time) Outcome {
	dob, err := ParseDOB(row[FieldDateOfBirth])
	if err != nil {
		return rejected(ReasonMissingOrMalformedDate)
	}

	if dob.After(today) {
		return rejected(ReasonFutureDate)
	}

	region := row[FieldRegion]
	if isAllDigits(region) {
		return rejected(ReasonNumericRegion)
	}

	externalID, ok := row[FieldID]
	if !ok {
		return rejected(ReasonMissingRequiredField)
	}

	return Outcome{
		Accepted: &Accepted{
			ExternalID:  externalID,
			DateOfBirth: dob,
			Gender:      row[FieldGender],
			Region:      normalizeRegion(region),
		},
	}
}

func rejected(reason Reason) Outcome {
	return Outcome{Rejected: true, Reason: reason}
}

// isAllDigits reports whether s is non-empty and consists entirely of digit
// characters. Unicode digits count, matching the lenient source systems this
// pipeline ingests from.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	return true
}

// normalizeRegion maps an absent or empty region to nil ("no region"),
// keeping any other value verbatim.
func normalizeRegion(region string) *string {
	if region == "" {
		return nil
	}

	return &region
}
