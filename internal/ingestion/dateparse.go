package ingestion

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// dobLayout is the fixed date-of-birth format accepted in uploads: DD/MM/YYYY.
const dobLayout = "02/01/2006"

// ErrUnparseableDate is returned when a date string is empty, malformed, or
// not a valid calendar date. Callers check it with errors.Is.
var ErrUnparseableDate = errors.New("unparseable date")

// ParseDOB parses a date-of-birth string in DD/MM/YYYY form into a calendar
// date at midnight UTC. Date-only semantics: no timezone concept beyond the
// UTC normalization of the returned value.
//
// Invalid calendar dates (31/02/2000) fail the same way malformed input does.
func ParseDOB(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, ErrUnparseableDate
	}

	parsed, err := time.Parse(dobLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, value)
	}

	return parsed, nil
}
