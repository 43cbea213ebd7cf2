package ingestion

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDOB(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name     string
		value    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "parses valid date",
			value:    "15/03/1990",
			expected: time.Date(1990, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "parses date with surrounding whitespace",
			value:    "  15/03/1990  ",
			expected: time.Date(1990, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "parses first day of year",
			value:    "01/01/2000",
			expected: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "rejects empty string",
			value:   "",
			wantErr: true,
		},
		{
			name:    "rejects whitespace only",
			value:   "   ",
			wantErr: true,
		},
		{
			name:    "rejects ISO format",
			value:   "1990-03-15",
			wantErr: true,
		},
		{
			name:    "rejects US order with invalid day",
			value:   "03/15/1990",
			wantErr: true,
		},
		{
			name:    "rejects invalid calendar date",
			value:   "31/02/2000",
			wantErr: true,
		},
		{
			name:    "rejects non-date text",
			value:   "not-a-date",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseDOB(tt.value)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnparseableDate))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, parsed)
		})
	}
}

func TestParseDOB_ReturnsMidnightUTC(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	parsed, err := ParseDOB("29/02/2020")
	require.NoError(t, err)

	assert.Equal(t, time.UTC, parsed.Location())
	assert.Equal(t, 0, parsed.Hour())
	assert.Equal(t, 0, parsed.Minute())
}
