package api

import (
	"context"

	"github.com/demoscope-io/demoscope/internal/ingestion"
)

// PersonDirectory is the read surface the paginated listing endpoint
// consumes. The PostgreSQL and in-memory person stores both implement it.
type PersonDirectory interface {
	// List returns one page of records ordered by external id.
	List(ctx context.Context, limit, offset int) ([]ingestion.Person, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)
}
