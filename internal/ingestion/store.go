// Package ingestion defines the Store interface which represents what the
// pipeline needs for record persistence. Concrete implementations
// (PostgreSQL, in-memory) live in the internal/storage package.
package ingestion

import "context"

// Store defines the persistence surface consumed by the upload pipeline.
//
// The domain package defines this interface to specify what it needs for
// record storage, without depending on concrete implementations. The pipeline
// performs exactly one BulkInsert per upload, so round trips to the store are
// O(1) regardless of file size.
type Store interface {
	// BulkInsert persists all given records in a single operation.
	//
	// The whole batch is written or an error is returned; there is no partial
	// write surface. Callers treat a failure as best-effort (log and
	// continue), not as a reason to fail the upload request.
	BulkInsert(ctx context.Context, persons []Person) error

	// Exists reports whether the store currently holds any records.
	Exists(ctx context.Context) (bool, error)
}
