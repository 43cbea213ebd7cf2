package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lib/pq"

	"github.com/demoscope-io/demoscope/internal/aggregation"
	"github.com/demoscope-io/demoscope/internal/config"
	"github.com/demoscope-io/demoscope/internal/ingestion"
)

// ErrBulkInsertFailed is returned when a bulk insert cannot be committed.
var ErrBulkInsertFailed = errors.New("bulk insert failed")

// Compile-time interface assertions: the person store serves both the
// ingestion write path and the aggregation read path.
var (
	_ ingestion.Store   = (*PersonStore)(nil)
	_ aggregation.Store = (*PersonStore)(nil)
)

// PersonStore implements record persistence with a PostgreSQL backend.
//
// Bulk inserts use the PostgreSQL COPY protocol inside one transaction, so
// an upload costs a constant number of round trips regardless of row count
// and either lands completely or not at all.
type PersonStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPersonStore creates a PostgreSQL-backed person store.
func NewPersonStore(conn *Connection) (*PersonStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &PersonStore{
		conn: conn,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}, nil
}

// Close closes the database connection pool gracefully.
func (s *PersonStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}

	return nil
}

// BulkInsert writes all records via COPY in a single transaction.
func (s *PersonStore) BulkInsert(ctx context.Context, persons []ingestion.Person) error {
	if len(persons) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrBulkInsertFailed, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"persons", "external_id", "date_of_birth", "gender", "region", "uploaded_at",
	))
	if err != nil {
		return fmt.Errorf("%w: prepare copy: %w", ErrBulkInsertFailed, err)
	}

	for _, p := range persons {
		var region sql.NullString
		if p.Region != nil {
			region = sql.NullString{String: *p.Region, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, p.ExternalID, p.DateOfBirth, p.Gender, region, p.UploadedAt); err != nil {
			_ = stmt.Close()

			return fmt.Errorf("%w: buffer row: %w", ErrBulkInsertFailed, err)
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()

		return fmt.Errorf("%w: flush copy: %w", ErrBulkInsertFailed, err)
	}

	if err := stmt.Close(); err != nil {
		return fmt.Errorf("%w: close copy: %w", ErrBulkInsertFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrBulkInsertFailed, err)
	}

	s.logger.Debug("Bulk insert committed", slog.Int("records", len(persons)))

	return nil
}

// Exists reports whether any records are stored.
func (s *PersonStore) Exists(ctx context.Context) (bool, error) {
	var exists bool

	err := s.conn.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM persons)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check persons existence: %w", err)
	}

	return exists, nil
}

// CountByGender returns record counts grouped by gender, count descending.
// Tie order among equal counts follows PostgreSQL's grouping order and is
// not contractual.
func (s *PersonStore) CountByGender(ctx context.Context) ([]aggregation.GenderCount, error) {
	query := `
		SELECT gender, COUNT(*) AS count
		FROM persons
		GROUP BY gender
		ORDER BY count DESC
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query gender counts: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var counts []aggregation.GenderCount

	for rows.Next() {
		var gc aggregation.GenderCount
		if err := rows.Scan(&gc.Gender, &gc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan gender count: %w", err)
		}

		counts = append(counts, gc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gender counts: %w", err)
	}

	return counts, nil
}

// CountByRegionGender returns record counts grouped by (region, gender),
// excluding null and empty regions, count descending.
func (s *PersonStore) CountByRegionGender(ctx context.Context) ([]aggregation.RegionGenderCount, error) {
	query := `
		SELECT region, gender, COUNT(*) AS count
		FROM persons
		WHERE region IS NOT NULL AND region <> ''
		GROUP BY region, gender
		ORDER BY count DESC
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query region/gender counts: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var counts []aggregation.RegionGenderCount

	for rows.Next() {
		var rc aggregation.RegionGenderCount
		if err := rows.Scan(&rc.Region, &rc.Gender, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan region/gender count: %w", err)
		}

		counts = append(counts, rc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating region/gender counts: %w", err)
	}

	return counts, nil
}

// List returns a page of records ordered by external_id, then upload time.
func (s *PersonStore) List(ctx context.Context, limit, offset int) ([]ingestion.Person, error) {
	query := `
		SELECT external_id, date_of_birth, gender, region, uploaded_at
		FROM persons
		ORDER BY external_id, uploaded_at
		LIMIT $1 OFFSET $2
	`

	rows, err := s.conn.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	persons := make([]ingestion.Person, 0, limit)

	for rows.Next() {
		var (
			p      ingestion.Person
			region sql.NullString
		)

		if err := rows.Scan(&p.ExternalID, &p.DateOfBirth, &p.Gender, &region, &p.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}

		if region.Valid {
			p.Region = &region.String
		}

		persons = append(persons, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating persons: %w", err)
	}

	return persons, nil
}

// Count returns the total number of stored records.
func (s *PersonStore) Count(ctx context.Context) (int, error) {
	var count int

	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count persons: %w", err)
	}

	return count, nil
}
