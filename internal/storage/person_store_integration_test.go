package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/demoscope-io/demoscope/internal/aggregation"
	"github.com/demoscope-io/demoscope/internal/ingestion"
	"github.com/demoscope-io/demoscope/migrations"
)

// setupTestDatabase creates a PostgreSQL testcontainer and runs migrations.
func setupTestDatabase(ctx context.Context, t *testing.T) (*pgcontainer.PostgresContainer, *Connection) {
	t.Helper()

	postgresContainer, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("demoscope_test"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second), // Extended timeout for dev containers
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	config := &Config{
		databaseURL:     connStr,
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	}

	conn, err := NewConnection(config) //nolint:contextcheck
	if err != nil {
		_ = postgresContainer.Terminate(ctx)

		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := runTestMigrations(conn.DB); err != nil {
		_ = conn.Close()
		_ = postgresContainer.Terminate(ctx)

		t.Fatalf("failed to run test migrations: %v", err)
	}

	return postgresContainer, conn
}

// runTestMigrations applies the embedded migrations using golang-migrate.
func runTestMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, postgresDriver, driver)
	if err != nil {
		return err
	}

	return m.Up()
}

func truncatePersons(ctx context.Context, t *testing.T, conn *Connection) {
	t.Helper()

	if _, err := conn.ExecContext(ctx, "TRUNCATE TABLE persons"); err != nil {
		t.Fatalf("failed to truncate persons: %v", err)
	}
}

// TestPersonStoreIntegration runs all integration tests for PersonStore.
func TestPersonStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, conn := setupTestDatabase(ctx, t)

	defer func() {
		_ = conn.Close()
		_ = container.Terminate(ctx)
	}()

	store, err := NewPersonStore(conn)
	if err != nil {
		t.Fatalf("NewPersonStore() error = %v", err)
	}

	t.Run("ExistsEmpty", testExistsEmpty(ctx, store, conn))
	t.Run("BulkInsertAndExists", testBulkInsertAndExists(ctx, store, conn))
	t.Run("BulkInsertNullRegion", testBulkInsertNullRegion(ctx, store, conn))
	t.Run("CountByGender", testCountByGender(ctx, store, conn))
	t.Run("CountByRegionGender", testCountByRegionGender(ctx, store, conn))
	t.Run("ListAndCount", testListAndCount(ctx, store, conn))
}

func testExistsEmpty(ctx context.Context, store *PersonStore, conn *Connection) func(*testing.T) {
	return func(t *testing.T) {
		truncatePersons(ctx, t, conn)

		exists, err := store.Exists(ctx)
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}

		if exists {
			t.Errorf("Exists() = true for empty table, want false")
		}
	}
}

func testBulkInsertAndExists(ctx context.Context, store *PersonStore, conn *Connection) func(*testing.T) {
	return func(t *testing.T) {
		truncatePersons(ctx, t, conn)

		region := "North"
		persons := []ingestion.Person{
			{
				ExternalID:  "1",
				DateOfBirth: time.Date(1990, time.March, 15, 0, 0, 0, 0, time.UTC),
				Gender:      "male",
				Region:      &region,
				UploadedAt:  time.Now().UTC(),
			},
			{
				ExternalID:  "2",
				DateOfBirth: time.Date(1985, time.July, 20, 0, 0, 0, 0, time.UTC),
				Gender:      "female",
				Region:      &region,
				UploadedAt:  time.Now().UTC(),
			},
		}

		if err := store.BulkInsert(ctx, persons); err != nil {
			t.Fatalf("BulkInsert() error = %v", err)
		}

		exists, err := store.Exists(ctx)
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}

		if !exists {
			t.Errorf("Exists() = false after insert, want true")
		}

		count, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}

		if count != 2 {
			t.Errorf("Count() = %d, want 2", count)
		}
	}
}

func testBulkInsertNullRegion(ctx context.Context, store *PersonStore, conn *Connection) func(*testing.T) {
	return func(t *testing.T) {
		truncatePersons(ctx, t, conn)

		persons := []ingestion.Person{
			{
				ExternalID:  "1",
				DateOfBirth: time.Date(1990, time.March, 15, 0, 0, 0, 0, time.UTC),
				Gender:      "male",
				Region:      nil,
				UploadedAt:  time.Now().UTC(),
			},
		}

		if err := store.BulkInsert(ctx, persons); err != nil {
			t.Fatalf("BulkInsert() error = %v", err)
		}

		var nullRegions int
		if err := conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM persons WHERE region IS NULL").Scan(&nullRegions); err != nil {
			t.Fatalf("query error = %v", err)
		}

		if nullRegions != 1 {
			t.Errorf("null region rows = %d, want 1", nullRegions)
		}
	}
}

func testCountByGender(ctx context.Context, store *PersonStore, conn *Connection) func(*testing.T) {
	return func(t *testing.T) {
		truncatePersons(ctx, t, conn)

		insertTestPersons(ctx, t, store, []testRow{
			{"1", "male", "North"},
			{"2", "male", "North"},
			{"3", "male", "South"},
			{"4", "female", "North"},
		})

		counts, err := store.CountByGender(ctx)
		if err != nil {
			t.Fatalf("CountByGender() error = %v", err)
		}

		expected := []aggregation.GenderCount{
			{Gender: "male", Count: 3},
			{Gender: "female", Count: 1},
		}

		if len(counts) != len(expected) {
			t.Fatalf("CountByGender() returned %d rows, want %d", len(counts), len(expected))
		}

		for i, want := range expected {
			if counts[i] != want {
				t.Errorf("CountByGender()[%d] = %+v, want %+v", i, counts[i], want)
			}
		}
	}
}

func testCountByRegionGender(ctx context.Context, store *PersonStore, conn *Connection) func(*testing.T) {
	return func(t *testing.T) {
		truncatePersons(ctx, t, conn)

		insertTestPersons(ctx, t, store, []testRow{
			{"1", "male", "North"},
			{"2", "male", "North"},
			{"3", "female", "North"},
			{"4", "male", "South"},
			{"5", "female", ""}, // empty region excluded from regional pivot
		})

		counts, err := store.CountByRegionGender(ctx)
		if err != nil {
			t.Fatalf("CountByRegionGender() error = %v", err)
		}

		if len(counts) != 3 {
			t.Fatalf("CountByRegionGender() returned %d rows, want 3", len(counts))
		}

		if counts[0].Region != "North" || counts[0].Gender != "male" || counts[0].Count != 2 {
			t.Errorf("CountByRegionGender()[0] = %+v, want North/male/2", counts[0])
		}

		total := 0
		for _, c := range counts {
			total += c.Count
		}

		if total != 4 {
			t.Errorf("regional counts sum = %d, want 4", total)
		}
	}
}

func testListAndCount(ctx context.Context, store *PersonStore, conn *Connection) func(*testing.T) {
	return func(t *testing.T) {
		truncatePersons(ctx, t, conn)

		insertTestPersons(ctx, t, store, []testRow{
			{"3", "male", "North"},
			{"1", "female", "South"},
			{"2", "other", ""},
		})

		page, err := store.List(ctx, 2, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		if len(page) != 2 {
			t.Fatalf("List() returned %d rows, want 2", len(page))
		}

		if page[0].ExternalID != "1" || page[1].ExternalID != "2" {
			t.Errorf("List() order = [%s, %s], want [1, 2]", page[0].ExternalID, page[1].ExternalID)
		}

		if page[0].Region == nil || *page[0].Region != "South" {
			t.Errorf("List()[0].Region = %v, want South", page[0].Region)
		}

		count, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}

		if count != 3 {
			t.Errorf("Count() = %d, want 3", count)
		}
	}
}

type testRow struct {
	id     string
	gender string
	region string
}

func insertTestPersons(ctx context.Context, t *testing.T, store *PersonStore, rows []testRow) {
	t.Helper()

	persons := make([]ingestion.Person, 0, len(rows))

	for _, row := range rows {
		var region *string
		if row.region != "" {
			r := row.region
			region = &r
		}

		persons = append(persons, ingestion.Person{
			ExternalID:  row.id,
			DateOfBirth: time.Date(1990, time.March, 15, 0, 0, 0, 0, time.UTC),
			Gender:      row.gender,
			Region:      region,
			UploadedAt:  time.Now().UTC(),
		})
	}

	if err := store.BulkInsert(ctx, persons); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}
}
