package migrations

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

var migrationFilenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

func listEmbeddedMigrations(t *testing.T) []string {
	t.Helper()

	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}

	files := make([]string, 0, len(entries))

	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}

	return files
}

func TestEmbeddedMigrations_NotEmpty(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	if len(listEmbeddedMigrations(t)) == 0 {
		t.Fatal("no migration files embedded")
	}
}

func TestEmbeddedMigrations_FilenamesFollowStandard(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	for _, file := range listEmbeddedMigrations(t) {
		if !migrationFilenameRegex.MatchString(file) {
			t.Errorf("migration %q does not match NNN_name.(up|down).sql", file)
		}
	}
}

func TestEmbeddedMigrations_UpDownPairs(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	directions := make(map[string]map[string]bool)

	for _, file := range listEmbeddedMigrations(t) {
		matches := migrationFilenameRegex.FindStringSubmatch(file)
		if matches == nil {
			continue
		}

		key := matches[1] + "_" + matches[2]
		if directions[key] == nil {
			directions[key] = make(map[string]bool)
		}

		directions[key][matches[3]] = true
	}

	for key, dirs := range directions {
		if !dirs["up"] {
			t.Errorf("migration %s has no up migration", key)
		}

		if !dirs["down"] {
			t.Errorf("migration %s has no down migration", key)
		}
	}
}

func TestEmbeddedMigrations_NonEmptyContent(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	for _, file := range listEmbeddedMigrations(t) {
		content, err := fs.ReadFile(FS, file)
		if err != nil {
			t.Fatalf("failed to read %s: %v", file, err)
		}

		if len(strings.TrimSpace(string(content))) == 0 {
			t.Errorf("migration %s is empty", file)
		}
	}
}
