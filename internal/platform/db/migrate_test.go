package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, sql := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadMigrationsSorted(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"003_scheduling.sql": "CREATE TABLE doctor_schedule ();",
		"001_directory.sql":  "CREATE TABLE app_user ();",
		"002_growth.sql":     "CREATE TABLE growth_record ();",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("got %d migrations, want 3", len(migrations))
	}
	for i, want := range []int{1, 2, 3} {
		if migrations[i].Version != want {
			t.Errorf("migrations[%d].Version = %d, want %d", i, migrations[i].Version, want)
		}
	}
	if migrations[1].Name != "002_growth.sql" {
		t.Errorf("migrations[1].Name = %q, want 002_growth.sql", migrations[1].Name)
	}
	if migrations[0].SQL != "CREATE TABLE app_user ();" {
		t.Errorf("migration SQL not loaded: %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsSkipsUnversionedFiles(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_directory.sql": "CREATE TABLE app_user ();",
		"README.md":         "notes",
		"notes.sql":         "-- no version prefix",
		"abc_def.sql":       "-- non-numeric prefix",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("got %d migrations, want 1", len(migrations))
	}
	if migrations[0].Version != 1 {
		t.Errorf("Version = %d, want 1", migrations[0].Version)
	}
}

func TestLoadMigrationsEmptyDir(t *testing.T) {
	migrations, err := NewMigrator(nil, t.TempDir()).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("got %d migrations, want 0", len(migrations))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	_, err := NewMigrator(nil, "/no/such/migrations/dir").LoadMigrations()
	if err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_directory.sql", 1, true},
		{"042_backfill.sql", 42, true},
		{"10_late.sql", 10, true},
		{"001_directory.txt", 0, false},
		{"nounderscore.sql", 0, false},
		{"abc_def.sql", 0, false},
	}
	for _, tt := range tests {
		v, ok := parseVersion(tt.name)
		if v != tt.version || ok != tt.ok {
			t.Errorf("parseVersion(%q) = (%d, %v), want (%d, %v)", tt.name, v, ok, tt.version, tt.ok)
		}
	}
}
