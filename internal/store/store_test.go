package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(context.Background(), Options{DSN: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", s.Driver(), DriverSQLite)
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(ctx, Options{DSN: path})
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	e := createTestEntity(t, s1, "phoenix")
	if _, err := s1.Persist(ctx, e.ID, dayRecord("2023-01-01", "10")); err != nil {
		t.Fatalf("Persist() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(ctx, Options{DSN: path})
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	n, err := s2.Count(ctx, e.ID)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() after reopen = %d, want 1", n)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(context.Background(), Options{DSN: path})
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mysql", DSN: "x"})
	if err == nil {
		t.Fatal("Open() with unknown driver succeeded")
	}
}

func TestOpen_RejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	if err == nil {
		t.Fatal("Open() with empty DSN succeeded")
	}
}

func TestOpen_PragmasApplied(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_SetsUserVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_TablesCreated(t *testing.T) {
	s := createTestStore(t)

	for _, table := range []string{"entities", "records", "aggregates", "runs"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestClose_NilSafe(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil store = %v", err)
	}
}

func TestWithStore_ClosesAfterFn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	var held *Store
	err := WithStore(context.Background(), Options{DSN: path}, func(s *Store) error {
		held = s
		return nil
	})
	if err != nil {
		t.Fatalf("WithStore() failed: %v", err)
	}
	if err := held.db.Ping(); err == nil {
		t.Error("store still open after WithStore returned")
	}
}

func TestWithStore_PropagatesFnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	want := errors.New("boom")

	err := WithStore(context.Background(), Options{DSN: path}, func(*Store) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("WithStore() = %v, want %v", err, want)
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	lite := &Store{driver: DriverSQLite}

	q := "SELECT * FROM records WHERE entity_id = ? AND discriminator = ?"
	if got := pg.rebind(q); got != "SELECT * FROM records WHERE entity_id = $1 AND discriminator = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	if got := lite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements(schemaPostgres)
	if len(got) != 5 {
		t.Errorf("splitStatements(schemaPostgres) = %d statements, want 5", len(got))
	}
}
