package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/climatevalue/internal/model"
)

// createTestStore creates a new SQLite store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), Options{DSN: path})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntity registers a weather entity and returns it with its ID.
func createTestEntity(t *testing.T, s *Store, key string) model.Entity {
	t.Helper()
	e, err := s.EnsureEntity(context.Background(), model.Entity{
		Domain:   "weather",
		Key:      key,
		Locality: key,
	})
	if err != nil {
		t.Fatalf("EnsureEntity(%q) failed: %v", key, err)
	}
	return e
}

// dayRecord builds a weather record for the given date.
func dayRecord(date, temp string) model.Record {
	return model.Record{
		Discriminator: date,
		Fields:        map[string]string{"temperature_2m": temp},
	}
}
