package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/climatevalue/internal/model"
)

// Snapshot is the golden-file form of a scenario result. Timestamps are
// left out; run IDs and counts are deterministic.
type Snapshot struct {
	Scenario string         `json:"scenario"`
	Runs     []RunSnapshot  `json:"runs"`
	Counts   map[string]int `json:"counts"`
}

// RunSnapshot is one run in a Snapshot.
type RunSnapshot struct {
	RunID      string           `json:"run_id"`
	Inserted   int              `json:"inserted"`
	Duplicates int              `json:"duplicates"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Complete   bool             `json:"complete"`
	Canceled   bool             `json:"canceled"`
	Entities   []EntitySnapshot `json:"entities"`
}

// EntitySnapshot is one entity result in a RunSnapshot.
type EntitySnapshot struct {
	Key        string `json:"key"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Allocation int    `json:"allocation"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Aggregated bool   `json:"aggregated"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	snap := Snapshot{
		Scenario: name,
		Runs:     make([]RunSnapshot, 0, len(result.Runs)),
		Counts:   result.Counts,
	}
	for _, rr := range result.Runs {
		s := rr.Summary
		run := RunSnapshot{
			RunID:      s.RunID,
			Inserted:   s.Inserted,
			Duplicates: s.Duplicates,
			Skipped:    s.Skipped,
			Failed:     s.Failed,
			Complete:   s.Complete,
			Canceled:   rr.Canceled,
			Entities:   make([]EntitySnapshot, 0, len(s.Entities)),
		}
		for _, e := range s.Entities {
			run.Entities = append(run.Entities, entitySnapshot(e))
		}
		snap.Runs = append(snap.Runs, run)
	}
	return snap
}

func entitySnapshot(e model.EntityResult) EntitySnapshot {
	return EntitySnapshot{
		Key:        e.Key,
		Status:     string(e.Status),
		Progress:   e.Progress,
		Allocation: e.Allocation,
		Inserted:   e.Inserted,
		Duplicates: e.Duplicates,
		Skipped:    e.Skipped,
		Aggregated: e.Aggregated,
	}
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// AssertGolden compares result against testdata/scenarios/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/scenarios/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// CompareGolden reports whether result matches the golden file at path.
func CompareGolden(path, name string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return bytes.Equal(want, got), nil
}

// UpdateGolden writes result's snapshot to path, creating its directory.
func UpdateGolden(path, name string, result *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
