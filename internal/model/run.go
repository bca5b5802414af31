package model

import "time"

// EntityStatus is the outcome of one entity's step within a run.
type EntityStatus string

const (
	// StatusDone means the entity was fetched and its candidates processed.
	StatusDone EntityStatus = "done"

	// StatusSkipped means the entity had no allocation this run.
	StatusSkipped EntityStatus = "skipped"

	// StatusFailed means the fetch or a store call failed for this entity.
	StatusFailed EntityStatus = "failed"
)

// EntityResult summarizes what one run did for one entity.
type EntityResult struct {
	EntityID   int64        `json:"entity_id"`
	Key        string       `json:"key"`
	Status     EntityStatus `json:"status"`
	Progress   int          `json:"progress"`
	Allocation int          `json:"allocation"`
	Candidates int          `json:"candidates"`
	Inserted   int          `json:"inserted"`
	Duplicates int          `json:"duplicates"`
	Skipped    int          `json:"skipped"`
	Aggregated bool         `json:"aggregated"`
	Error      string       `json:"error,omitempty"`
}

// RunSummary is the user-visible result of one ingestion invocation.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Domain     string         `json:"domain"`
	Budget     int            `json:"budget"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Entities   []EntityResult `json:"entities"`
	Inserted   int            `json:"inserted"`
	Duplicates int            `json:"duplicates"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Complete   bool           `json:"complete"`
}

// Add folds an entity result into the run totals.
func (s *RunSummary) Add(r EntityResult) {
	s.Entities = append(s.Entities, r)
	s.Inserted += r.Inserted
	s.Duplicates += r.Duplicates
	s.Skipped += r.Skipped
	if r.Status == StatusFailed {
		s.Failed++
	}
}
