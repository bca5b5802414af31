package harness

import "github.com/roach88/climatevalue/internal/model"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Runs holds one summary per declared run, in order.
	Runs []RunResult `json:"runs"`

	// Counts is the final stored record count per entity key.
	Counts map[string]int `json:"counts"`

	Errors []string `json:"errors,omitempty"`
}

// RunResult pairs a run summary with whether the run was interrupted.
type RunResult struct {
	Summary  model.RunSummary `json:"summary"`
	Canceled bool             `json:"canceled"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunResult{},
		Counts: make(map[string]int),
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
