package fetch

import (
	"context"
	"sync"

	"github.com/roach88/climatevalue/internal/model"
)

// Static serves fixed candidates keyed by entity natural key. Used for
// offline runs, scenarios and tests. Unknown entities have no candidates.
//
// Thread-safety: safe for concurrent use via internal mutex.
type Static struct {
	mu      sync.Mutex
	records map[string][]model.RawRecord
	errs    map[string]error
	calls   map[string]int
}

// NewStatic creates a Static source.
func NewStatic(records map[string][]model.RawRecord) *Static {
	if records == nil {
		records = map[string][]model.RawRecord{}
	}
	return &Static{
		records: records,
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

// Set replaces the candidates for key.
func (s *Static) Set(key string, records []model.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = records
}

// Fail makes every fetch for key return err. A nil err clears the failure.
func (s *Static) Fail(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, key)
		return
	}
	s.errs[key] = err
}

// Calls returns how many times key was fetched.
func (s *Static) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// Fetch implements Source. The full candidate list is returned on every
// call regardless of window.
func (s *Static) Fetch(ctx context.Context, entity model.Entity, _ model.Window) ([]model.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Entity: entity.Key, Source: "static", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[entity.Key]++
	if err := s.errs[entity.Key]; err != nil {
		return nil, &FetchError{Entity: entity.Key, Source: "static", Err: err}
	}

	src := s.records[entity.Key]
	out := make([]model.RawRecord, len(src))
	copy(out, src)
	return out, nil
}
