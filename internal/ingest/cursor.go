package ingest

import (
	"context"
	"fmt"
)

// Counter reports how many records are stored for an entity.
// Implemented by *store.Store.
type Counter interface {
	Count(ctx context.Context, entityID int64) (int, error)
}

// Cursor derives an entity's resume point from the store.
//
// There is no offset ledger: progress is the stored record count, so a run
// interrupted after any committed insert resumes exactly where it stopped.
type Cursor struct {
	counter Counter
}

// NewCursor returns a Cursor backed by counter.
func NewCursor(counter Counter) *Cursor {
	return &Cursor{counter: counter}
}

// Progress returns the number of records stored for entityID.
func (c *Cursor) Progress(ctx context.Context, entityID int64) (int, error) {
	n, err := c.counter.Count(ctx, entityID)
	if err != nil {
		return 0, fmt.Errorf("progress: %w", err)
	}
	return n, nil
}
