package ingest

import (
	"time"

	"github.com/roach88/climatevalue/internal/model"
)

// Observer receives per-entity and per-run results, e.g. to export metrics.
type Observer interface {
	EntityDone(domain string, result model.EntityResult)
	RunDone(summary model.RunSummary, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) EntityDone(string, model.EntityResult)   {}
func (nopObserver) RunDone(model.RunSummary, time.Duration) {}
