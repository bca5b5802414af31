// Package aggregate derives per-entity summaries from stored records.
//
// Compute is a pure function of a record set; Engine reads an entity's
// records from the store, computes, and overwrites the stored aggregate.
// Recomputing with no new records yields a byte-identical row.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/climatevalue/internal/model"
)

// Compute returns the mean of every tracked field over records.
//
// A field absent from a record is excluded from that field's mean (never
// treated as zero). A present value that does not parse as a number is
// excluded too and counted in Rejected. Fields with no contributing
// records have no entry in Means or Samples.
func Compute(entityID int64, records []model.Record, fields []string) model.Aggregate {
	agg := model.Aggregate{
		EntityID:    entityID,
		RecordCount: len(records),
		Means:       make(map[string]float64, len(fields)),
		Samples:     make(map[string]int, len(fields)),
	}

	for _, field := range fields {
		var (
			sum float64
			n   int
		)
		for _, rec := range records {
			raw, ok := rec.Field(field)
			if !ok {
				continue
			}
			v, ok := model.ParseNumeric(raw)
			if !ok {
				if agg.Rejected == nil {
					agg.Rejected = make(map[string]int)
				}
				agg.Rejected[field]++
				continue
			}
			sum += v
			n++
		}
		if n > 0 {
			agg.Means[field] = sum / float64(n)
			agg.Samples[field] = n
		}
	}
	return agg
}

// Store is the subset of *store.Store the Engine needs.
type Store interface {
	Entities(ctx context.Context, domain string) ([]model.Entity, error)
	Records(ctx context.Context, entityID int64) ([]model.Record, error)
	PutAggregate(ctx context.Context, agg model.Aggregate) error
}

// Engine recomputes stored aggregates.
type Engine struct {
	store  Store
	fields []string
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine averaging the given tracked fields.
func New(s Store, fields []string, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		fields: append([]string(nil), fields...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recompute reads all records of entityID and overwrites its aggregate.
func (e *Engine) Recompute(ctx context.Context, entityID int64) (model.Aggregate, error) {
	records, err := e.store.Records(ctx, entityID)
	if err != nil {
		return model.Aggregate{}, fmt.Errorf("recompute %d: %w", entityID, err)
	}

	agg := Compute(entityID, records, e.fields)
	if err := e.store.PutAggregate(ctx, agg); err != nil {
		return model.Aggregate{}, fmt.Errorf("recompute %d: %w", entityID, err)
	}

	if len(agg.Rejected) > 0 {
		e.logger.Debug("non-numeric values excluded from aggregate",
			"entity_id", entityID, "rejected", agg.Rejected)
	}
	return agg, nil
}

// Result is the outcome of recomputing one entity in a batch.
type Result struct {
	Entity    model.Entity    `json:"entity"`
	Aggregate model.Aggregate `json:"aggregate"`
	Error     string          `json:"error,omitempty"`
}

// RecomputeDomain recomputes every entity of a domain, in catalog order.
// A failure for one entity is recorded in its Result and does not stop the
// batch; only failing to list entities returns an error.
func (e *Engine) RecomputeDomain(ctx context.Context, domain string) ([]Result, error) {
	entities, err := e.store.Entities(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("recompute domain %s: %w", domain, err)
	}

	out := make([]Result, 0, len(entities))
	for _, ent := range entities {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		agg, err := e.Recompute(ctx, ent.ID)
		r := Result{Entity: ent, Aggregate: agg}
		if err != nil {
			r.Error = err.Error()
			e.logger.Warn("aggregate failed", "domain", domain, "entity", ent.Key, "error", err)
		}
		out = append(out, r)
	}

	e.logger.Info("aggregates recomputed", "domain", domain, "entities", len(out))
	return out, nil
}
