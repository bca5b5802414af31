package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/climatevalue/internal/fetch"
	"github.com/roach88/climatevalue/internal/model"
	"github.com/roach88/climatevalue/internal/store"
)

// Store is the subset of *store.Store a Cycle needs.
type Store interface {
	Counter
	EnsureEntity(ctx context.Context, e model.Entity) (model.Entity, error)
	Persist(ctx context.Context, entityID int64, rec model.Record) (store.Outcome, error)
	WriteRun(ctx context.Context, run model.RunSummary) error
}

// Aggregator recomputes an entity's aggregate from its stored records.
// Implemented by *aggregate.Engine.
type Aggregator interface {
	Recompute(ctx context.Context, entityID int64) (model.Aggregate, error)
}

// DefaultBudget is the per-run record budget when none is configured.
const DefaultBudget = 100

// Cycle performs one ingestion invocation over a list of entities.
//
// A Cycle holds no state between runs; construct one per invocation or
// reuse it, the result is the same.
type Cycle struct {
	store  Store
	source fetch.Source
	schema model.Schema

	budget    int
	ceiling   int
	threshold int // 0 means "use ceiling"
	strategy  Strategy
	window    model.Window

	logger     *slog.Logger
	observer   Observer
	aggregator Aggregator
	runIDs     RunIDGenerator
	now        func() time.Time
}

// Option configures a Cycle.
type Option func(*Cycle)

// WithBudget sets the maximum number of new records per run.
func WithBudget(budget int) Option {
	return func(c *Cycle) {
		c.budget = budget
	}
}

// WithCeiling sets the per-entity completeness ceiling.
// A ceiling <= 0 disables it.
func WithCeiling(ceiling int) Option {
	return func(c *Cycle) {
		c.ceiling = ceiling
	}
}

// WithStrategy selects how the budget is split across entities.
func WithStrategy(s Strategy) Option {
	return func(c *Cycle) {
		c.strategy = s
	}
}

// WithAggregateThreshold sets the stored count from which an entity's
// aggregate is recomputed on every run. Defaults to the ceiling; with
// neither set, any entity with stored records is recomputed.
func WithAggregateThreshold(n int) Option {
	return func(c *Cycle) {
		c.threshold = n
	}
}

// WithWindow sets the fetch window handed to the source. Progress is filled
// in per entity.
func WithWindow(start, end time.Time) Option {
	return func(c *Cycle) {
		c.window = model.Window{Start: start, End: end}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cycle) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an observer for per-entity and per-run results.
func WithObserver(o Observer) Option {
	return func(c *Cycle) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithAggregator enables aggregate recomputation after ingestion.
func WithAggregator(a Aggregator) Option {
	return func(c *Cycle) {
		c.aggregator = a
	}
}

// WithRunIDGenerator overrides the run ID generator (UUIDv7 by default).
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Cycle) {
		if g != nil {
			c.runIDs = g
		}
	}
}

// WithClock overrides the wall clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cycle) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Cycle that ingests from source into st using schema.
func New(st Store, source fetch.Source, schema model.Schema, opts ...Option) (*Cycle, error) {
	if st == nil {
		return nil, errors.New("ingest: store is required")
	}
	if source == nil {
		return nil, errors.New("ingest: source is required")
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	c := &Cycle{
		store:    st,
		source:   source,
		schema:   schema,
		budget:   DefaultBudget,
		strategy: StrategyEven,
		logger:   slog.Default(),
		observer: nopObserver{},
		runIDs:   UUIDv7Generator{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.budget < 0 {
		return nil, fmt.Errorf("ingest: negative budget %d", c.budget)
	}
	return c, nil
}

// aggregateThreshold returns the effective threshold (0 = any stored record).
func (c *Cycle) aggregateThreshold() int {
	if c.threshold > 0 {
		return c.threshold
	}
	return max(c.ceiling, 0)
}

// Run ingests one invocation's worth of records for entities, in order.
//
// Entity-level failures (fetch errors, store errors for that entity) are
// recorded in the summary and do not stop the run. Only context
// cancellation aborts; the partial summary is recorded and returned with
// the error, including when the cancel lands during the last entity.
func (c *Cycle) Run(ctx context.Context, entities []model.Entity) (model.RunSummary, error) {
	summary := model.RunSummary{
		RunID:     c.runIDs.Generate(),
		Domain:    c.schema.Domain,
		Budget:    c.budget,
		StartedAt: c.now().UTC(),
	}
	logger := c.logger.With("run_id", summary.RunID, "domain", summary.Domain)

	limiter := NewLimiter(c.budget, c.ceiling, len(entities), c.strategy)
	cursor := NewCursor(c.store)

	logger.Info("ingest run started",
		"entities", len(entities),
		"budget", c.budget,
		"ceiling", c.ceiling,
		"strategy", string(c.strategy))

	complete := len(entities) > 0 && c.ceiling > 0
	var runErr error
	for _, e := range entities {
		if runErr = ctx.Err(); runErr != nil {
			break
		}

		if e.Domain == "" {
			e.Domain = c.schema.Domain
		}
		res := c.runEntity(ctx, logger, limiter, cursor, e)
		summary.Add(res)
		c.observer.EntityDone(summary.Domain, res)

		if res.Status == model.StatusFailed || !limiter.AtCeiling(res.Progress+res.Inserted) {
			complete = false
		}
	}
	if runErr == nil {
		runErr = ctx.Err()
	}
	summary.Complete = complete && runErr == nil
	summary.FinishedAt = c.now().UTC()

	// The run row is written even when the run was interrupted.
	if err := c.store.WriteRun(context.WithoutCancel(ctx), summary); err != nil {
		logger.Warn("failed to record run summary", "error", err)
	}
	c.observer.RunDone(summary, summary.FinishedAt.Sub(summary.StartedAt))

	if runErr != nil {
		logger.Warn("ingest run interrupted",
			"inserted", summary.Inserted,
			"entities_done", len(summary.Entities),
			"error", runErr)
		return summary, fmt.Errorf("ingest run %s: %w", summary.RunID, runErr)
	}

	logger.Info("ingest run finished",
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"complete", summary.Complete)

	return summary, nil
}

// runEntity executes the measure, allocate, fetch, persist steps for one
// entity and returns its result. It never returns an error; failures are
// reported through the result's status.
func (c *Cycle) runEntity(ctx context.Context, logger *slog.Logger, limiter *Limiter, cursor *Cursor, e model.Entity) model.EntityResult {
	res := model.EntityResult{Key: e.Key}
	log := logger.With("entity", e.Key)

	fail := func(err error) model.EntityResult {
		res.Status = model.StatusFailed
		res.Error = err.Error()
		log.Warn("entity failed", "error", err)
		return res
	}

	ent, err := c.store.EnsureEntity(ctx, e)
	if err != nil {
		return fail(err)
	}
	res.EntityID = ent.ID

	progress, err := cursor.Progress(ctx, ent.ID)
	if err != nil {
		return fail(err)
	}
	res.Progress = progress

	alloc := limiter.Allocate(progress)
	res.Allocation = alloc
	if alloc <= 0 {
		res.Status = model.StatusSkipped
		c.aggregate(ctx, log, &res, progress)
		log.Debug("entity skipped", "progress", progress)
		return res
	}

	window := c.window
	window.Progress = progress
	candidates, err := c.source.Fetch(ctx, ent, window)
	if err != nil {
		return fail(fetch.AsFetchError(ent.Key, "", err))
	}
	res.Candidates = len(candidates)

	for _, raw := range candidates {
		if res.Inserted >= alloc {
			break
		}

		rec, err := c.schema.Record(ent.ID, raw)
		if err != nil {
			res.Skipped++
			log.Debug("candidate skipped", "error", err)
			continue
		}

		outcome, err := c.store.Persist(ctx, ent.ID, rec)
		switch {
		case model.IsMalformed(err):
			res.Skipped++
			continue
		case err != nil:
			limiter.Consume(res.Inserted)
			return fail(err)
		}

		switch outcome {
		case store.Inserted:
			res.Inserted++
		case store.Duplicate:
			res.Duplicates++
		}
	}
	limiter.Consume(res.Inserted)
	res.Status = model.StatusDone

	count := progress + res.Inserted
	c.aggregate(ctx, log, &res, count)

	log.Info("entity ingested",
		"progress", count,
		"allocation", alloc,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"skipped", res.Skipped)

	return res
}

// aggregate recomputes the entity's aggregate once count reaches the
// threshold. It runs on every invocation past the threshold, whether or not
// anything was inserted, so a failed or interrupted recompute is repaired by
// the next run.
func (c *Cycle) aggregate(ctx context.Context, log *slog.Logger, res *model.EntityResult, count int) {
	if c.aggregator == nil || count == 0 || count < c.aggregateThreshold() {
		return
	}
	if _, err := c.aggregator.Recompute(ctx, res.EntityID); err != nil {
		log.Warn("aggregate recompute failed", "error", err)
		return
	}
	res.Aggregated = true
}
