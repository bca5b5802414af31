package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/climatevalue/internal/aggregate"
	"github.com/roach88/climatevalue/internal/fetch"
	"github.com/roach88/climatevalue/internal/ingest"
	"github.com/roach88/climatevalue/internal/model"
	"github.com/roach88/climatevalue/internal/store"
	"github.com/roach88/climatevalue/internal/testutil"
)

// errInjected is returned by the source for entities listed in a run's fail.
var errInjected = errors.New("injected failure")

// Harness holds the state shared by the runs of one scenario.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	source   *fetch.Static
	clock    *testutil.StepClock
	runIDs   *testutil.SequentialRunIDs
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. The clock starts at
// testutil.Epoch and run IDs are "<name>-0001", "<name>-0002", ...
//
// Execution flow:
//  1. Create the store and the static source from declared candidates
//  2. Persist preloaded candidates
//  3. Execute each run, checking its expectations
//  4. Read final counts and evaluate assertions
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(ctx, store.Options{Driver: store.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		source:   fetch.NewStatic(nil),
		clock:    testutil.NewStepClock(testutil.Epoch, time.Second),
		runIDs:   testutil.NewSequentialRunIDs(scenario.Name),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if err := h.setup(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Runs {
		rr, err := h.executeRun(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		result.Runs = append(result.Runs, rr)
		for _, msg := range checkRun(i, step.Expect, rr) {
			result.AddError(msg)
		}
	}

	for _, e := range h.entities() {
		ent, err := st.EntityByKey(ctx, e.Domain, e.Key)
		if errors.Is(err, store.ErrEntityNotFound) {
			result.Counts[e.Key] = 0
			continue
		}
		if err != nil {
			return nil, err
		}
		n, err := st.Count(ctx, ent.ID)
		if err != nil {
			return nil, err
		}
		result.Counts[e.Key] = n
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, Scenario: scenario}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) entities() []model.Entity {
	out := make([]model.Entity, 0, len(h.scenario.Entities))
	for _, e := range h.scenario.Entities {
		out = append(out, model.Entity{
			Domain:   h.scenario.Domain,
			Key:      e.Key,
			Locality: e.Locality,
		})
	}
	return out
}

// Candidates generates the synthetic source data for an entity: malformed
// candidates first, then one record per day starting at testutil.Epoch.
func Candidates(s *Scenario, e EntityStep) []model.RawRecord {
	out := make([]model.RawRecord, 0, e.Malformed+e.Candidates)
	for i := 0; i < e.Malformed; i++ {
		raw := model.RawRecord{}
		for _, f := range s.Fields {
			raw[f] = "0"
		}
		out = append(out, raw)
	}
	for i := 0; i < e.Candidates; i++ {
		raw := model.RawRecord{
			s.Discriminator: testutil.Epoch.AddDate(0, 0, i).Format(model.DateLayout),
		}
		for j, f := range s.Fields {
			raw[f] = strconv.Itoa(10 + i%10 + j)
		}
		out = append(out, raw)
	}
	return out
}

func (h *Harness) setup(ctx context.Context) error {
	schema := h.schema()
	for i, e := range h.entities() {
		step := h.scenario.Entities[i]
		candidates := Candidates(h.scenario, step)
		h.source.Set(e.Key, candidates)

		if step.Preload == 0 {
			continue
		}
		ent, err := h.store.EnsureEntity(ctx, e)
		if err != nil {
			return err
		}
		for _, raw := range candidates[step.Malformed : step.Malformed+step.Preload] {
			rec, err := schema.Record(ent.ID, raw)
			if err != nil {
				return err
			}
			if _, err := h.store.Persist(ctx, ent.ID, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Harness) schema() model.Schema {
	return model.Schema{
		Domain:        h.scenario.Domain,
		Discriminator: h.scenario.Discriminator,
		Fields:        h.scenario.Fields,
	}
}

// cancelObserver cancels the run context once n entities have finished.
type cancelObserver struct {
	n      int
	seen   int
	cancel context.CancelFunc
}

func (o *cancelObserver) EntityDone(string, model.EntityResult) {
	o.seen++
	if o.n > 0 && o.seen >= o.n {
		o.cancel()
	}
}

func (o *cancelObserver) RunDone(model.RunSummary, time.Duration) {}

func (h *Harness) executeRun(ctx context.Context, step RunStep) (RunResult, error) {
	for _, key := range step.Fail {
		h.source.Fail(key, errInjected)
	}
	defer func() {
		for _, key := range step.Fail {
			h.source.Fail(key, nil)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	strategy, err := ingest.ParseStrategy(h.scenario.Strategy)
	if err != nil {
		return RunResult{}, err
	}

	opts := []ingest.Option{
		ingest.WithBudget(h.scenario.Budget),
		ingest.WithCeiling(h.scenario.Ceiling),
		ingest.WithStrategy(strategy),
		ingest.WithLogger(h.logger),
		ingest.WithClock(h.clock.Now),
		ingest.WithRunIDGenerator(h.runIDs),
		ingest.WithObserver(&cancelObserver{n: step.CancelAfter, cancel: cancel}),
	}
	if agg := h.scenario.Aggregate; agg != nil {
		engine := aggregate.New(h.store, h.scenario.Fields, aggregate.WithLogger(h.logger))
		opts = append(opts,
			ingest.WithAggregator(engine),
			ingest.WithAggregateThreshold(agg.Threshold))
	}

	cycle, err := ingest.New(h.store, h.source, h.schema(), opts...)
	if err != nil {
		return RunResult{}, err
	}

	summary, err := cycle.Run(runCtx, h.entities())
	switch {
	case errors.Is(err, context.Canceled) && step.CancelAfter > 0:
		return RunResult{Summary: summary, Canceled: true}, nil
	case err != nil:
		return RunResult{}, err
	}
	return RunResult{Summary: summary}, nil
}
