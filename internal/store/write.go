package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/climatevalue/internal/model"
)

// Outcome reports what Persist did with a record.
type Outcome int

const (
	// Inserted means the record was new and is now stored.
	Inserted Outcome = iota + 1

	// Duplicate means a record with the same (entity, discriminator)
	// already existed. The stored record is unchanged.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Persist stores rec for entityID unless a record with the same
// discriminator already exists.
//
// Each call commits its own transaction, so an interruption never loses a
// record that Persist has already reported. A duplicate is not an error.
// A blank discriminator returns model.ErrMalformedRecord and writes nothing.
func (s *Store) Persist(ctx context.Context, entityID int64, rec model.Record) (Outcome, error) {
	disc := strings.TrimSpace(rec.Discriminator)
	if disc == "" {
		return 0, fmt.Errorf("persist: %w: blank discriminator", model.ErrMalformedRecord)
	}

	fieldsJSON, err := marshalFields(rec.Fields)
	if err != nil {
		return 0, fmt.Errorf("persist: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("persist: begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback is no-op if committed

	result, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO records (entity_id, discriminator, fields)
		VALUES (?, ?, ?)
		ON CONFLICT (entity_id, discriminator) DO NOTHING
	`), entityID, disc, fieldsJSON)
	if err != nil {
		return 0, fmt.Errorf("persist record %d/%s: %w", entityID, disc, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("persist: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("persist: commit: %w", err)
	}

	if affected == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

// PutAggregate writes agg, replacing any previous aggregate for the entity.
// Map columns are stored as sorted-key JSON so identical aggregates produce
// byte-identical rows.
func (s *Store) PutAggregate(ctx context.Context, agg model.Aggregate) error {
	means, err := marshalMap(agg.Means)
	if err != nil {
		return fmt.Errorf("put aggregate: marshal means: %w", err)
	}
	samples, err := marshalMap(agg.Samples)
	if err != nil {
		return fmt.Errorf("put aggregate: marshal samples: %w", err)
	}
	rejected, err := marshalMap(agg.Rejected)
	if err != nil {
		return fmt.Errorf("put aggregate: marshal rejected: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO aggregates (entity_id, record_count, means, samples, rejected)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_id) DO UPDATE SET
			record_count = excluded.record_count,
			means = excluded.means,
			samples = excluded.samples,
			rejected = excluded.rejected
	`), agg.EntityID, agg.RecordCount, means, samples, rejected)
	if err != nil {
		return fmt.Errorf("put aggregate %d: %w", agg.EntityID, err)
	}
	return nil
}

// WriteRun records a run summary for display. Runs are never read back
// to decide what to ingest.
func (s *Store) WriteRun(ctx context.Context, run model.RunSummary) error {
	if run.RunID == "" {
		return fmt.Errorf("write run: run ID is required")
	}

	entities := run.Entities
	if entities == nil {
		entities = []model.EntityResult{}
	}
	entitiesJSON, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("write run: marshal entities: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO runs
		(id, domain, budget, started_at, finished_at, inserted, duplicates, skipped, failed, complete, entities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`),
		run.RunID,
		run.Domain,
		run.Budget,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Inserted,
		run.Duplicates,
		run.Skipped,
		run.Failed,
		boolToInt(run.Complete),
		string(entitiesJSON),
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.RunID, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
