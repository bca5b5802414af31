package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/climatevalue/internal/model"
)

// Count returns the number of stored records for an entity.
// This is the entity's progress; there is no separate cursor.
func (s *Store) Count(ctx context.Context, entityID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM records WHERE entity_id = ?
	`), entityID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records for entity %d: %w", entityID, err)
	}
	return n, nil
}

// Records returns all records for an entity ordered by discriminator, then id.
func (s *Store) Records(ctx context.Context, entityID int64) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, entity_id, discriminator, fields
		FROM records
		WHERE entity_id = ?
		ORDER BY discriminator ASC, id ASC
	`), entityID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			r          model.Record
			fieldsJSON string
		)
		if err := rows.Scan(&r.ID, &r.EntityID, &r.Discriminator, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if r.Fields, err = unmarshalFields(fieldsJSON); err != nil {
			return nil, fmt.Errorf("record %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Aggregate returns the stored aggregate for an entity.
// Returns sql.ErrNoRows (wrapped) if none has been computed yet.
func (s *Store) Aggregate(ctx context.Context, entityID int64) (model.Aggregate, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT entity_id, record_count, means, samples, rejected
		FROM aggregates
		WHERE entity_id = ?
	`), entityID)

	agg, err := scanAggregate(row)
	if err != nil {
		return model.Aggregate{}, fmt.Errorf("read aggregate %d: %w", entityID, err)
	}
	return agg, nil
}

// Aggregates returns every stored aggregate in a domain together with its
// entity, in catalog order. Entities without an aggregate are omitted.
func (s *Store) Aggregates(ctx context.Context, domain string) ([]model.EntityAggregate, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT e.id, e.domain, e.natural_key, e.locality, e.latitude, e.longitude, e.attrs,
		       a.entity_id, a.record_count, a.means, a.samples, a.rejected
		FROM aggregates a
		JOIN entities e ON e.id = a.entity_id
		WHERE e.domain = ?
		ORDER BY e.id ASC
	`), domain)
	if err != nil {
		return nil, fmt.Errorf("query aggregates: %w", err)
	}
	defer rows.Close()

	var out []model.EntityAggregate
	for rows.Next() {
		var (
			ea                       model.EntityAggregate
			lat, lon                 sql.NullFloat64
			attrs                    string
			means, samples, rejected string
		)
		if err := rows.Scan(
			&ea.Entity.ID, &ea.Entity.Domain, &ea.Entity.Key, &ea.Entity.Locality, &lat, &lon, &attrs,
			&ea.Aggregate.EntityID, &ea.Aggregate.RecordCount, &means, &samples, &rejected,
		); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		if lat.Valid {
			ea.Entity.Latitude = model.Float(lat.Float64)
		}
		if lon.Valid {
			ea.Entity.Longitude = model.Float(lon.Float64)
		}
		if m, err := unmarshalMap[string](attrs); err != nil {
			return nil, fmt.Errorf("entity %d attrs: %w", ea.Entity.ID, err)
		} else if len(m) > 0 {
			ea.Entity.Attrs = m
		}
		if err := decodeAggregate(&ea.Aggregate, means, samples, rejected); err != nil {
			return nil, fmt.Errorf("entity %d: %w", ea.Entity.ID, err)
		}
		out = append(out, ea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregates: %w", err)
	}
	return out, nil
}

func scanAggregate(row rowScanner) (model.Aggregate, error) {
	var (
		agg                      model.Aggregate
		means, samples, rejected string
	)
	if err := row.Scan(&agg.EntityID, &agg.RecordCount, &means, &samples, &rejected); err != nil {
		return model.Aggregate{}, err
	}
	if err := decodeAggregate(&agg, means, samples, rejected); err != nil {
		return model.Aggregate{}, err
	}
	return agg, nil
}

func decodeAggregate(agg *model.Aggregate, means, samples, rejected string) error {
	var err error
	if agg.Means, err = unmarshalMap[float64](means); err != nil {
		return fmt.Errorf("unmarshal means: %w", err)
	}
	if agg.Samples, err = unmarshalMap[int](samples); err != nil {
		return fmt.Errorf("unmarshal samples: %w", err)
	}
	r, err := unmarshalMap[int](rejected)
	if err != nil {
		return fmt.Errorf("unmarshal rejected: %w", err)
	}
	if len(r) > 0 {
		agg.Rejected = r
	}
	return nil
}

// Runs returns the most recent run summaries for a domain, newest first.
// A limit <= 0 returns all runs.
func (s *Store) Runs(ctx context.Context, domain string, limit int) ([]model.RunSummary, error) {
	query := `
		SELECT id, domain, budget, started_at, finished_at, inserted, duplicates, skipped, failed, complete, entities
		FROM runs
		WHERE domain = ?
		ORDER BY started_at DESC, id DESC
	`
	args := []any{domain}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var (
			run               model.RunSummary
			started, finished string
			complete          int
			entitiesJSON      string
		)
		if err := rows.Scan(
			&run.RunID, &run.Domain, &run.Budget, &started, &finished,
			&run.Inserted, &run.Duplicates, &run.Skipped, &run.Failed, &complete, &entitiesJSON,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", run.RunID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("run %s finished_at: %w", run.RunID, err)
		}
		run.Complete = complete != 0
		if err := json.Unmarshal([]byte(entitiesJSON), &run.Entities); err != nil {
			return nil, fmt.Errorf("run %s entities: %w", run.RunID, err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// DuplicateGroup is an (entity, discriminator) pair stored more than once.
type DuplicateGroup struct {
	EntityID      int64  `json:"entity_id"`
	Key           string `json:"key"`
	Discriminator string `json:"discriminator"`
	Count         int    `json:"count"`
}

// Duplicates returns every (entity, discriminator) group with more than one
// record. With the uniqueness constraint in place the result is empty; the
// audit exists to prove that on a live database.
func (s *Store) Duplicates(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.entity_id, e.natural_key, r.discriminator, COUNT(*) AS n
		FROM records r
		JOIN entities e ON e.id = r.entity_id
		GROUP BY r.entity_id, e.natural_key, r.discriminator
		HAVING COUNT(*) > 1
		ORDER BY r.entity_id ASC, r.discriminator ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	defer rows.Close()

	var out []DuplicateGroup
	for rows.Next() {
		var g DuplicateGroup
		if err := rows.Scan(&g.EntityID, &g.Key, &g.Discriminator, &g.Count); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicates: %w", err)
	}
	return out, nil
}

// EntityCount is the stored record count for one entity.
type EntityCount struct {
	Entity model.Entity `json:"entity"`
	Count  int          `json:"count"`
}

// CountsByEntity returns the record count of every entity in a domain,
// including entities with no records, in catalog order.
func (s *Store) CountsByEntity(ctx context.Context, domain string) ([]EntityCount, error) {
	entities, err := s.Entities(ctx, domain)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT r.entity_id, COUNT(*)
		FROM records r
		JOIN entities e ON e.id = r.entity_id
		WHERE e.domain = ?
		GROUP BY r.entity_id
	`), domain)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int, len(entities))
	for rows.Next() {
		var (
			id int64
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}

	out := make([]EntityCount, len(entities))
	for i, e := range entities {
		out[i] = EntityCount{Entity: e, Count: counts[e.ID]}
	}
	return out, nil
}
