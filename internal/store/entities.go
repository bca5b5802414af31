package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/climatevalue/internal/model"
)

// ErrEntityNotFound is returned by EntityByKey when no entity matches.
var ErrEntityNotFound = errors.New("entity not found")

const entityColumns = `id, domain, natural_key, locality, latitude, longitude, attrs`

// EnsureEntity returns the catalog entry for (e.Domain, e.Key), creating it
// on first reference. The surrogate ID of an existing entity never changes;
// descriptive metadata is fixed by the first reference.
func (s *Store) EnsureEntity(ctx context.Context, e model.Entity) (model.Entity, error) {
	if strings.TrimSpace(e.Domain) == "" || strings.TrimSpace(e.Key) == "" {
		return model.Entity{}, fmt.Errorf("ensure entity: domain and key are required (got %q)", e.String())
	}

	attrsJSON, err := marshalMap(e.Attrs)
	if err != nil {
		return model.Entity{}, fmt.Errorf("ensure entity %s: marshal attrs: %w", e, err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO entities (domain, natural_key, locality, latitude, longitude, attrs)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain, natural_key) DO NOTHING
	`),
		e.Domain,
		e.Key,
		e.Locality,
		nullFloat(e.Latitude),
		nullFloat(e.Longitude),
		attrsJSON,
	)
	if err != nil {
		return model.Entity{}, fmt.Errorf("ensure entity %s: %w", e, err)
	}

	got, err := s.EntityByKey(ctx, e.Domain, e.Key)
	if err != nil {
		return model.Entity{}, fmt.Errorf("ensure entity %s: %w", e, err)
	}
	return got, nil
}

// EntityByKey looks up an entity by its natural key within a domain.
// Returns ErrEntityNotFound (wrapped) when absent.
func (s *Store) EntityByKey(ctx context.Context, domain, key string) (model.Entity, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+entityColumns+`
		FROM entities
		WHERE domain = ? AND natural_key = ?
	`), domain, key)

	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entity{}, fmt.Errorf("%w: %s/%s", ErrEntityNotFound, domain, key)
	}
	if err != nil {
		return model.Entity{}, fmt.Errorf("entity by key: %w", err)
	}
	return e, nil
}

// Entities returns every entity in a domain, ordered by surrogate ID
// (catalog order).
func (s *Store) Entities(ctx context.Context, domain string) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+entityColumns+`
		FROM entities
		WHERE domain = ?
		ORDER BY id ASC
	`), domain)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (model.Entity, error) {
	var (
		e         model.Entity
		lat, lon  sql.NullFloat64
		attrsJSON string
	)
	if err := row.Scan(&e.ID, &e.Domain, &e.Key, &e.Locality, &lat, &lon, &attrsJSON); err != nil {
		return model.Entity{}, err
	}
	if lat.Valid {
		e.Latitude = model.Float(lat.Float64)
	}
	if lon.Valid {
		e.Longitude = model.Float(lon.Float64)
	}
	attrs, err := unmarshalMap[string](attrsJSON)
	if err != nil {
		return model.Entity{}, fmt.Errorf("unmarshal attrs: %w", err)
	}
	if len(attrs) > 0 {
		e.Attrs = attrs
	}
	return e, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
