// Package fetch retrieves candidate records for an entity from external
// sources.
//
// A Source returns a sequence of model.RawRecord for one entity and window.
// Sources either return the full configured range on every call (OpenMeteo,
// Listings) and rely on the store to drop duplicates, or slice the range
// starting after the entity's progress (VisualCrossing). Transport failures
// are reported as *FetchError; retries belong to the HTTP client, never to
// the caller.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/climatevalue/internal/model"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks github.com/roach88/climatevalue/internal/fetch Source

// Source produces candidate records for one entity.
type Source interface {
	Fetch(ctx context.Context, entity model.Entity, window model.Window) ([]model.RawRecord, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, entity model.Entity, window model.Window) ([]model.RawRecord, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, entity model.Entity, window model.Window) ([]model.RawRecord, error) {
	return f(ctx, entity, window)
}

// FetchError reports that a source could not produce candidates for an
// entity. The entity is marked failed for the run; other entities continue.
type FetchError struct {
	Entity string // natural key of the entity
	Source string // source name, e.g. "open-meteo"
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("fetch %s from %s: %v", e.Entity, e.Source, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError returns true if the error is a FetchError.
// Uses errors.As to handle wrapped errors.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// AsFetchError returns err as a *FetchError, wrapping it when needed.
// Returns nil for a nil err.
func AsFetchError(entity, source string, err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Entity: entity, Source: source, Err: err}
}
