package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedRecord is returned for a candidate that has no usable
// discriminator or none of the tracked fields. Malformed records are skipped
// and are counted neither as inserted nor as duplicate.
var ErrMalformedRecord = errors.New("malformed record")

// RawRecord is one candidate as returned by a fetch source: source-specific
// key/value pairs. The pipeline only interprets the discriminator and the
// tracked fields named by a Schema.
type RawRecord map[string]string

// Record is one ingested observation belonging to an entity.
// The pair (EntityID, Discriminator) is unique in the store.
type Record struct {
	ID            int64             `json:"id,omitempty"`
	EntityID      int64             `json:"entity_id"`
	Discriminator string            `json:"discriminator"`
	Fields        map[string]string `json:"fields"`
}

// Field returns the value of a tracked field and whether it is present.
func (r Record) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Schema tells the pipeline how to read RawRecords for a domain.
type Schema struct {
	Domain        string   `json:"domain"`
	Discriminator string   `json:"discriminator"`
	Fields        []string `json:"fields"`
}

// Validate checks that the schema names a discriminator and at least one field.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Discriminator) == "" {
		return fmt.Errorf("schema %q: discriminator is required", s.Domain)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %q: at least one tracked field is required", s.Domain)
	}
	return nil
}

// Record converts a raw candidate into a Record for entityID.
//
// Blank values are treated as absent. Returns ErrMalformedRecord (wrapped)
// when the discriminator is blank or every tracked field is absent.
func (s Schema) Record(entityID int64, raw RawRecord) (Record, error) {
	disc := strings.TrimSpace(raw[s.Discriminator])
	if disc == "" {
		return Record{}, fmt.Errorf("%w: missing %q", ErrMalformedRecord, s.Discriminator)
	}

	fields := make(map[string]string, len(s.Fields))
	for _, name := range s.Fields {
		v, ok := raw[name]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		fields[name] = v
	}
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("%w: %s=%s has no tracked fields", ErrMalformedRecord, s.Discriminator, disc)
	}

	return Record{
		EntityID:      entityID,
		Discriminator: disc,
		Fields:        fields,
	}, nil
}

// IsMalformed reports whether err is (or wraps) ErrMalformedRecord.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// Window is the fetch window handed to a source.
//
// Sources that always return the full range ignore Progress and rely on
// store-level deduplication. Sources that can slice start after Progress
// records.
type Window struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Progress int       `json:"progress"`
}

// DateLayout is the layout used for date discriminators and window bounds.
const DateLayout = "2006-01-02"
