// Package config defines climatevalue configuration and its loading.
//
// Configuration is layered: Default(), then an optional YAML file, then
// CLIMATEVALUE_* environment variables. The result is checked against an
// embedded CUE schema before use.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/climatevalue/internal/fetch"
	"github.com/roach88/climatevalue/internal/ingest"
	"github.com/roach88/climatevalue/internal/model"
	"github.com/roach88/climatevalue/internal/report"
	"github.com/roach88/climatevalue/internal/store"
)

// Source kinds.
const (
	SourceOpenMeteo      = "openmeteo"
	SourceVisualCrossing = "visualcrossing"
	SourceListings       = "listings"
	SourceStatic         = "static"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" json:"log_level"`

	Database store.Options `koanf:"database" json:"database"`

	Cache Cache `koanf:"cache" json:"cache"`

	Metrics Metrics `koanf:"metrics" json:"metrics"`

	// Aliases maps variant locality spellings to a canonical one.
	Aliases map[string]string `koanf:"aliases" json:"aliases,omitempty"`

	Correlation Correlation `koanf:"correlation" json:"correlation"`

	Domains map[string]Domain `koanf:"domains" json:"domains,omitempty"`
}

// Cache configures the fetch document cache.
type Cache struct {
	Backend  string        `koanf:"backend" json:"backend"`
	TTL      time.Duration `koanf:"ttl" json:"ttl"`
	RedisURL string        `koanf:"redis_url" json:"redis_url,omitempty"`
	Prefix   string        `koanf:"prefix" json:"prefix,omitempty"`
}

// Metrics configures the Prometheus textfile export.
type Metrics struct {
	// Textfile is written after each command when set.
	Textfile string `koanf:"textfile" json:"textfile,omitempty"`
}

// Correlation selects the two domains joined by the correlation report and
// the depreciation years compared on the right side.
type Correlation struct {
	Left            string `koanf:"left" json:"left"`
	Right           string `koanf:"right" json:"right"`
	Field           string `koanf:"field" json:"field"`
	NewYear         int    `koanf:"new_year" json:"new_year"`
	OldYear         int    `koanf:"old_year" json:"old_year"`
	FallbackOldYear int    `koanf:"fallback_old_year" json:"fallback_old_year"`
}

// Domain configures ingestion for one domain.
type Domain struct {
	Budget        int      `koanf:"budget" json:"budget"`
	Ceiling       int      `koanf:"ceiling" json:"ceiling"`
	Threshold     int      `koanf:"threshold" json:"threshold"`
	Strategy      string   `koanf:"strategy" json:"strategy"`
	Discriminator string   `koanf:"discriminator" json:"discriminator"`
	Fields        []string `koanf:"fields" json:"fields"`
	Window        *Window  `koanf:"window" json:"window,omitempty"`
	Source        Source   `koanf:"source" json:"source"`
	Entities      []Entity `koanf:"entities" json:"entities,omitempty"`
}

// Window bounds the observation range, as YYYY-MM-DD dates.
type Window struct {
	Start string `koanf:"start" json:"start"`
	End   string `koanf:"end" json:"end"`
}

// Source selects and parameterizes the fetch service for a domain.
type Source struct {
	Kind      string   `koanf:"kind" json:"kind"`
	URL       string   `koanf:"url" json:"url,omitempty"`
	APIKey    string   `koanf:"api_key" json:"api_key,omitempty"`
	Hour      *int     `koanf:"hour" json:"hour,omitempty"` // nil uses the source default
	Variables []string `koanf:"variables" json:"variables,omitempty"`

	// Path is the JSON records file for the static source.
	Path string `koanf:"path" json:"path,omitempty"`

	RateLimit float64 `koanf:"rate_limit" json:"rate_limit,omitempty"`
}

// Entity declares one tracked entity.
type Entity struct {
	Key       string            `koanf:"key" json:"key,omitempty"`
	Locality  string            `koanf:"locality" json:"locality"`
	Latitude  *float64          `koanf:"latitude" json:"latitude,omitempty"`
	Longitude *float64          `koanf:"longitude" json:"longitude,omitempty"`
	Attrs     map[string]string `koanf:"attrs" json:"attrs,omitempty"`
}

// Default returns the built-in configuration. It declares no domains.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Database: store.Options{
			Driver: store.DriverSQLite,
			DSN:    "climatevalue.db",
		},
		Cache: Cache{
			Backend: CacheMemory,
			TTL:     fetch.DefaultCacheTTL,
			Prefix:  "climatevalue:",
		},
		Correlation: Correlation{
			Left:            "weather",
			Right:           "vehicles",
			Field:           "price",
			NewYear:         2024,
			OldYear:         2018,
			FallbackOldYear: 2023,
		},
	}
}

// applyDefaults fills per-domain zero values. Map entries decoded from a
// file start from zero, so their defaults are applied after unmarshal.
func (c *Config) applyDefaults() {
	for name, d := range c.Domains {
		if d.Budget == 0 {
			d.Budget = ingest.DefaultBudget
		}
		if d.Strategy == "" {
			d.Strategy = string(ingest.StrategyEven)
		}
		c.Domains[name] = d
	}
}

// Domain returns the named domain's configuration.
func (c *Config) Domain(name string) (Domain, error) {
	d, ok := c.Domains[name]
	if !ok {
		return Domain{}, fmt.Errorf("%w: unknown domain %q (configured: %s)",
			ErrInvalidConfig, name, strings.Join(c.DomainNames(), ", "))
	}
	return d, nil
}

// DomainNames lists configured domains in sorted order.
func (c *Config) DomainNames() []string {
	names := make([]string, 0, len(c.Domains))
	for name := range c.Domains {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Depreciation builds the correlation metric.
func (c Correlation) Depreciation() report.Depreciation {
	return report.Depreciation{
		Field:           c.Field,
		NewYear:         c.NewYear,
		OldYear:         c.OldYear,
		FallbackOldYear: c.FallbackOldYear,
	}
}

// Schema returns the record schema for the named domain.
func (d Domain) Schema(name string) model.Schema {
	return model.Schema{
		Domain:        name,
		Discriminator: d.Discriminator,
		Fields:        slices.Clone(d.Fields),
	}
}

// EntityList converts the declared entities into catalog entries.
// A missing key is derived from the locality and attribute values.
func (d Domain) EntityList(name string) []model.Entity {
	out := make([]model.Entity, 0, len(d.Entities))
	for _, e := range d.Entities {
		key := e.Key
		if key == "" {
			key = deriveKey(e)
		}
		out = append(out, model.Entity{
			Domain:    name,
			Key:       key,
			Locality:  e.Locality,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			Attrs:     e.Attrs,
		})
	}
	return out
}

func deriveKey(e Entity) string {
	parts := []string{e.Locality}
	names := make([]string, 0, len(e.Attrs))
	for name := range e.Attrs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		parts = append(parts, e.Attrs[name])
	}
	return model.NaturalKey(parts...)
}

// Bounds parses the window. A nil window yields zero times.
func (w *Window) Bounds() (time.Time, time.Time, error) {
	if w == nil {
		return time.Time{}, time.Time{}, nil
	}
	start, err := time.Parse(model.DateLayout, w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: window start: %v", ErrInvalidConfig, err)
	}
	end, err := time.Parse(model.DateLayout, w.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: window end: %v", ErrInvalidConfig, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: window ends before it starts", ErrInvalidConfig)
	}
	return start, end, nil
}
