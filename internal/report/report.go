// Package report joins aggregates from two domains on a canonical key and
// derives a comparison metric for each joined key.
//
// The join is inner: a key present in only one domain is dropped, never
// reported as a partial row. Every key appears at most once in the output,
// however many entities of either domain resolve to it.
package report

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/climatevalue/internal/model"
)

// Canonicalizer maps a raw identifier to its join key.
// Implemented by *resolve.Resolver.
type Canonicalizer interface {
	Canonicalize(raw string) string
}

// Value is a derived metric for one key.
type Value struct {
	Value      float64            `json:"value"`
	Components map[string]float64 `json:"components,omitempty"`
}

// Metric derives a comparison value from the domain-B aggregates that share
// a key. It returns false when the group lacks the data points it needs.
type Metric interface {
	Name() string
	Compute(group []model.EntityAggregate) (Value, bool)
}

// Comparison is one joined row.
type Comparison struct {
	Key        string             `json:"key"`
	Means      map[string]float64 `json:"means"`
	Samples    map[string]int     `json:"samples"`
	Metric     string             `json:"metric"`
	Value      float64            `json:"value"`
	Components map[string]float64 `json:"components,omitempty"`
	EntitiesA  []string           `json:"entities_a"`
	EntitiesB  []string           `json:"entities_b"`
}

// Option configures Correlate.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report dropped keys at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Correlate joins a and b on the canonicalized entity locality.
//
// Side A contributes sample-weighted means of its aggregates; side B
// contributes metric. Output is sorted by key.
func Correlate(res Canonicalizer, a, b []model.EntityAggregate, metric Metric, opts ...Option) []Comparison {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	groupsA := group(res, a)
	groupsB := group(res, b)

	var out []Comparison
	for _, key := range slices.Sorted(maps.Keys(groupsA)) {
		ga := groupsA[key]
		gb, ok := groupsB[key]
		if !ok {
			o.logger.Debug("no counterpart", "key", key, "side", "b")
			continue
		}

		v, ok := metric.Compute(gb)
		if !ok {
			o.logger.Debug("metric undefined", "key", key, "metric", metric.Name())
			continue
		}

		means, samples := weightedMeans(ga)
		out = append(out, Comparison{
			Key:        key,
			Means:      means,
			Samples:    samples,
			Metric:     metric.Name(),
			Value:      v.Value,
			Components: v.Components,
			EntitiesA:  entityKeys(ga),
			EntitiesB:  entityKeys(gb),
		})
	}

	for key := range groupsB {
		if _, ok := groupsA[key]; !ok {
			o.logger.Debug("no counterpart", "key", key, "side", "a")
		}
	}
	return out
}

func group(res Canonicalizer, aggs []model.EntityAggregate) map[string][]model.EntityAggregate {
	out := make(map[string][]model.EntityAggregate)
	for _, ea := range aggs {
		raw := ea.Entity.Locality
		if raw == "" {
			raw = ea.Entity.Key
		}
		key := res.Canonicalize(raw)
		if key == "" {
			continue
		}
		out[key] = append(out[key], ea)
	}
	return out
}

// weightedMeans merges the means of several aggregates, weighting each by
// its sample count for the field.
func weightedMeans(group []model.EntityAggregate) (map[string]float64, map[string]int) {
	sums := make(map[string]float64)
	samples := make(map[string]int)
	for _, ea := range group {
		for field, mean := range ea.Aggregate.Means {
			n := ea.Aggregate.Samples[field]
			if n <= 0 {
				continue
			}
			sums[field] += mean * float64(n)
			samples[field] += n
		}
	}

	means := make(map[string]float64, len(sums))
	for field, sum := range sums {
		means[field] = sum / float64(samples[field])
	}
	return means, samples
}

func entityKeys(group []model.EntityAggregate) []string {
	keys := make([]string, len(group))
	for i, ea := range group {
		keys[i] = ea.Entity.Key
	}
	slices.Sort(keys)
	return keys
}
