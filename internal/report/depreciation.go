package report

import (
	"strconv"

	"github.com/roach88/climatevalue/internal/model"
)

// Depreciation compares the average price of new and old listings sharing
// a key: (new - old) / new * 100. Positive means value decreased.
//
// Entities are assigned to a model year by their "year" attribute. Averages
// are weighted by each entity's price sample count, so the result equals
// the plain mean over all individual listings of that year.
type Depreciation struct {
	Field   string // price field, default "price"
	NewYear int
	OldYear int

	// FallbackOldYear is used when no entity of OldYear has prices, for
	// models that did not exist in OldYear. Zero disables the fallback.
	FallbackOldYear int
}

// DefaultDepreciation compares 2024 against 2018, falling back to 2023.
func DefaultDepreciation() Depreciation {
	return Depreciation{Field: "price", NewYear: 2024, OldYear: 2018, FallbackOldYear: 2023}
}

// Name implements Metric.
func (d Depreciation) Name() string {
	return "depreciation"
}

// Compute implements Metric.
func (d Depreciation) Compute(group []model.EntityAggregate) (Value, bool) {
	field := d.Field
	if field == "" {
		field = "price"
	}

	newPrice, ok := d.yearMean(group, field, d.NewYear)
	if !ok || newPrice == 0 {
		return Value{}, false
	}
	oldPrice, ok := d.yearMean(group, field, d.OldYear)
	if !ok && d.FallbackOldYear != 0 {
		oldPrice, ok = d.yearMean(group, field, d.FallbackOldYear)
	}
	if !ok {
		return Value{}, false
	}

	return Value{
		Value: (newPrice - oldPrice) / newPrice * 100,
		Components: map[string]float64{
			"new_price": newPrice,
			"old_price": oldPrice,
		},
	}, true
}

func (d Depreciation) yearMean(group []model.EntityAggregate, field string, year int) (float64, bool) {
	want := strconv.Itoa(year)

	var (
		sum float64
		n   int
	)
	for _, ea := range group {
		if ea.Entity.Attr("year") != want {
			continue
		}
		mean, ok := ea.Aggregate.Mean(field)
		if !ok {
			continue
		}
		k := ea.Aggregate.Samples[field]
		sum += mean * float64(k)
		n += k
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
