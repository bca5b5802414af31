package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/climatevalue/internal/model"
	"github.com/roach88/climatevalue/internal/testutil"
)

func rec(disc string, fields map[string]string) model.Record {
	return model.Record{Discriminator: disc, Fields: fields}
}

func TestCompute_MeanPerField(t *testing.T) {
	records := []model.Record{
		rec("2023-01-01", map[string]string{"temperature_2m": "10", "windspeed_10m": "4"}),
		rec("2023-01-02", map[string]string{"temperature_2m": "20"}),
		rec("2023-01-03", map[string]string{"temperature_2m": "30", "windspeed_10m": "8"}),
	}

	agg := Compute(7, records, []string{"temperature_2m", "windspeed_10m", "precipitation"})

	assert.Equal(t, int64(7), agg.EntityID)
	assert.Equal(t, 3, agg.RecordCount)
	assert.InDelta(t, 20.0, agg.Means["temperature_2m"], 1e-9)
	assert.InDelta(t, 6.0, agg.Means["windspeed_10m"], 1e-9, "absent is excluded, not zero")
	assert.Equal(t, 2, agg.Samples["windspeed_10m"])
	assert.NotContains(t, agg.Means, "precipitation")
	assert.Nil(t, agg.Rejected)
}

func TestCompute_CoercesPriceText(t *testing.T) {
	records := []model.Record{
		rec("$23,500", map[string]string{"price": "$23,500"}),
		rec("$26,500", map[string]string{"price": "$26,500"}),
		rec("Call for price", map[string]string{"price": "Call for price"}),
	}

	agg := Compute(1, records, []string{"price"})

	assert.InDelta(t, 25000.0, agg.Means["price"], 1e-9)
	assert.Equal(t, 2, agg.Samples["price"])
	assert.Equal(t, 1, agg.Rejected["price"])
}

func TestCompute_NoRecords(t *testing.T) {
	agg := Compute(1, nil, []string{"price"})

	assert.Equal(t, 0, agg.RecordCount)
	assert.Empty(t, agg.Means)
	_, ok := agg.Mean("price")
	assert.False(t, ok)
}

func TestCompute_Pure(t *testing.T) {
	records := []model.Record{
		rec("a", map[string]string{"x": "1.5"}),
		rec("b", map[string]string{"x": "2.5"}),
	}
	assert.Equal(t, Compute(1, records, []string{"x"}), Compute(1, records, []string{"x"}))
}

func TestEngine_RecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e, err := s.EnsureEntity(ctx, model.Entity{Domain: "weather", Key: "phoenix"})
	require.NoError(t, err)

	for i, temp := range []string{"30", "32", "34"} {
		_, err := s.Persist(ctx, e.ID, rec([]string{"d1", "d2", "d3"}[i], map[string]string{"temperature_2m": temp}))
		require.NoError(t, err)
	}

	eng := New(s, []string{"temperature_2m"})

	first, err := eng.Recompute(ctx, e.ID)
	require.NoError(t, err)
	rowBefore := rawAggregateRow(t, s.DB(), e.ID)

	second, err := eng.Recompute(ctx, e.ID)
	require.NoError(t, err)
	rowAfter := rawAggregateRow(t, s.DB(), e.ID)

	assert.Equal(t, first, second)
	assert.Equal(t, rowBefore, rowAfter)
	assert.InDelta(t, 32.0, first.Means["temperature_2m"], 1e-9)

	stored, err := s.Aggregate(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.RecordCount)
}

func TestEngine_RecomputeReflectsNewRecords(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)
	e, err := s.EnsureEntity(ctx, model.Entity{Domain: "weather", Key: "miami"})
	require.NoError(t, err)

	eng := New(s, []string{"temperature_2m"})

	_, err = s.Persist(ctx, e.ID, rec("d1", map[string]string{"temperature_2m": "10"}))
	require.NoError(t, err)
	_, err = eng.Recompute(ctx, e.ID)
	require.NoError(t, err)

	_, err = s.Persist(ctx, e.ID, rec("d2", map[string]string{"temperature_2m": "20"}))
	require.NoError(t, err)
	agg, err := eng.Recompute(ctx, e.ID)
	require.NoError(t, err)

	assert.InDelta(t, 15.0, agg.Means["temperature_2m"], 1e-9)
}

func TestEngine_RecomputeDomain(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewStore(t)

	for _, k := range []string{"phoenix", "denver"} {
		e, err := s.EnsureEntity(ctx, model.Entity{Domain: "weather", Key: k})
		require.NoError(t, err)
		_, err = s.Persist(ctx, e.ID, rec("d1", map[string]string{"temperature_2m": "5"}))
		require.NoError(t, err)
	}
	_, err := s.EnsureEntity(ctx, model.Entity{Domain: "vehicles", Key: "other"})
	require.NoError(t, err)

	results, err := New(s, []string{"temperature_2m"}).RecomputeDomain(ctx, "weather")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "phoenix", results[0].Entity.Key)
	assert.Empty(t, results[0].Error)

	aggs, err := s.Aggregates(ctx, "weather")
	require.NoError(t, err)
	assert.Len(t, aggs, 2)
}
