package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/climatevalue/internal/model"
)

func TestCount_EmptyEntity(t *testing.T) {
	s := createTestStore(t)
	e := createTestEntity(t, s, "phoenix")

	n, err := s.Count(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecords_OrderedByDiscriminator(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e := createTestEntity(t, s, "phoenix")

	for _, d := range []string{"2023-01-03", "2023-01-01", "2023-01-02"} {
		_, err := s.Persist(ctx, e.ID, dayRecord(d, "1"))
		require.NoError(t, err)
	}

	recs, err := s.Records(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "2023-01-01", recs[0].Discriminator)
	assert.Equal(t, "2023-01-03", recs[2].Discriminator)
	assert.Equal(t, e.ID, recs[0].EntityID)
}

func TestAggregate_NotFound(t *testing.T) {
	s := createTestStore(t)
	e := createTestEntity(t, s, "phoenix")

	_, err := s.Aggregate(context.Background(), e.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestAggregates_JoinsEntityAndFiltersDomain(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	w := createTestEntity(t, s, "denver")
	v, err := s.EnsureEntity(ctx, model.Entity{
		Domain:   "vehicles",
		Key:      "ford/f150/2018/aurora/co/80010",
		Locality: "Aurora",
		Attrs:    map[string]string{"year": "2018"},
	})
	require.NoError(t, err)
	// Entity without aggregate is omitted.
	createTestEntity(t, s, "miami")

	require.NoError(t, s.PutAggregate(ctx, model.Aggregate{
		EntityID: w.ID, RecordCount: 1,
		Means: map[string]float64{"temperature_2m": 5}, Samples: map[string]int{"temperature_2m": 1},
	}))
	require.NoError(t, s.PutAggregate(ctx, model.Aggregate{
		EntityID: v.ID, RecordCount: 2,
		Means: map[string]float64{"price": 30000}, Samples: map[string]int{"price": 2},
	}))

	weather, err := s.Aggregates(ctx, "weather")
	require.NoError(t, err)
	require.Len(t, weather, 1)
	assert.Equal(t, "denver", weather[0].Entity.Key)
	assert.Equal(t, 5.0, weather[0].Aggregate.Means["temperature_2m"])

	vehicles, err := s.Aggregates(ctx, "vehicles")
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Aurora", vehicles[0].Entity.Locality)
	assert.Equal(t, "2018", vehicles[0].Entity.Attr("year"))
}

func TestEntities_CatalogOrder(t *testing.T) {
	s := createTestStore(t)
	for _, k := range []string{"phoenix", "miami", "denver"} {
		createTestEntity(t, s, k)
	}

	got, err := s.Entities(context.Background(), "weather")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "phoenix", got[0].Key)
	assert.Equal(t, "denver", got[2].Key)
}

func TestEntityByKey_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.EntityByKey(context.Background(), "weather", "atlantis")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestCountsByEntity_IncludesEmpty(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	a := createTestEntity(t, s, "phoenix")
	createTestEntity(t, s, "miami")

	for _, d := range []string{"2023-01-01", "2023-01-02"} {
		_, err := s.Persist(ctx, a.ID, dayRecord(d, "1"))
		require.NoError(t, err)
	}

	counts, err := s.CountsByEntity(ctx, "weather")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, 0, counts[1].Count)
}

func TestRuns_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.WriteRun(ctx, model.RunSummary{
			RunID: id, Domain: "weather", Budget: 10, StartedAt: at, FinishedAt: at,
		}))
	}

	runs, err := s.Runs(ctx, "weather", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)

	all, err := s.Runs(ctx, "weather", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	other, err := s.Runs(ctx, "vehicles", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}
