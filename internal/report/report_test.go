package report

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/climatevalue/internal/model"
	"github.com/roach88/climatevalue/internal/resolve"
)

var weatherFields = []string{"temperature_2m", "relative_humidity_2m"}

func city(key, locality string, temp, hum float64, n int) model.EntityAggregate {
	return model.EntityAggregate{
		Entity: model.Entity{Domain: "weather", Key: key, Locality: locality},
		Aggregate: model.Aggregate{
			RecordCount: n,
			Means:       map[string]float64{"temperature_2m": temp, "relative_humidity_2m": hum},
			Samples:     map[string]int{"temperature_2m": n, "relative_humidity_2m": n},
		},
	}
}

func listing(key, locality, year string, price float64, n int) model.EntityAggregate {
	return model.EntityAggregate{
		Entity: model.Entity{
			Domain:   "vehicles",
			Key:      key,
			Locality: locality,
			Attrs:    map[string]string{"year": year},
		},
		Aggregate: model.Aggregate{
			RecordCount: n,
			Means:       map[string]float64{"price": price},
			Samples:     map[string]int{"price": n},
		},
	}
}

func fixture() ([]model.EntityAggregate, []model.EntityAggregate) {
	weather := []model.EntityAggregate{
		city("denver", "Denver", 10, 50, 4),
		city("phoenix", "Phoenix", 25, 20, 2),
		city("seattle", "Seattle", 12, 80, 1),
	}
	vehicles := []model.EntityAggregate{
		listing("ford/f150/2024/aurora/co/80019", "Aurora", "2024", 50000, 2),
		listing("ford/f150/2018/aurora/co/80019", "Aurora", "2018", 30000, 2),
		listing("honda/civic/2024/aurora/co/80019", "aurora", "2024", 25000, 2),
		listing("honda/civic/2018/aurora/co/80019", "AURORA", "2018", 15000, 2),
		listing("ford/f150/2024/phoenix/az/85001", "Phoenix", "2024", 40000, 1),
		listing("ford/f150/2018/phoenix/az/85001", "Phoenix", "2018", 28000, 3),
		listing("ford/f150/2024/miami/fl/33101", "Miami", "2024", 45000, 2),
	}
	return weather, vehicles
}

func TestCorrelate_JoinsThroughAliases(t *testing.T) {
	weather, vehicles := fixture()
	res := resolve.New(map[string]string{"Aurora": "Denver"})

	got := Correlate(res, weather, vehicles, DefaultDepreciation())
	require.Len(t, got, 2)

	denver := got[0]
	assert.Equal(t, "denver", denver.Key)
	assert.InDelta(t, 40.0, denver.Value, 1e-9)
	assert.InDelta(t, 37500.0, denver.Components["new_price"], 1e-9)
	assert.InDelta(t, 22500.0, denver.Components["old_price"], 1e-9)
	assert.Len(t, denver.EntitiesB, 4)
	assert.Equal(t, []string{"denver"}, denver.EntitiesA)

	phoenix := got[1]
	assert.Equal(t, "phoenix", phoenix.Key)
	assert.InDelta(t, 30.0, phoenix.Value, 1e-9)
	assert.InDelta(t, 25.0, phoenix.Means["temperature_2m"], 1e-9)
}

func TestCorrelate_WithoutResolutionDropsMatchableRows(t *testing.T) {
	weather, vehicles := fixture()

	got := Correlate(resolve.New(nil), weather, vehicles, DefaultDepreciation())

	require.Len(t, got, 1)
	assert.Equal(t, "phoenix", got[0].Key)
}

func TestCorrelate_EachKeyOnce(t *testing.T) {
	weather := []model.EntityAggregate{
		city("denver", "Denver", 10, 50, 1),
		city("denver-airport", "denver", 20, 30, 3),
	}
	_, vehicles := fixture()
	res := resolve.New(map[string]string{"Aurora": "Denver"})

	got := Correlate(res, weather, vehicles, DefaultDepreciation())

	require.Len(t, got, 1)
	assert.InDelta(t, 17.5, got[0].Means["temperature_2m"], 1e-9, "weighted by samples")
	assert.Equal(t, 4, got[0].Samples["temperature_2m"])
}

func TestCorrelate_Empty(t *testing.T) {
	assert.Empty(t, Correlate(resolve.New(nil), nil, nil, DefaultDepreciation()))
}

func TestDepreciation_FallbackYear(t *testing.T) {
	group := []model.EntityAggregate{
		listing("tesla/model-3/2024/miami", "Miami", "2024", 40000, 1),
		listing("tesla/model-3/2023/miami", "Miami", "2023", 36000, 1),
	}

	v, ok := DefaultDepreciation().Compute(group)
	require.True(t, ok)
	assert.InDelta(t, 10.0, v.Value, 1e-9)

	_, ok = Depreciation{NewYear: 2024, OldYear: 2018}.Compute(group)
	assert.False(t, ok)
}

func TestDepreciation_ValueIncreased(t *testing.T) {
	group := []model.EntityAggregate{
		listing("a", "x", "2024", 20000, 1),
		listing("b", "x", "2018", 25000, 1),
	}

	v, ok := DefaultDepreciation().Compute(group)
	require.True(t, ok)
	assert.InDelta(t, -25.0, v.Value, 1e-9)
}

func TestWriteText_Golden(t *testing.T) {
	weather, vehicles := fixture()
	comps := Correlate(resolve.New(map[string]string{"Aurora": "Denver"}), weather, vehicles, DefaultDepreciation())

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, comps, weatherFields))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "correlation_text", buf.Bytes())
}

func TestWriteCSV_Golden(t *testing.T) {
	weather, vehicles := fixture()
	comps := Correlate(resolve.New(map[string]string{"Aurora": "Denver"}), weather, vehicles, DefaultDepreciation())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, comps, weatherFields))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "correlation_csv", buf.Bytes())
}

func TestWriteText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, nil, nil))
	assert.Equal(t, "No matching keys.\n", buf.String())
}

func TestWriteCSV_DefaultColumns(t *testing.T) {
	comps := []Comparison{{
		Key:    "k",
		Means:  map[string]float64{"b": 2, "a": 1.5},
		Metric: "depreciation",
		Value:  12.5,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, comps, nil))
	assert.Equal(t, "key,a,b,depreciation\nk,1.5,2,12.5\n", buf.String())
}
