package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weatherSchema() Schema {
	return Schema{
		Domain:        "weather",
		Discriminator: "date",
		Fields:        []string{"temperature_2m", "precipitation"},
	}
}

func TestSchemaRecord_Valid(t *testing.T) {
	rec, err := weatherSchema().Record(7, RawRecord{
		"date":           " 2018-01-01 ",
		"temperature_2m": "12.5",
		"precipitation":  "0",
		"ignored":        "x",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), rec.EntityID)
	assert.Equal(t, "2018-01-01", rec.Discriminator)
	assert.Equal(t, map[string]string{"temperature_2m": "12.5", "precipitation": "0"}, rec.Fields)
}

func TestSchemaRecord_PartialFields(t *testing.T) {
	rec, err := weatherSchema().Record(1, RawRecord{
		"date":           "2018-01-02",
		"temperature_2m": "3",
		"precipitation":  "  ",
	})
	require.NoError(t, err)

	_, ok := rec.Field("precipitation")
	assert.False(t, ok, "blank values are absent")
	v, ok := rec.Field("temperature_2m")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestSchemaRecord_MissingDiscriminator(t *testing.T) {
	_, err := weatherSchema().Record(1, RawRecord{"temperature_2m": "3"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRecord))
	assert.True(t, IsMalformed(err))
}

func TestSchemaRecord_NoTrackedFields(t *testing.T) {
	_, err := weatherSchema().Record(1, RawRecord{"date": "2018-01-02", "other": "1"})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, weatherSchema().Validate())
	assert.Error(t, Schema{Domain: "x", Fields: []string{"a"}}.Validate())
	assert.Error(t, Schema{Domain: "x", Discriminator: "d"}.Validate())
}

func TestNaturalKey(t *testing.T) {
	assert.Equal(t, "phoenix", NaturalKey(" Phoenix "))
	assert.Equal(t, "ford/f150/2018/miami/fl/33101", NaturalKey("Ford", "F150", "2018", "Miami", "FL", "33101"))
	assert.Equal(t, "a//b", NaturalKey("a", "", "b"))
}

func TestEntityAttr(t *testing.T) {
	e := Entity{Domain: "vehicles", Key: "k"}
	assert.Equal(t, "", e.Attr("year"))
	e.Attrs = map[string]string{"year": "2018"}
	assert.Equal(t, "2018", e.Attr("year"))
	assert.Equal(t, "vehicles/k", e.String())
}

func TestRunSummaryAdd(t *testing.T) {
	var s RunSummary
	s.Add(EntityResult{Key: "a", Status: StatusDone, Inserted: 3, Duplicates: 2, Skipped: 1})
	s.Add(EntityResult{Key: "b", Status: StatusFailed})
	s.Add(EntityResult{Key: "c", Status: StatusSkipped})

	assert.Equal(t, 3, s.Inserted)
	assert.Equal(t, 2, s.Duplicates)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Failed)
	assert.Len(t, s.Entities, 3)
}
