package extract

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/climatevalue/internal/model"
)

func TestHTMLPrices_ExtractsMatchingElements(t *testing.T) {
	doc, err := os.ReadFile("testdata/listings.html")
	require.NoError(t, err)

	got, err := HTMLPrices{}.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, []model.RawRecord{
		{"price": "$28,495"},
		{"price": "$34,990"},
	}, got)
}

func TestHTMLPrices_CustomClassesAndField(t *testing.T) {
	doc := []byte(`<ul><li class="p">1</li><li class="p x">2</li><li class="x">3</li></ul>`)

	got, err := HTMLPrices{Classes: []string{"p"}, Field: "amount"}.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, []model.RawRecord{{"amount": "1"}, {"amount": "2"}}, got)
}

func TestHTMLPrices_NoMatches(t *testing.T) {
	got, err := HTMLPrices{}.Extract([]byte(`<p>nothing for sale</p>`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJSONDays_Extract(t *testing.T) {
	doc, err := os.ReadFile("testdata/timeline.json")
	require.NoError(t, err)

	got, err := JSONDays{DateKey: "datetime"}.Extract(doc)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "2023-01-01", got[0]["date"])
	assert.Equal(t, "-1.4", got[0]["temp"])
	assert.Equal(t, "0", got[0]["precip"])
	assert.Equal(t, "Snow, Overcast", got[0]["conditions"])
	assert.NotContains(t, got[0], "stations")

	assert.NotContains(t, got[1], "precip", "null values are dropped")
	assert.Equal(t, "60", got[1]["humidity"])
}

func TestJSONDays_MissingArray(t *testing.T) {
	_, err := JSONDays{}.Extract([]byte(`{"hours": []}`))
	assert.ErrorContains(t, err, `missing "days"`)
}

func TestJSONDays_InvalidJSON(t *testing.T) {
	_, err := JSONDays{}.Extract([]byte(`not json`))
	assert.Error(t, err)
}
