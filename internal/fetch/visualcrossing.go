package fetch

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/roach88/climatevalue/internal/extract"
	"github.com/roach88/climatevalue/internal/model"
)

// DefaultVisualCrossingURL is the timeline API base.
const DefaultVisualCrossingURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// VisualCrossing fetches daily observations from the timeline API.
//
// Unlike OpenMeteo it slices by progress: the request starts Progress days
// after the window start, so already-stored days are not fetched again.
// Records carry the API's day fields plus "date".
type VisualCrossing struct {
	Getter  Getter
	BaseURL string
	APIKey  string
}

// NewVisualCrossing creates a timeline API source.
func NewVisualCrossing(g Getter, apiKey string) *VisualCrossing {
	return &VisualCrossing{Getter: g, BaseURL: DefaultVisualCrossingURL, APIKey: apiKey}
}

// Fetch implements Source.
func (v *VisualCrossing) Fetch(ctx context.Context, entity model.Entity, window model.Window) ([]model.RawRecord, error) {
	if window.Start.IsZero() || window.End.IsZero() {
		return nil, &FetchError{Entity: entity.Key, Source: "visual-crossing", Err: errors.New("fetch window is not set")}
	}

	start := window.Start.AddDate(0, 0, window.Progress)
	if start.After(window.End) {
		return nil, nil
	}

	body, err := v.Getter.Get(ctx, v.url(entity, start, window))
	if err != nil {
		return nil, &FetchError{Entity: entity.Key, Source: "visual-crossing", Err: err}
	}

	records, err := extract.JSONDays{Array: "days", DateKey: "datetime"}.Extract(body)
	if err != nil {
		return nil, &FetchError{Entity: entity.Key, Source: "visual-crossing", Err: err}
	}
	return records, nil
}

func (v *VisualCrossing) url(entity model.Entity, start time.Time, window model.Window) string {
	location := entity.Attr("location")
	if location == "" {
		location = entity.Locality
	}

	q := url.Values{}
	q.Set("key", v.APIKey)
	q.Set("include", "days")
	q.Set("unitGroup", "metric")

	return v.BaseURL + "/" + url.PathEscape(location) +
		"/" + start.Format(model.DateLayout) +
		"/" + window.End.Format(model.DateLayout) +
		"?" + q.Encode()
}
