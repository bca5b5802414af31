package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/climatevalue/internal/model"
)

// DefaultOpenMeteoURL is the historical weather archive endpoint.
const DefaultOpenMeteoURL = "https://archive-api.open-meteo.com/v1/archive"

// DefaultHourlyVariables are the hourly series requested from Open-Meteo.
var DefaultHourlyVariables = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"windspeed_10m",
	"precipitation",
}

const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteo fetches hourly archive data for an entity's coordinates and
// keeps one reading per day, taken at Hour (UTC).
//
// It always returns the full window; the store drops what it already has.
type OpenMeteo struct {
	Getter    Getter
	BaseURL   string
	Hour      int
	Variables []string
}

// NewOpenMeteo creates an Open-Meteo source sampling at noon UTC.
func NewOpenMeteo(g Getter) *OpenMeteo {
	return &OpenMeteo{
		Getter:    g,
		BaseURL:   DefaultOpenMeteoURL,
		Hour:      12,
		Variables: DefaultHourlyVariables,
	}
}

type openMeteoResponse struct {
	Hourly map[string]json.RawMessage `json:"hourly"`
	Error  bool                       `json:"error"`
	Reason string                     `json:"reason"`
}

// Fetch implements Source.
func (o *OpenMeteo) Fetch(ctx context.Context, entity model.Entity, window model.Window) ([]model.RawRecord, error) {
	records, err := o.fetch(ctx, entity, window)
	if err != nil {
		return nil, &FetchError{Entity: entity.Key, Source: "open-meteo", Err: err}
	}
	return records, nil
}

func (o *OpenMeteo) fetch(ctx context.Context, entity model.Entity, window model.Window) ([]model.RawRecord, error) {
	if entity.Latitude == nil || entity.Longitude == nil {
		return nil, errors.New("entity has no coordinates")
	}
	if window.Start.IsZero() || window.End.IsZero() {
		return nil, errors.New("fetch window is not set")
	}

	body, err := o.Getter.Get(ctx, o.url(entity, window))
	if err != nil {
		return nil, err
	}

	var resp openMeteoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error {
		return nil, fmt.Errorf("api error: %s", resp.Reason)
	}

	var times []string
	if err := json.Unmarshal(resp.Hourly["time"], &times); err != nil {
		return nil, fmt.Errorf("decode hourly time: %w", err)
	}

	series := make(map[string][]*float64, len(o.Variables))
	for _, v := range o.Variables {
		raw, ok := resp.Hourly[v]
		if !ok {
			continue
		}
		var vals []*float64
		if err := json.Unmarshal(raw, &vals); err != nil {
			return nil, fmt.Errorf("decode hourly %s: %w", v, err)
		}
		series[v] = vals
	}

	var out []model.RawRecord
	for i, ts := range times {
		t, err := time.Parse(openMeteoTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", ts, err)
		}
		if t.Hour() != o.Hour {
			continue
		}

		rec := model.RawRecord{"date": t.Format(model.DateLayout)}
		for name, vals := range series {
			if i < len(vals) && vals[i] != nil {
				rec[name] = model.FormatNumber(*vals[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (o *OpenMeteo) url(entity model.Entity, window model.Window) string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(*entity.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(*entity.Longitude, 'f', -1, 64))
	q.Set("start_date", window.Start.Format(model.DateLayout))
	q.Set("end_date", window.End.Format(model.DateLayout))
	q.Set("hourly", strings.Join(o.Variables, ","))
	q.Set("timezone", "GMT")
	return o.BaseURL + "?" + q.Encode()
}
