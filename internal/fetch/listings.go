package fetch

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/roach88/climatevalue/internal/extract"
	"github.com/roach88/climatevalue/internal/model"
)

// DefaultListingsURL is the car search results page, filled from entity
// attributes.
const DefaultListingsURL = "https://www.kbb.com/cars-for-sale/all/{{.year}}/{{.make}}/{{.model}}/{{.city}}-{{.state}}?newSearch=true&searchRadius=100&zip={{.zip}}"

// Listings fetches one results page per entity and extracts candidates from
// it. The page is the full range every time; duplicates are dropped by the
// store.
type Listings struct {
	Getter    Getter
	Extractor extract.Extractor
	tmpl      *template.Template
}

// NewListings parses urlTemplate (text/template over entity attributes).
// An empty template uses DefaultListingsURL.
func NewListings(g Getter, urlTemplate string, ex extract.Extractor) (*Listings, error) {
	if urlTemplate == "" {
		urlTemplate = DefaultListingsURL
	}
	tmpl, err := template.New("listings").Option("missingkey=error").Parse(urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse listings url template: %w", err)
	}
	if ex == nil {
		ex = extract.HTMLPrices{}
	}
	return &Listings{Getter: g, Extractor: ex, tmpl: tmpl}, nil
}

// Fetch implements Source.
func (l *Listings) Fetch(ctx context.Context, entity model.Entity, _ model.Window) ([]model.RawRecord, error) {
	u, err := l.URL(entity)
	if err != nil {
		return nil, &FetchError{Entity: entity.Key, Source: "listings", Err: err}
	}

	body, err := l.Getter.Get(ctx, u)
	if err != nil {
		return nil, &FetchError{Entity: entity.Key, Source: "listings", Err: err}
	}

	records, err := l.Extractor.Extract(body)
	if err != nil {
		return nil, &FetchError{Entity: entity.Key, Source: "listings", Err: err}
	}
	return records, nil
}

// URL renders the page URL for entity.
func (l *Listings) URL(entity model.Entity) (string, error) {
	data := make(map[string]string, len(entity.Attrs)+1)
	data["city"] = entity.Locality
	for k, v := range entity.Attrs {
		data[k] = v
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render url: %w", err)
	}
	return buf.String(), nil
}
