package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// Entity is a tracked real-world subject: a city for weather readings, a
// vehicle listing series in one market for prices.
type Entity struct {
	ID        int64             `json:"id" yaml:"-"`
	Domain    string            `json:"domain" yaml:"-"`
	Key       string            `json:"key" yaml:"key"`
	Locality  string            `json:"locality" yaml:"locality"`
	Latitude  *float64          `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Attr returns the named descriptive attribute, or "" when absent.
func (e Entity) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

// String returns "domain/key" for logging.
func (e Entity) String() string {
	return e.Domain + "/" + e.Key
}

// NaturalKey builds a natural key from its identifying parts.
// Parts are trimmed, case-folded and joined with "/"; empty parts are kept
// so that positional meaning survives ("ford/f150/2018/miami/fl/33101").
//
// Example: NaturalKey("Phoenix") == "phoenix"
func NaturalKey(parts ...string) string {
	folder := cases.Fold()
	folded := make([]string, len(parts))
	for i, p := range parts {
		folded[i] = folder.String(strings.TrimSpace(p))
	}
	return strings.Join(folded, "/")
}

// Float returns a pointer to v. Used for optional coordinates.
func Float(v float64) *float64 {
	return &v
}
