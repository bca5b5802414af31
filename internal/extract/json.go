package extract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/climatevalue/internal/model"
)

// JSONDays extracts one record per element of a top-level JSON array of
// objects, such as the "days" array of a timeline weather response.
//
// Scalar values are stringified; nested values and nulls are dropped. When
// DateKey is set, its value is also copied to "date".
type JSONDays struct {
	Array   string // top-level key holding the array, default "days"
	DateKey string // element key holding the day, e.g. "datetime"
}

// Extract implements Extractor.
func (j JSONDays) Extract(doc []byte) ([]model.RawRecord, error) {
	array := j.Array
	if array == "" {
		array = "days"
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	raw, ok := top[array]
	if !ok {
		return nil, fmt.Errorf("parse json: missing %q array", array)
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse json %q: %w", array, err)
	}

	out := make([]model.RawRecord, 0, len(items))
	for _, item := range items {
		rec := make(model.RawRecord, len(item)+1)
		for k, v := range item {
			if s, ok := scalar(v); ok {
				rec[k] = s
			}
		}
		if j.DateKey != "" {
			if d, ok := rec[j.DateKey]; ok {
				rec["date"] = d
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return model.FormatNumber(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
