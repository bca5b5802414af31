package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/roach88/climatevalue/internal/model"
)

// columns returns the side-A fields to render: fields if given, otherwise
// every field that appears in any comparison, sorted.
func columns(comps []Comparison, fields []string) []string {
	if len(fields) > 0 {
		return fields
	}
	seen := make(map[string]struct{})
	for _, c := range comps {
		for f := range c.Means {
			seen[f] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

func componentNames(comps []Comparison) []string {
	seen := make(map[string]struct{})
	for _, c := range comps {
		for name := range c.Components {
			seen[name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// WriteText writes one block per comparison.
func WriteText(w io.Writer, comps []Comparison, fields []string) error {
	if len(comps) == 0 {
		_, err := fmt.Fprintln(w, "No matching keys.")
		return err
	}

	cols := columns(comps, fields)
	for i, c := range comps {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n", c.Key); err != nil {
			return err
		}
		for _, f := range cols {
			if v, ok := c.Means[f]; ok {
				fmt.Fprintf(w, "  %s: %.2f\n", f, v)
			} else {
				fmt.Fprintf(w, "  %s: -\n", f)
			}
		}
		fmt.Fprintf(w, "  %s: %.2f%% (%s)\n", c.Metric, c.Value, direction(c.Value))
		for _, name := range slices.Sorted(maps.Keys(c.Components)) {
			fmt.Fprintf(w, "  %s: %.2f\n", name, c.Components[name])
		}
	}
	return nil
}

func direction(v float64) string {
	switch {
	case v > 0:
		return "value decreased"
	case v < 0:
		return "value increased"
	default:
		return "value remained the same"
	}
}

// WriteCSV writes a header row and one row per comparison, for an
// external plotter. Missing values are empty cells.
func WriteCSV(w io.Writer, comps []Comparison, fields []string) error {
	cols := columns(comps, fields)
	comp := componentNames(comps)

	metric := "value"
	if len(comps) > 0 {
		metric = comps[0].Metric
	}

	cw := csv.NewWriter(w)
	header := append([]string{"key"}, cols...)
	header = append(header, metric)
	header = append(header, comp...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, c := range comps {
		row := make([]string, 0, len(header))
		row = append(row, c.Key)
		for _, f := range cols {
			row = append(row, cell(c.Means, f))
		}
		row = append(row, model.FormatNumber(c.Value))
		for _, name := range comp {
			row = append(row, cell(c.Components, name))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func cell(m map[string]float64, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
