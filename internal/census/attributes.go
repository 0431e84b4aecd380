package census

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/EmpoweredVote/library-atlas/internal/tabular"
)

const (
	colGeoID = "GEO_ID"
	colYear  = "Year"

	percentageMarker = "percentage"
)

// MetricColumns returns the header columns treated as metrics, in header order.
func MetricColumns(header []string) []string {
	var out []string
	for _, h := range header {
		if strings.Contains(h, percentageMarker) {
			out = append(out, h)
		}
	}
	return out
}

// scalePercentage turns a 0..1 fraction into a percentage rounded to 2 places.
func scalePercentage(v float64) float64 {
	return math.Round(v*100*100) / 100
}

// LoadAttributes reads the per-tract metrics file. Metric cells are parsed as
// numbers (NA tokens become nil) and percentage columns are scaled to 0..100.
// When a (GEO_ID, Year) pair repeats, the first row wins.
func LoadAttributes(path string) ([]*AttributeRow, []string, error) {
	t, err := tabular.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read attributes: %w", err)
	}
	if err := t.Require(colGeoID, colYear); err != nil {
		return nil, nil, fmt.Errorf("attributes %s: %w", path, err)
	}
	metrics := MetricColumns(t.Header)

	rows := make([]*AttributeRow, 0, t.Len())
	seen := make(map[rowKey]struct{}, t.Len())
	dups := 0
	for i := 0; i < t.Len(); i++ {
		line := i + 2 // header is line 1
		id := t.Get(i, colGeoID)
		year, err := parseYear(t.Get(i, colYear))
		if err != nil {
			return nil, nil, fmt.Errorf("attributes %s row %d: %w", path, line, err)
		}

		k := rowKey{id, year}
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}

		values := make(map[string]*float64, len(metrics))
		for _, m := range metrics {
			raw := t.Get(i, m)
			if tabular.IsNA(raw) {
				values[m] = nil
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) {
				return nil, nil, fmt.Errorf("attributes %s row %d: %s=%q is not a number", path, line, m, raw)
			}
			v = scalePercentage(v)
			values[m] = &v
		}
		rows = append(rows, &AttributeRow{GeoID: id, Year: year, Values: values})
	}
	if dups > 0 {
		log.Printf("[census] %s: ignored %d duplicate (GEO_ID, Year) rows", path, dups)
	}
	return rows, metrics, nil
}

// parseYear accepts "2022" and the float form "2022.0" pandas writes.
func parseYear(s string) (int, error) {
	if tabular.IsNA(s) {
		return 0, fmt.Errorf("missing %s", colYear)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("bad %s %q", colYear, s)
	}
	return int(f), nil
}
