package geo

import (
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strconv"

	"github.com/EmpoweredVote/library-atlas/internal/metrics"
	"github.com/EmpoweredVote/library-atlas/internal/tabular"
)

// PointColumns maps point CSV headers onto Point fields.
type PointColumns struct {
	Name, Address, City, State, Zip string
	Lon, Lat                        string
}

var DefaultPointColumns = PointColumns{
	Name:    "Library Name",
	Address: "Address",
	City:    "City",
	State:   "State",
	Zip:     "Zip Code",
	Lon:     "Longitude",
	Lat:     "Latitude",
}

func (c PointColumns) all() []string {
	return []string{c.Name, c.Address, c.City, c.State, c.Zip, c.Lon, c.Lat}
}

// LoadPoints reads a CSV of geocoded rows. Rows whose coordinates are blank,
// non-numeric or out of range are excluded and counted in skipped.
func LoadPoints(path string, cols PointColumns) (points []Point, skipped int, err error) {
	t, err := tabular.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read points: %w", err)
	}
	if err := t.Require(cols.all()...); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}

	points = make([]Point, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		lon, okLon := coord(t.Get(i, cols.Lon), 180)
		lat, okLat := coord(t.Get(i, cols.Lat), 90)
		if !okLon || !okLat {
			skipped++
			log.Printf("[geo] %s row %d: bad coordinates lon=%q lat=%q, excluded",
				filepath.Base(path), i+2, t.Get(i, cols.Lon), t.Get(i, cols.Lat))
			continue
		}
		points = append(points, Point{
			Lat:     lat,
			Lon:     lon,
			Name:    t.Get(i, cols.Name),
			Address: t.Get(i, cols.Address),
			City:    t.Get(i, cols.City),
			State:   t.Get(i, cols.State),
			Zip:     t.Get(i, cols.Zip),
		})
	}
	if skipped > 0 {
		metrics.PointsSkipped.Add(float64(skipped))
	}
	log.Printf("[geo] loaded %d points from %s (%d excluded)", len(points), filepath.Base(path), skipped)
	return points, skipped, nil
}

func coord(s string, limit float64) (float64, bool) {
	if tabular.IsNA(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}
