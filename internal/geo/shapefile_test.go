package geo_test

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"

	"github.com/EmpoweredVote/library-atlas/internal/geo"
	"github.com/EmpoweredVote/library-atlas/internal/geo/geotest"
)

var tractFields = []string{"STATEFP", "COUNTYFP", "TRACTCE", "GEOIDFQ", "NAMELSAD"}

func writeTracts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracts.shp")
	bowtie := []shp.Point{{X: -76.2, Y: 43.0}, {X: -76.1, Y: 43.1}, {X: -76.1, Y: 43.0}, {X: -76.2, Y: 43.1}, {X: -76.2, Y: 43.0}}
	geotest.Write(t, path, geotest.Layer{
		Type:   shp.POLYGON,
		Fields: tractFields,
		Shapes: []shp.Shape{
			geotest.Polygon(geotest.Square(-76.3, 43.0, -76.2, 43.1)),
			geotest.Polygon(bowtie),
			geotest.Polygon(geotest.Square(-75.0, 42.0, -74.9, 42.1)),
		},
		Rows: [][]string{
			{"36", "067", "000100", "1400000US36067000100", "Census Tract 1"},
			{"36", "067", "000200", "1400000US36067000200", "Census Tract 2"},
			{"36", "001", "000100", "1400000US36001000100", "Census Tract 1"},
		},
		PRJ: geotest.PRJNAD83,
	})
	return path
}

func TestLoadBoundaries(t *testing.T) {
	path := writeTracts(t)

	got, err := geo.LoadBoundaries(path, geo.LoadOptions{
		IDField:  "GEOIDFQ",
		Required: []string{"COUNTYFP", "TRACTCE", "GEOIDFQ"},
		Filter:   func(a map[string]string) bool { return a["COUNTYFP"] == "067" },
	})
	if err != nil {
		t.Fatalf("LoadBoundaries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d boundaries, want 2 after county filter", len(got))
	}

	if got[0].ID != "1400000US36067000100" || got[0].Attr("NAMELSAD") != "Census Tract 1" {
		t.Errorf("first boundary = %q / %q", got[0].ID, got[0].Attr("NAMELSAD"))
	}
	if got[0].Repaired {
		t.Error("valid square should not be marked repaired")
	}
	if !got[1].Repaired {
		t.Error("bowtie should be marked repaired")
	}
	for _, b := range got {
		if !geo.IsValid(b.Geometry) {
			t.Errorf("%s: geometry invalid after load", b.ID)
		}
	}
	if a := got[0].Geometry.Area(); math.Abs(a-0.01) > 1e-9 {
		t.Errorf("area = %v, want 0.01", a)
	}
}

func TestLoadBoundaries_MissingColumn(t *testing.T) {
	path := writeTracts(t)
	_, err := geo.LoadBoundaries(path, geo.LoadOptions{IDField: "GEOID", Required: []string{"GEOID"}})
	if !errors.Is(err, geo.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadBoundaries_MissingFile(t *testing.T) {
	if _, err := geo.LoadBoundaries(filepath.Join(t.TempDir(), "none.shp"), geo.LoadOptions{}); err == nil {
		t.Fatal("expected an error for a missing shapefile")
	}
}

func hole(x0, y0, x1, y1 float64) []shp.Point {
	sq := geotest.Square(x0, y0, x1, y1)
	for i, j := 0, len(sq)-1; i < j; i, j = i+1, j-1 {
		sq[i], sq[j] = sq[j], sq[i]
	}
	return sq
}

func TestLoadBoundaries_Holes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holes.shp")
	geotest.Write(t, path, geotest.Layer{
		Type:   shp.POLYGON,
		Fields: []string{"GEOIDFQ"},
		Shapes: []shp.Shape{
			geotest.Polygon(geotest.Square(0, 0, 4, 4), hole(1, 1, 2, 2)),
			geotest.Polygon(geotest.Square(10, 0, 14, 4), hole(11, 1, 16, 3)),
			geotest.Polygon(geotest.Square(20, 0, 22, 2), geotest.Square(21, 1, 23, 3)),
		},
		Rows: [][]string{{"inside"}, {"crossing"}, {"overlapping"}},
		PRJ:  geotest.PRJNAD83,
	})

	got, err := geo.LoadBoundaries(path, geo.LoadOptions{IDField: "GEOIDFQ"})
	if err != nil {
		t.Fatalf("LoadBoundaries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d boundaries, want 3", len(got))
	}
	cases := []struct {
		area     float64
		repaired bool
	}{
		{15, false},
		{10, true},
		{7, true},
	}
	for i, tc := range cases {
		b := got[i]
		if !geo.IsValid(b.Geometry) {
			t.Errorf("%s: geometry invalid after load", b.ID)
		}
		if b.Repaired != tc.repaired {
			t.Errorf("%s: repaired = %v, want %v", b.ID, b.Repaired, tc.repaired)
		}
		near(t, b.ID+" area", b.Geometry.Area(), tc.area, 1e-9)
	}
}

func TestLoadLines_ReprojectsFromZip(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "routes.zip")
	geotest.WriteZip(t, zipPath, "routes", geotest.Layer{
		Type:   shp.POLYLINE,
		Fields: []string{"LineName"},
		Shapes: []shp.Shape{
			geotest.Line([]shp.Point{{X: 500000, Y: 4982950.4}, {X: 501000, Y: 4983950.4}}),
			geotest.Line([]shp.Point{{X: 500000, Y: 4982950.4}}),
		},
		Rows: [][]string{{"Route 1"}, {"Ghost"}},
		PRJ:  geotest.PRJUTM18N,
	})

	lines, err := geo.LoadLines(zipPath, geo.LoadOptions{Required: []string{"LineName"}, Target: geo.NAD83})
	if err != nil {
		t.Fatalf("LoadLines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (degenerate geometry dropped)", len(lines))
	}
	if lines[0].Attr("LineName") != "Route 1" {
		t.Errorf("LineName = %q", lines[0].Attr("LineName"))
	}
	first := lines[0].Geometry.LineString(0).Coord(0)
	near(t, "lon", first.X(), -75, 1e-6)
	near(t, "lat", first.Y(), 45, 1e-5)
}

func TestLoadLines_RequiresLineName(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "routes.zip")
	geotest.WriteZip(t, zipPath, "routes", geotest.Layer{
		Type:   shp.POLYLINE,
		Fields: []string{"Name"},
		Shapes: []shp.Shape{geotest.Line([]shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})},
		Rows:   [][]string{{"x"}},
	})
	_, err := geo.LoadLines(zipPath, geo.LoadOptions{Required: []string{"LineName"}})
	if !errors.Is(err, geo.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}
