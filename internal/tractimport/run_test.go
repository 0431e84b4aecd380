package tractimport_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"

	"github.com/EmpoweredVote/library-atlas/internal/geo"
	"github.com/EmpoweredVote/library-atlas/internal/geo/geotest"
	"github.com/EmpoweredVote/library-atlas/internal/tractimport"
)

func writeTracts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracts.shp")
	bowtie := []shp.Point{{X: -76.2, Y: 43.0}, {X: -76.1, Y: 43.1}, {X: -76.1, Y: 43.0}, {X: -76.2, Y: 43.1}, {X: -76.2, Y: 43.0}}
	geotest.Write(t, path, geotest.Layer{
		Type:   shp.POLYGON,
		Fields: []string{"COUNTYFP", "TRACTCE", "GEOIDFQ", "NAMELSAD"},
		Shapes: []shp.Shape{
			geotest.Polygon(geotest.Square(-76.3, 43.0, -76.2, 43.1)),
			geotest.Polygon(bowtie),
			geotest.Polygon(geotest.Square(-75.0, 42.0, -74.9, 42.1)),
		},
		Rows: [][]string{
			{"067", "000100", "1400000US36067000100", "Census Tract 1"},
			{"067", "000200", "1400000US36067000200", "Census Tract 2"},
			{"001", "000100", "1400000US36001000100", "Census Tract 1"},
		},
		PRJ: geotest.PRJNAD83,
	})
	return path
}

func TestRun_DryRun(t *testing.T) {
	res, err := tractimport.Run(t.Context(), tractimport.Config{ShpPath: writeTracts(t), County: "067", DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Loaded != 2 || res.Repaired != 1 || res.Saved != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRun_Validation(t *testing.T) {
	if _, err := tractimport.Run(t.Context(), tractimport.Config{}); err == nil {
		t.Error("expected an error without a shapefile")
	}
	if _, err := tractimport.Run(t.Context(), tractimport.Config{ShpPath: "x.shp"}); err == nil {
		t.Error("expected an error without a database url")
	}
}

func TestRun_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.shp")
	geotest.Write(t, path, geotest.Layer{
		Type:   shp.POLYGON,
		Fields: []string{"COUNTYFP"},
		Shapes: []shp.Shape{geotest.Polygon(geotest.Square(0, 0, 1, 1))},
		Rows:   [][]string{{"067"}},
	})
	_, err := tractimport.Run(t.Context(), tractimport.Config{ShpPath: path, DryRun: true})
	if !errors.Is(err, geo.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

// Runs against a PostGIS database when DATABASE_URL is set.
func TestRun_Database(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	res, err := tractimport.Run(t.Context(), tractimport.Config{ShpPath: writeTracts(t), DatabaseURL: dsn, Source: "test"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Saved != 3 || res.Verified != 3 {
		t.Errorf("unexpected result %+v", res)
	}
}
