package census_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/EmpoweredVote/library-atlas/internal/census"
	"github.com/EmpoweredVote/library-atlas/internal/db"
)

func TestTractID_Deterministic(t *testing.T) {
	if census.TractID(tractA) != census.TractID(tractA) {
		t.Error("same GEOIDFQ should give the same id")
	}
	if census.TractID(tractA) == census.TractID(tractB) {
		t.Error("different tracts share an id")
	}
	if v := census.TractID(tractA).Version(); v != 5 {
		t.Errorf("version = %d, want 5", v)
	}
}

func TestNewTractBoundary(t *testing.T) {
	d := loadFixture(t)
	row, err := census.NewTractBoundary(d.Tracts[0], "test", time.Now())
	if err != nil {
		t.Fatalf("NewTractBoundary: %v", err)
	}
	if !strings.HasPrefix(row.Geometry, "SRID=4326;MULTIPOLYGON") {
		t.Errorf("geometry = %.60s", row.Geometry)
	}
	if row.GeoID != tractA || row.TractCE != "000100" || row.CountyFP != "067" {
		t.Errorf("unexpected row %+v", row)
	}
}

// Runs against a PostGIS database when DATABASE_URL is set.
func TestStore_SaveAndLocate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	gdb, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s := census.NewStore(gdb)
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	d := loadFixture(t)
	n, err := s.SaveTracts(t.Context(), d.Tracts, "test")
	if err != nil || n != len(d.Tracts) {
		t.Fatalf("SaveTracts = (%d, %v)", n, err)
	}
	// idempotent upsert
	if _, err := s.SaveTracts(t.Context(), d.Tracts, "test"); err != nil {
		t.Fatalf("second SaveTracts: %v", err)
	}

	id, ok, err := s.LocateTract(t.Context(), 43.05, -76.25)
	if err != nil || !ok || id != tractA {
		t.Errorf("LocateTract = (%q, %v, %v), want %s", id, ok, err, tractA)
	}
	if _, ok, _ := s.LocateTract(t.Context(), 10, 10); ok {
		t.Error("point outside every tract should not match")
	}

	count, err := s.CountByGeoIDs(t.Context(), []string{tractA, tractB, "missing"})
	if err != nil || count != 2 {
		t.Errorf("CountByGeoIDs = (%d, %v), want 2", count, err)
	}
}
