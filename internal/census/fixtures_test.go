package census_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"

	"github.com/EmpoweredVote/library-atlas/internal/census"
	"github.com/EmpoweredVote/library-atlas/internal/geo/geotest"
)

const (
	tractA = "1400000US36067000100"
	tractB = "1400000US36067000200"
)

const attributesCSV = `GEO_ID,percentage_walked,percentage_wfh,Year
1400000US36067000100,0.153,0.2,2022.0
1400000US36067000100,0.1,0.25,2021
1400000US36067000200,0.3,NA,2021
1400000US36067000100,0.9,0.9,2022
`

const librariesCSV = `Library Name,Address,City,State,Zip Code,Longitude,Latitude
Lib One,1 Main St,Syracuse,NY,13202,-76.25,43.05
Lib Two,2 Main St,Syracuse,NY,13203,-76.15,43.05
Lib Far,3 Main St,Albany,NY,12207,-70.0,40.0
Lib Bad,4 Main St,Nowhere,NY,13000,,43.0
`

type fixture struct {
	dir        string
	tracts     string
	attributes string
	libraries  string
}

func (f fixture) params() census.Params {
	return census.Params{
		TractsPath:     f.tracts,
		AttributesPath: f.attributes,
		LibrariesPath:  f.libraries,
		County:         "067",
		JoinKey:        census.JoinGeoIDFQ,
	}
}

func writeText(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newFixture writes two adjacent tracts in county 067, one in county 001,
// the attributes file and the library list.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:        dir,
		tracts:     filepath.Join(dir, "tracts.shp"),
		attributes: filepath.Join(dir, "merged_df_year.csv"),
		libraries:  filepath.Join(dir, "libraries.csv"),
	}
	geotest.Write(t, f.tracts, geotest.Layer{
		Type:   shp.POLYGON,
		Fields: []string{"STATEFP", "COUNTYFP", "TRACTCE", "GEOIDFQ", "NAMELSAD"},
		Shapes: []shp.Shape{
			geotest.Polygon(geotest.Square(-76.3, 43.0, -76.2, 43.1)),
			geotest.Polygon(geotest.Square(-76.2, 43.0, -76.1, 43.1)),
			geotest.Polygon(geotest.Square(-75.0, 42.0, -74.9, 42.1)),
		},
		Rows: [][]string{
			{"36", "067", "000100", tractA, "Census Tract 1"},
			{"36", "067", "200", tractB, "Census Tract 2"},
			{"36", "001", "000100", "1400000US36001000100", "Census Tract 1"},
		},
		PRJ: geotest.PRJNAD83,
	})
	writeText(t, f.attributes, attributesCSV)
	writeText(t, f.libraries, librariesCSV)
	return f
}

func loadFixture(t *testing.T) *census.Dataset {
	t.Helper()
	f := newFixture(t)
	d, err := census.NewLoader(nil).BuildDataset(t.Context(), f.params())
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	return d
}

func fp(v float64) *float64 { return &v }
