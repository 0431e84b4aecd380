package census_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/EmpoweredVote/library-atlas/internal/census"
	"github.com/EmpoweredVote/library-atlas/internal/geo"
	"github.com/EmpoweredVote/library-atlas/internal/tabular"
)

func TestPadTract(t *testing.T) {
	cases := map[string]string{
		"67":       "000067",
		"1":        "000001",
		"000100":   "000100",
		" 4501 ":   "004501",
		"12345678": "12345678",
	}
	for in, want := range cases {
		if got := census.PadTract(in); got != want {
			t.Errorf("PadTract(%q) = %q, want %q", in, got, want)
		}
	}
	for n := 1; n <= 6; n++ {
		in := "123456"[:n]
		if got := census.PadTract(in); len(got) != 6 {
			t.Errorf("PadTract(%q) has length %d", in, len(got))
		}
	}
}

func TestLoadAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attrs.csv")
	writeText(t, path, attributesCSV)

	rows, metrics, err := census.LoadAttributes(path)
	if err != nil {
		t.Fatalf("LoadAttributes: %v", err)
	}
	if diff := cmp.Diff([]string{"percentage_walked", "percentage_wfh"}, metrics); diff != "" {
		t.Errorf("metrics (-want +got):\n%s", diff)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (duplicate dropped)", len(rows))
	}

	first := rows[0]
	if first.GeoID != tractA || first.Year != 2022 {
		t.Errorf("first row = %s/%d", first.GeoID, first.Year)
	}
	if v := first.Value("percentage_walked"); v == nil || *v != 15.3 {
		t.Errorf("0.153 should load as 15.3, got %v", v)
	}
	if v := rows[2].Value("percentage_wfh"); v != nil {
		t.Errorf("NA should load as nil, got %v", *v)
	}
	for _, r := range rows {
		for m, v := range r.Values {
			if v != nil && (*v < 0 || *v > 100) {
				t.Errorf("%s/%d %s = %v out of range", r.GeoID, r.Year, m, *v)
			}
		}
	}
}

func TestLoadAttributes_Errors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.csv")
	writeText(t, missing, "GEO_ID,percentage_walked\nx,0.1\n")
	if _, _, err := census.LoadAttributes(missing); !errors.Is(err, tabular.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}

	badCell := filepath.Join(dir, "bad.csv")
	writeText(t, badCell, "GEO_ID,percentage_walked,Year\nx,lots,2022\n")
	if _, _, err := census.LoadAttributes(badCell); err == nil {
		t.Error("expected an error for a non-numeric metric")
	}

	badYear := filepath.Join(dir, "year.csv")
	writeText(t, badYear, "GEO_ID,percentage_walked,Year\nx,0.1,2022.5\n")
	if _, _, err := census.LoadAttributes(badYear); err == nil {
		t.Error("expected an error for a fractional year")
	}

	if _, _, err := census.LoadAttributes(filepath.Join(dir, "gone.csv")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func tract(id, code string) *census.Tract {
	return &census.Tract{Boundary: &geo.Boundary{ID: id}, Code: code}
}

func TestJoin_LeftOuter(t *testing.T) {
	tracts := []*census.Tract{tract(tractA, "000100"), tract(tractB, "000200"), tract("other", "000300")}
	rows := []*census.AttributeRow{
		{GeoID: tractA, Year: 2022, Values: map[string]*float64{"percentage_walked": fp(15.3)}},
		{GeoID: tractB, Year: 2021, Values: map[string]*float64{"percentage_walked": fp(30)}},
		{GeoID: "unmatched", Year: 2022, Values: map[string]*float64{"percentage_walked": fp(1)}},
	}

	for _, rs := range [][]*census.AttributeRow{nil, rows[:1], rows} {
		if got := census.Join(tracts, rs, 2022, census.JoinGeoIDFQ); len(got) != len(tracts) {
			t.Errorf("Join with %d rows returned %d entries, want %d", len(rs), len(got), len(tracts))
		}
	}

	joined := census.Join(tracts, rows, 2022, census.JoinGeoIDFQ)
	if v := joined[0].Value("percentage_walked"); v == nil || *v != 15.3 {
		t.Errorf("tract A = %v, want 15.3", v)
	}
	if joined[1].Row != nil || joined[1].Value("percentage_walked") != nil {
		t.Error("tract B has no 2022 row and should be nil")
	}
}

func TestJoin_TractKey(t *testing.T) {
	tracts := []*census.Tract{tract(tractA, "000067")}
	rows := []*census.AttributeRow{{GeoID: "67", Year: 2022, Values: map[string]*float64{"percentage_wfh": fp(5)}}}

	joined := census.Join(tracts, rows, 2022, census.JoinTract)
	if joined[0].Row == nil {
		t.Fatal("padded tract code should match")
	}
	if joined := census.Join(tracts, rows, 2022, census.JoinGeoIDFQ); joined[0].Row != nil {
		t.Error("GEOIDFQ join should not match a bare tract code")
	}
}

func TestYears(t *testing.T) {
	rows := []*census.AttributeRow{{Year: 2022}, {Year: 2019}, {Year: 2022}, {Year: 2020}}
	if diff := cmp.Diff([]int{2019, 2020, 2022}, census.Years(rows)); diff != "" {
		t.Errorf("Years (-want +got):\n%s", diff)
	}
}

func TestFilterCounty(t *testing.T) {
	bs := []*geo.Boundary{
		{ID: "a", Attributes: map[string]string{"COUNTYFP": "067"}},
		{ID: "b", Attributes: map[string]string{"COUNTYFP": "001"}},
	}
	got := census.FilterCounty(bs, "067")
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("FilterCounty = %v", got)
	}
}

func TestLocatePoints(t *testing.T) {
	d := loadFixture(t)

	want := map[string]string{"Lib One": tractA, "Lib Two": tractB, "Lib Far": ""}
	if len(d.Libraries) != len(want) {
		t.Fatalf("got %d libraries, want %d (bad coordinates excluded)", len(d.Libraries), len(want))
	}
	for _, lib := range d.Libraries {
		if lib.TractID != want[lib.Name] {
			t.Errorf("%s located in %q, want %q", lib.Name, lib.TractID, want[lib.Name])
		}
	}
}
