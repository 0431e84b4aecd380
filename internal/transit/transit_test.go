package transit_test

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"

	"github.com/EmpoweredVote/library-atlas/internal/config"
	"github.com/EmpoweredVote/library-atlas/internal/geo"
	"github.com/EmpoweredVote/library-atlas/internal/geo/geotest"
	"github.com/EmpoweredVote/library-atlas/internal/transit"
)

const librariesCSV = `Library Name,Address,City,State,Zip Code,Longitude,Latitude
Lib One,1 Main St,Syracuse,NY,13202,-76.2,43.0
Lib Two,2 Main St,Syracuse,NY,13203,-76.0,43.2
Lib Bad,4 Main St,Nowhere,NY,13000,NA,43.0
`

func newService(t *testing.T) *transit.Service {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.RoutesZip = filepath.Join(dir, "CentroRoutes.zip")
	cfg.LibrariesCSV = filepath.Join(dir, "libraries.csv")

	geotest.WriteZip(t, cfg.RoutesZip, "Centro", geotest.Layer{
		Type:   shp.POLYLINE,
		Fields: []string{"LineName"},
		Shapes: []shp.Shape{
			geotest.Line([]shp.Point{{X: 500000, Y: 4982950.4}, {X: 501000, Y: 4983950.4}}),
			geotest.Line([]shp.Point{{X: 502000, Y: 4982950.4}, {X: 503000, Y: 4983950.4}}),
		},
		Rows: [][]string{{"Route 10"}, {"Route 12"}},
		PRJ:  geotest.PRJUTM18N,
	})
	if err := os.WriteFile(cfg.LibrariesCSV, []byte(librariesCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return transit.Init(cfg, nil)
}

func TestCenter(t *testing.T) {
	lat, lon, ok := transit.Center([]geo.Point{{Lat: 43.0, Lon: -76.2}, {Lat: 43.2, Lon: -76.0}})
	if !ok || math.Abs(lat-43.1) > 1e-9 || math.Abs(lon+76.1) > 1e-9 {
		t.Errorf("Center = (%v, %v, %v)", lat, lon, ok)
	}
	if _, _, ok := transit.Center(nil); ok {
		t.Error("no points should report !ok")
	}
}

func TestRoutesGeoJSON(t *testing.T) {
	h := transit.SetupRoutes(newService(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/routes.geojson", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates [][][2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("unexpected collection: %s with %d features", fc.Type, len(fc.Features))
	}
	f := fc.Features[0]
	if f.Properties["LineName"] != "Route 10" || f.Geometry.Type != "MultiLineString" {
		t.Errorf("unexpected feature %+v", f)
	}
	first := f.Geometry.Coordinates[0][0]
	if math.Abs(first[0]+75) > 1e-6 || math.Abs(first[1]-45) > 1e-5 {
		t.Errorf("route not reprojected to lon/lat: %v", first)
	}
}

func TestLibrariesGeoJSON(t *testing.T) {
	h := transit.SetupRoutes(newService(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/libraries.geojson", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Count(body, `"Point"`) != 2 || strings.Contains(body, "Lib Bad") {
		t.Errorf("expected two library points: %s", body)
	}
}

func TestPage_CentersOnLibraries(t *testing.T) {
	h := transit.SetupRoutes(newService(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "43.1") || !strings.Contains(body, "-76.1") {
		t.Errorf("map should center on the mean library location")
	}
	if !strings.Contains(body, `"Route: "`) {
		t.Errorf("missing route tooltip")
	}
}

func TestRoutes_MissingZip(t *testing.T) {
	cfg := config.Defaults()
	cfg.RoutesZip = filepath.Join(t.TempDir(), "none.zip")
	h := transit.SetupRoutes(transit.Init(cfg, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/routes.geojson", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestPage_RenderError(t *testing.T) {
	h := transit.SetupRoutes(newService(t))
	t.Cleanup(transit.SetRenderPage(func(http.ResponseWriter, string, string, any) error { return errors.New("template: boom") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
