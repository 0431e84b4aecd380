package transit

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/EmpoweredVote/library-atlas/internal/census"
	"github.com/EmpoweredVote/library-atlas/internal/metrics"
	"github.com/EmpoweredVote/library-atlas/internal/utils"
	"github.com/EmpoweredVote/library-atlas/internal/web"
)

// MapPage is the template data of the routes view.
type MapPage struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
}

var renderPage = web.Render

func fail(w http.ResponseWriter, r *http.Request, view string, start time.Time, msg string, err error) {
	log.Printf("%s[transit] %s: %s: %v", utils.LogPrefix(r.Context()), view, msg, err)
	metrics.ObserveRender(view, http.StatusInternalServerError, start)
	http.Error(w, msg+": "+err.Error(), http.StatusInternalServerError)
}

func writeGeoJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/geo+json")
	json.NewEncoder(w).Encode(v)
}

func (s *Service) Page(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	pts, err := s.Libraries()
	if err != nil {
		fail(w, r, "transit_page", start, "Failed to load libraries", err)
		return
	}
	page := MapPage{CenterLat: census.MapCenterLat, CenterLon: census.MapCenterLon, Zoom: Zoom}
	if lat, lon, ok := Center(pts); ok {
		page.CenterLat, page.CenterLon = lat, lon
	}
	if err := renderPage(w, web.PageTransit, "Libraries and Bus Routes", page); err != nil {
		fail(w, r, "transit_page", start, "Failed to render page", err)
		return
	}
	metrics.ObserveRender("transit_page", http.StatusOK, start)
}

func (s *Service) RoutesGeoJSON(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lines, err := s.Routes()
	if err != nil {
		fail(w, r, "routes", start, "Failed to load bus routes", err)
		return
	}
	utils.AddServerTiming(w, [2]string{"total", utils.Millis(start)})
	metrics.ObserveRender("routes", http.StatusOK, start)
	writeGeoJSON(w, RouteFeatures(lines))
}

func (s *Service) LibrariesGeoJSON(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	pts, err := s.Libraries()
	if err != nil {
		fail(w, r, "libraries", start, "Failed to load libraries", err)
		return
	}
	utils.AddServerTiming(w, [2]string{"total", utils.Millis(start)})
	metrics.ObserveRender("libraries", http.StatusOK, start)
	writeGeoJSON(w, LibraryFeatures(pts))
}
