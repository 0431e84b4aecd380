package census

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/EmpoweredVote/library-atlas/internal/metrics"
	"github.com/EmpoweredVote/library-atlas/internal/utils"
	"github.com/EmpoweredVote/library-atlas/internal/web"
)

var errBadParam = errors.New("bad parameter")

var renderPage = web.Render

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownMetric), errors.Is(err, ErrUnknownYear), errors.Is(err, errBadParam):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Service) fail(w http.ResponseWriter, r *http.Request, view string, start time.Time, msg string, err error) {
	status := statusFor(err)
	log.Printf("%s[census] %s: %s: %v", utils.LogPrefix(r.Context()), view, msg, err)
	metrics.ObserveRender(view, status, start)
	http.Error(w, msg+": "+err.Error(), status)
}

func (s *Service) ok(w http.ResponseWriter, view string, start time.Time) {
	utils.AddServerTiming(w, [2]string{"total", utils.Millis(start)})
	metrics.ObserveRender(view, http.StatusOK, start)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// selection reads ?metric= and ?year=, defaulting to the first metric and the
// configured year (or the latest year when that one has no rows).
func (s *Service) selection(d *Dataset, r *http.Request) (string, int, error) {
	q := r.URL.Query()

	metric := strings.TrimSpace(q.Get("metric"))
	if metric == "" {
		if len(d.Metrics) == 0 {
			return "", 0, fmt.Errorf("%w: attributes file has no percentage columns", ErrUnknownMetric)
		}
		metric = d.Metrics[0]
	}
	if !d.HasMetric(metric) {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	year := s.cfg.CensusYear
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return "", 0, fmt.Errorf("%w: year %q", errBadParam, v)
		}
		year = y
	} else if !d.HasYear(year) && len(d.Years) > 0 {
		year = d.Years[len(d.Years)-1]
	}
	if !d.HasYear(year) {
		return "", 0, fmt.Errorf("%w %d", ErrUnknownYear, year)
	}
	return metric, year, nil
}

func (s *Service) load(w http.ResponseWriter, r *http.Request, view string, start time.Time) (*Dataset, string, int, bool) {
	d, err := s.loader.BuildDataset(r.Context(), s.params())
	if err != nil {
		s.fail(w, r, view, start, "Failed to load census data", err)
		return nil, "", 0, false
	}
	utils.AddServerTiming(w, [2]string{"load", utils.Millis(start)})
	metric, year, err := s.selection(d, r)
	if err != nil {
		s.fail(w, r, view, start, "Invalid selection", err)
		return nil, "", 0, false
	}
	return d, metric, year, true
}

// CensusPage is the template data of the census view.
type CensusPage struct {
	Metrics []MetricInfo
	Metric  string
	Years   []int
	Year    int
	Note    string
}

func (s *Service) Page(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	d, metric, year, ok := s.load(w, r, "page", start)
	if !ok {
		return
	}
	page := CensusPage{
		Metrics: Catalogue(d.Metrics, s.cfg.MetricDescriptions),
		Metric:  metric,
		Years:   d.Years,
		Year:    year,
		Note:    SurveyNote,
	}
	utils.AddServerTiming(w, [2]string{"total", utils.Millis(start)})
	if err := renderPage(w, web.PageCensus, "Library Census Data", page); err != nil {
		s.fail(w, r, "page", start, "Failed to render page", err)
		return
	}
	metrics.ObserveRender("page", http.StatusOK, start)
}

func (s *Service) Figure(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	d, metric, year, ok := s.load(w, r, "figure", start)
	if !ok {
		return
	}
	fig, err := MapFigure(d, metric, year)
	if err != nil {
		s.fail(w, r, "figure", start, "Failed to build map", err)
		return
	}
	s.ok(w, "figure", start)
	writeJSON(w, fig)
}

func (s *Service) Table(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	d, metric, year, ok := s.load(w, r, "table", start)
	if !ok {
		return
	}
	t, err := BuildTable(d, metric, year)
	if err != nil {
		s.fail(w, r, "table", start, "Failed to build table", err)
		return
	}
	s.ok(w, "table", start)
	writeJSON(w, t)
}

func (s *Service) TableCSV(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	d, metric, year, ok := s.load(w, r, "csv", start)
	if !ok {
		return
	}

	body, hit := s.exports.Get(r.Context(), d.Fingerprint, metric, year)
	if !hit {
		t, err := BuildTable(d, metric, year)
		if err != nil {
			s.fail(w, r, "csv", start, "Failed to build table", err)
			return
		}
		var buf bytes.Buffer
		if err := t.WriteCSV(&buf); err != nil {
			s.fail(w, r, "csv", start, "Failed to write CSV", err)
			return
		}
		body = buf.Bytes()
		s.exports.Set(r.Context(), d.Fingerprint, metric, year, body)
	}

	s.ok(w, "csv", start)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
	w.Write(body)
}

func (s *Service) TimeSeries(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	d, metric, year, ok := s.load(w, r, "timeseries", start)
	if !ok {
		return
	}
	fig, err := TimeSeries(d, metric, year)
	if err != nil {
		s.fail(w, r, "timeseries", start, "Failed to build time series", err)
		return
	}
	s.ok(w, "timeseries", start)
	writeJSON(w, fig)
}

func (s *Service) Metrics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	d, err := s.loader.BuildDataset(r.Context(), s.params())
	if err != nil {
		s.fail(w, r, "metrics", start, "Failed to load census data", err)
		return
	}
	s.ok(w, "metrics", start)
	writeJSON(w, map[string]any{
		"note":    SurveyNote,
		"years":   d.Years,
		"metrics": Catalogue(d.Metrics, s.cfg.MetricDescriptions),
	})
}

// TractAtResponse answers /census/tracts/at.
type TractAtResponse struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Found  bool    `json:"found"`
	GeoID  string  `json:"geo_id,omitempty"`
	Name   string  `json:"name,omitempty"`
	Source string  `json:"source"`
}

func parseCoord(q string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
	if err != nil || v < -limit || v > limit {
		return 0, fmt.Errorf("%w: coordinate %q", errBadParam, q)
	}
	return v, nil
}

func (s *Service) TractAt(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lat, err := parseCoord(r.URL.Query().Get("lat"), 90)
	if err != nil {
		s.fail(w, r, "tract_at", start, "Invalid lat", err)
		return
	}
	lng, err := parseCoord(r.URL.Query().Get("lng"), 180)
	if err != nil {
		s.fail(w, r, "tract_at", start, "Invalid lng", err)
		return
	}

	resp := TractAtResponse{Lat: lat, Lng: lng}
	if s.store != nil {
		resp.Source = "postgis"
		resp.GeoID, resp.Found, err = s.store.LocateTract(r.Context(), lat, lng)
		if err != nil {
			s.fail(w, r, "tract_at", start, "Failed to locate tract", err)
			return
		}
	} else {
		resp.Source = "index"
		tracts, ix, _, err := s.loader.LoadTracts(s.cfg.TractsShp, s.cfg.CountyFIPS)
		if err != nil {
			s.fail(w, r, "tract_at", start, "Failed to load tracts", err)
			return
		}
		resp.GeoID, resp.Found = ix.Locate(lng, lat)
		for _, t := range tracts {
			if t.ID == resp.GeoID {
				resp.Name = t.Name
				break
			}
		}
	}
	s.ok(w, "tract_at", start)
	writeJSON(w, resp)
}
