package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_cache_hits_total",
		Help: "Dataset cache hits",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_cache_misses_total",
		Help: "Dataset cache misses (file parsed)",
	}, []string{"cache"})
	DatasetLoadDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atlas_dataset_load_duration_ms",
		Help:    "Time spent parsing an input file in milliseconds",
		Buckets: []float64{5, 20, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"cache"})
	RenderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_render_requests_total",
		Help: "View render requests by view and outcome",
	}, []string{"view", "status"})
	RenderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atlas_render_duration_ms",
		Help:    "View render duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"view"})
	GeometryRepairs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atlas_geometry_repairs_total",
		Help: "Boundary geometries repaired at load",
	})
	PointsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "atlas_points_skipped_total",
		Help: "Point rows excluded for missing or bad coordinates",
	})
	ExportCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_export_cache_total",
		Help: "CSV export cache lookups by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(DatasetLoadDurationMs)
	prometheus.MustRegister(RenderRequestsTotal)
	prometheus.MustRegister(RenderDurationMs)
	prometheus.MustRegister(GeometryRepairs)
	prometheus.MustRegister(PointsSkipped)
	prometheus.MustRegister(ExportCacheTotal)
}

// Handler exposes the registered metrics for scraping; mounted at /metrics.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveRender records one view request and its duration.
func ObserveRender(view string, status int, start time.Time) {
	RenderRequestsTotal.WithLabelValues(view, strconv.Itoa(status)).Inc()
	RenderDurationMs.WithLabelValues(view).Observe(float64(time.Since(start).Milliseconds()))
}
