package census

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/library-atlas/internal/middleware"
)

func SetupRoutes(s *Service) http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.Page)
	r.Get("/figure", s.Figure)
	r.Get("/table", s.Table)
	r.Get("/timeseries", s.TimeSeries)
	r.Get("/metrics", s.Metrics)
	r.Get("/tracts/at", s.TractAt)

	// Exports are the expensive path
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.ExportRatePerMin))
		r.Get("/table.csv", s.TableCSV)
	})

	return r
}
