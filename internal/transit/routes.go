package transit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(s *Service) http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.Page)
	r.Get("/routes.geojson", s.RoutesGeoJSON)
	r.Get("/libraries.geojson", s.LibrariesGeoJSON)

	return r
}
