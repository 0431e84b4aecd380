package survey

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(s *Service) http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.PageHandler)
	r.Get("/branches", s.BranchesHandler)
	r.Get("/responses", s.ResponsesHandler)

	return r
}
