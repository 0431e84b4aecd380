package admin

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/library-atlas/internal/middleware"
	"github.com/EmpoweredVote/library-atlas/internal/utils"
)

// Target is one cache the purge endpoint clears.
type Target struct {
	Name  string
	Purge func(ctx context.Context) (int, error)
}

// Counted adapts an in-memory cache's Purge.
func Counted(name string, purge func() int) Target {
	return Target{Name: name, Purge: func(context.Context) (int, error) { return purge(), nil }}
}

func SetupRoutes(tokenHash string, targets ...Target) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminToken(tokenHash))
		r.Post("/cache/purge", purgeHandler(targets))
	})

	return r
}

func purgeHandler(targets []Target) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		purged := make(map[string]int, len(targets))
		for _, t := range targets {
			n, err := t.Purge(r.Context())
			if err != nil {
				log.Printf("%s[admin] purge %s: %v", utils.LogPrefix(r.Context()), t.Name, err)
				http.Error(w, "Failed to purge "+t.Name+": "+err.Error(), http.StatusInternalServerError)
				return
			}
			purged[t.Name] = n
		}
		log.Printf("%s[admin] purged caches: %v", utils.LogPrefix(r.Context()), purged)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"purged": purged})
	}
}
