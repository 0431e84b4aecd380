package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/EmpoweredVote/library-atlas/internal/admin"
	"github.com/EmpoweredVote/library-atlas/internal/cache"
	"github.com/EmpoweredVote/library-atlas/internal/census"
	"github.com/EmpoweredVote/library-atlas/internal/config"
	"github.com/EmpoweredVote/library-atlas/internal/db"
	"github.com/EmpoweredVote/library-atlas/internal/metrics"
	"github.com/EmpoweredVote/library-atlas/internal/middleware"
	"github.com/EmpoweredVote/library-atlas/internal/survey"
	"github.com/EmpoweredVote/library-atlas/internal/transit"
	"github.com/EmpoweredVote/library-atlas/internal/web"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func HomeHandler(w http.ResponseWriter, r *http.Request) {
	if err := web.Render(w, web.PageIndex, "Library Atlas", nil); err != nil {
		http.Error(w, "Failed to render page: "+err.Error(), http.StatusInternalServerError)
	}
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	policy, _ := cache.PolicyByName(cfg.CachePolicy) // checked by Validate

	var gdb *gorm.DB
	if cfg.DatabaseURL != "" {
		if gdb, err = db.Connect(cfg.DatabaseURL); err != nil {
			log.Fatal(err)
		}
	}
	exports, err := census.OpenExportCache(cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	defer exports.Close()

	loader := census.NewLoader(policy)
	censusSvc := census.Init(cfg, loader, gdb, exports)
	transitSvc := transit.Init(cfg, policy)
	surveySvc := survey.Init(cfg, policy)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/", RootHandler)
	r.Get("/home", HomeHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/census", census.SetupRoutes(censusSvc))
	r.Mount("/transit", transit.SetupRoutes(transitSvc))
	r.Mount("/survey", survey.SetupRoutes(surveySvc))
	r.Mount("/admin", admin.SetupRoutes(cfg.AdminTokenHash,
		admin.Counted("census", loader.Purge),
		admin.Counted("transit", transitSvc.Purge),
		admin.Counted("survey", surveySvc.Purge),
		admin.Target{Name: "exports", Purge: func(ctx context.Context) (int, error) { return exports.Purge(ctx) }},
	))

	log.Printf("Server listening on port :%s...", cfg.Port)
	log.Fatal(http.ListenAndServe("0.0.0.0:"+cfg.Port, r))
}
