package tractimport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/EmpoweredVote/library-atlas/internal/census"
	"github.com/EmpoweredVote/library-atlas/internal/db"
	"github.com/EmpoweredVote/library-atlas/internal/geo"
)

type Config struct {
	ShpPath     string
	County      string // empty imports every county
	DatabaseURL string
	Source      string
	DryRun      bool
}

// Result summarizes one import.
type Result struct {
	Loaded   int
	Repaired int
	Saved    int
	Verified int64
}

// Run loads the tract shapefile and upserts it into census.tract_boundaries.
func Run(ctx context.Context, cfg Config) (Result, error) {
	var res Result
	if cfg.ShpPath == "" {
		return res, errors.New("shapefile path is required")
	}
	if cfg.DatabaseURL == "" && !cfg.DryRun {
		return res, errors.New("database url is required unless dry-run")
	}

	start := time.Now()
	opts := geo.LoadOptions{IDField: "GEOIDFQ", Required: census.TractColumns, Target: geo.WGS84}
	if cfg.County != "" {
		opts.Filter = func(a map[string]string) bool { return a["COUNTYFP"] == cfg.County }
	}
	bs, err := geo.LoadBoundaries(cfg.ShpPath, opts)
	if err != nil {
		return res, err
	}
	tracts := census.NewTracts(bs)
	res.Loaded = len(tracts)
	ids := make([]string, 0, len(tracts))
	for _, t := range tracts {
		if t.Repaired {
			res.Repaired++
		}
		ids = append(ids, t.ID)
	}
	log.Printf("[tract-import] loaded %d tracts (%d repaired) in %dms", res.Loaded, res.Repaired, time.Since(start).Milliseconds())

	if cfg.DryRun {
		return res, nil
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return res, fmt.Errorf("open database: %w", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.PingContext(ctx); err != nil {
		return res, fmt.Errorf("ping database: %w", err)
	}
	gdb, err := db.FromSQL(sqlDB)
	if err != nil {
		return res, err
	}

	store := census.NewStore(gdb)
	if err := store.Migrate(); err != nil {
		return res, err
	}
	res.Saved, err = store.SaveTracts(ctx, tracts, cfg.Source)
	if err != nil {
		return res, err
	}
	res.Verified, err = store.CountByGeoIDs(ctx, ids)
	if err != nil {
		return res, err
	}
	if res.Verified != int64(res.Saved) {
		return res, fmt.Errorf("verification failed: saved %d tracts but found %d", res.Saved, res.Verified)
	}
	log.Printf("[tract-import] saved %d tracts in %dms", res.Saved, time.Since(start).Milliseconds())
	return res, nil
}
