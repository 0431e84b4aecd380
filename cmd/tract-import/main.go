package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/EmpoweredVote/library-atlas/internal/config"
	"github.com/EmpoweredVote/library-atlas/internal/tractimport"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	var (
		shpPath = flag.String("shp", cfg.TractsShp, "path to the tract shapefile")
		county  = flag.String("county", cfg.CountyFIPS, "COUNTYFP to import (empty for all)")
		dbURL   = flag.String("db", cfg.DatabaseURL, "DATABASE_URL")
		source  = flag.String("source", "census_tiger_2023", "source label stored with each tract")
		dryRun  = flag.Bool("dry-run", false, "load and repair only, do not write")
	)
	flag.Parse()

	if *dbURL == "" && !*dryRun {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := tractimport.Run(ctx, tractimport.Config{
		ShpPath:     *shpPath,
		County:      *county,
		DatabaseURL: *dbURL,
		Source:      *source,
		DryRun:      *dryRun,
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded=%d repaired=%d saved=%d verified=%d", res.Loaded, res.Repaired, res.Saved, res.Verified)
}
