package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/EmpoweredVote/library-atlas/internal/config"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("ATLAS_CONFIG", "")
	t.Setenv("DATA_DIR", "/srv/atlas")

	c, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if c.Port != "5050" || c.CountyFIPS != "067" || c.CensusYear != 2022 || c.JoinKey != config.JoinGeoIDFQ {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if want := filepath.Join("/srv/atlas", "merged_df_year.csv"); c.AttributesCSV != want {
		t.Errorf("AttributesCSV = %q, want %q", c.AttributesCSV, want)
	}
}

func TestLoadFromEnv_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atlas.yaml")
	body := `
data_dir: ` + dir + `
census_year: 2021
county_fips: "053"
cache_policy: mtime
metric_descriptions:
  percentage_walked: "Walked to work"
allowed_origins:
  - https://a.example
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ATLAS_CONFIG", path)
	t.Setenv("CENSUS_YEAR", "2020")
	t.Setenv("ALLOWED_ORIGINS", "https://b.example, https://c.example")

	c, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if c.CensusYear != 2020 {
		t.Errorf("CensusYear = %d, env should win", c.CensusYear)
	}
	if c.CountyFIPS != "053" || c.CachePolicy != "mtime" {
		t.Errorf("file values not applied: %+v", c)
	}
	if c.MetricDescriptions["percentage_walked"] != "Walked to work" {
		t.Errorf("MetricDescriptions = %v", c.MetricDescriptions)
	}
	if diff := cmp.Diff([]string{"https://b.example", "https://c.example"}, c.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins (-want +got):\n%s", diff)
	}
}

func TestLoadFromEnv_BadNumber(t *testing.T) {
	t.Setenv("ATLAS_CONFIG", "")
	t.Setenv("CENSUS_YEAR", "twenty")
	if _, err := config.LoadFromEnv(); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"join key":    func(c *config.Config) { c.JoinKey = "name" },
		"county":      func(c *config.Config) { c.CountyFIPS = "67" },
		"year":        func(c *config.Config) { c.CensusYear = 0 },
		"policy":      func(c *config.Config) { c.CachePolicy = "lru" },
		"port":        func(c *config.Config) { c.Port = "http" },
		"export rate": func(c *config.Config) { c.ExportRatePerMin = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := config.Defaults()
			mutate(&c)
			if err := c.Validate(); !errors.Is(err, config.ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
	if err := config.Defaults().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
