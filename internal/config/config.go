package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/EmpoweredVote/library-atlas/internal/cache"
)

var ErrInvalid = errors.New("invalid config")

const (
	JoinGeoIDFQ = "geoidfq"
	JoinTract   = "tract"
)

// Config holds everything the server and the import CLI need. File paths are
// resolved against DataDir unless absolute.
type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`

	TractsShp     string `yaml:"tracts_shp"`
	AttributesCSV string `yaml:"attributes_csv"`
	LibrariesCSV  string `yaml:"libraries_csv"`
	RoutesZip     string `yaml:"routes_zip"`
	SurveyCSV     string `yaml:"survey_csv"`

	CountyFIPS         string `yaml:"county_fips"`
	CensusYear         int    `yaml:"census_year"`
	JoinKey            string `yaml:"join_key"`
	SurveyBranchColumn string `yaml:"survey_branch_column"`

	// MetricDescriptions overrides the generated dropdown label per column.
	MetricDescriptions map[string]string `yaml:"metric_descriptions"`

	CachePolicy      string   `yaml:"cache_policy"`
	DatabaseURL      string   `yaml:"database_url"`
	RedisURL         string   `yaml:"redis_url"`
	AdminTokenHash   string   `yaml:"admin_token_hash"`
	ExportRatePerMin int      `yaml:"export_rate_per_min"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
}

func Defaults() Config {
	return Config{
		Port:               "5050",
		DataDir:            "data",
		TractsShp:          "tl_2023_36_tract/tl_2023_36_tract.shp",
		AttributesCSV:      "merged_df_year.csv",
		LibrariesCSV:       "onondaga_county_public_libraries.csv",
		RoutesZip:          "CentroRoutes.zip",
		SurveyCSV:          "output.csv",
		CountyFIPS:         "067",
		CensusYear:         2022,
		JoinKey:            JoinGeoIDFQ,
		SurveyBranchColumn: "Library_Response_Changes",
		CachePolicy:        "hash",
		ExportRatePerMin:   30,
		AllowedOrigins:     []string{"http://localhost:5050"},
	}
}

// LoadFromEnv builds the config from defaults, then the YAML file named by
// ATLAS_CONFIG (if any), then environment variables.
//
// Environment variables:
//   - PORT, DATA_DIR
//   - TRACTS_SHP, ATTRIBUTES_CSV, LIBRARIES_CSV, ROUTES_ZIP, SURVEY_CSV
//   - COUNTY_FIPS (default 067), CENSUS_YEAR (default 2022)
//   - CENSUS_JOIN_KEY: geoidfq or tract (default geoidfq)
//   - SURVEY_BRANCH_COLUMN (default Library_Response_Changes)
//   - CACHE_POLICY: hash or mtime (default hash; files are re-hashed only
//     when their size or mtime changes)
//   - DATABASE_URL, REDIS_URL: optional backing stores
//   - ADMIN_TOKEN_HASH: bcrypt hash guarding /admin
//   - EXPORT_RATE_PER_MIN: CSV exports per client per minute (0 disables)
//   - ALLOWED_ORIGINS: comma separated CORS allow-list
func LoadFromEnv() (Config, error) {
	c := Defaults()
	if path := strings.TrimSpace(os.Getenv("ATLAS_CONFIG")); path != "" {
		if err := c.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	c.resolvePaths()
	return c, c.Validate()
}

// Load reads a YAML file over the defaults without consulting the environment.
func Load(path string) (Config, error) {
	c := Defaults()
	if err := c.mergeFile(path); err != nil {
		return Config{}, err
	}
	c.resolvePaths()
	return c, c.Validate()
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, key, v)
		}
		*dst = n
		return nil
	}

	str("PORT", &c.Port)
	str("DATA_DIR", &c.DataDir)
	str("TRACTS_SHP", &c.TractsShp)
	str("ATTRIBUTES_CSV", &c.AttributesCSV)
	str("LIBRARIES_CSV", &c.LibrariesCSV)
	str("ROUTES_ZIP", &c.RoutesZip)
	str("SURVEY_CSV", &c.SurveyCSV)
	str("COUNTY_FIPS", &c.CountyFIPS)
	str("CENSUS_JOIN_KEY", &c.JoinKey)
	str("SURVEY_BRANCH_COLUMN", &c.SurveyBranchColumn)
	str("CACHE_POLICY", &c.CachePolicy)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("ADMIN_TOKEN_HASH", &c.AdminTokenHash)

	if err := num("CENSUS_YEAR", &c.CensusYear); err != nil {
		return err
	}
	if err := num("EXPORT_RATE_PER_MIN", &c.ExportRatePerMin); err != nil {
		return err
	}

	if v := strings.TrimSpace(getenv("ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	c.JoinKey = strings.ToLower(c.JoinKey)
	return nil
}

func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.TractsShp, &c.AttributesCSV, &c.LibrariesCSV, &c.RoutesZip, &c.SurveyCSV} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.DataDir, *p)
		}
	}
}

// Validate rejects values the loaders cannot work with.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: PORT %q", ErrInvalid, c.Port)
	}
	if len(c.CountyFIPS) != 3 || strings.Trim(c.CountyFIPS, "0123456789") != "" {
		return fmt.Errorf("%w: COUNTY_FIPS must be 3 digits, got %q", ErrInvalid, c.CountyFIPS)
	}
	if c.CensusYear < 1900 || c.CensusYear > 2100 {
		return fmt.Errorf("%w: CENSUS_YEAR %d", ErrInvalid, c.CensusYear)
	}
	switch c.JoinKey {
	case JoinGeoIDFQ, JoinTract:
	default:
		return fmt.Errorf("%w: CENSUS_JOIN_KEY must be %s or %s, got %q", ErrInvalid, JoinGeoIDFQ, JoinTract, c.JoinKey)
	}
	if _, err := cache.PolicyByName(c.CachePolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.ExportRatePerMin < 0 {
		return fmt.Errorf("%w: EXPORT_RATE_PER_MIN must be >= 0", ErrInvalid)
	}
	if c.SurveyBranchColumn == "" {
		return fmt.Errorf("%w: SURVEY_BRANCH_COLUMN is empty", ErrInvalid)
	}
	return nil
}
