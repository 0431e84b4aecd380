package census

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twpayne/go-geom/encoding/wkt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EmpoweredVote/library-atlas/internal/db"
)

// tractNamespace seeds the deterministic tract IDs.
var tractNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://atlas.empowered.vote/census/tract"))

// TractID is stable across imports of the same GEOIDFQ.
func TractID(geoID string) uuid.UUID {
	return uuid.NewSHA1(tractNamespace, []byte("tract:"+geoID))
}

// TractBoundary is a persisted tract polygon for PostGIS lookups.
type TractBoundary struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GeoID    string    `gorm:"uniqueIndex;size:64" json:"geo_id"` // GEOIDFQ
	Name     string    `json:"name"`
	CountyFP string    `gorm:"index;size:3" json:"county_fp"`
	TractCE  string    `gorm:"size:6" json:"tract_ce"`

	// MULTIPOLYGON in WGS84, written as EWKT
	Geometry string `gorm:"type:geometry(MultiPolygon,4326)" json:"-"`

	Source     string    `json:"source"`
	ImportedAt time.Time `json:"imported_at"`
}

func (TractBoundary) TableName() string {
	return "census.tract_boundaries"
}

// Store persists tracts and answers containment queries in PostGIS.
type Store struct {
	db *gorm.DB
}

func NewStore(d *gorm.DB) *Store { return &Store{db: d} }

// Migrate creates the census schema, the postgis extension and the table.
func (s *Store) Migrate() error {
	if err := db.EnsureSchema(s.db, "census"); err != nil {
		return fmt.Errorf("ensure census schema: %w", err)
	}
	if err := db.EnsurePostGIS(s.db); err != nil {
		return fmt.Errorf("ensure postgis: %w", err)
	}
	if err := s.db.AutoMigrate(&TractBoundary{}); err != nil {
		return fmt.Errorf("migrate tract_boundaries: %w", err)
	}
	return nil
}

// NewTractBoundary converts a loaded tract to its stored form.
func NewTractBoundary(t *Tract, source string, at time.Time) (TractBoundary, error) {
	w, err := wkt.Marshal(t.Geometry)
	if err != nil {
		return TractBoundary{}, fmt.Errorf("encode %s: %w", t.ID, err)
	}
	return TractBoundary{
		ID:         TractID(t.ID),
		GeoID:      t.ID,
		Name:       t.Name,
		CountyFP:   t.County,
		TractCE:    t.Code,
		Geometry:   "SRID=4326;" + w,
		Source:     source,
		ImportedAt: at,
	}, nil
}

// SaveTracts upserts tracts by GEOIDFQ in one transaction. Tracts with empty
// geometry are skipped.
func (s *Store) SaveTracts(ctx context.Context, tracts []*Tract, source string) (int, error) {
	now := time.Now().UTC()
	saved := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tracts {
			if t.Geometry == nil || t.Geometry.Empty() {
				continue
			}
			row, err := NewTractBoundary(t, source, now)
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "geo_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "county_fp", "tract_ce", "geometry", "source", "imported_at"}),
			}).Create(&row).Error; err != nil {
				return fmt.Errorf("upsert tract %s: %w", t.ID, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// LocateTract returns the GEOIDFQ of the tract containing (lat, lng). Interior
// matches beat edge matches, then the smaller tract wins, then the smaller ID.
func (s *Store) LocateTract(ctx context.Context, lat, lng float64) (string, bool, error) {
	var geoID string
	err := s.db.WithContext(ctx).Raw(`
		SELECT geo_id
		FROM census.tract_boundaries
		WHERE ST_Intersects(geometry, ST_SetSRID(ST_MakePoint(?, ?), 4326))
		ORDER BY ST_Contains(geometry, ST_SetSRID(ST_MakePoint(?, ?), 4326)) DESC,
		         ST_Area(geometry) ASC,
		         geo_id ASC
		LIMIT 1
	`, lng, lat, lng, lat).Row().Scan(&geoID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("locate tract: %w", err)
	}
	return geoID, true, nil
}

// CountByGeoIDs reports how many of ids are stored.
func (s *Store) CountByGeoIDs(ctx context.Context, ids []string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM census.tract_boundaries WHERE geo_id = ANY(?)`, pq.Array(ids),
	).Row().Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tracts: %w", err)
	}
	return n, nil
}
