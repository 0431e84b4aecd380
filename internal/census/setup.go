package census

import (
	"log"

	"gorm.io/gorm"

	"github.com/EmpoweredVote/library-atlas/internal/config"
)

// Service serves the census views. store and exports are optional.
type Service struct {
	cfg     config.Config
	loader  *Loader
	store   *Store
	exports *ExportCache
}

// Init wires the census module. When gdb is set the tract table is migrated
// and containment lookups go through PostGIS.
func Init(cfg config.Config, loader *Loader, gdb *gorm.DB, exports *ExportCache) *Service {
	s := &Service{cfg: cfg, loader: loader, exports: exports}
	if gdb != nil {
		s.store = NewStore(gdb)
		if err := s.store.Migrate(); err != nil {
			log.Fatal("Failed to migrate census tables: ", err)
		}
	}
	log.Println("Census module initialized")
	return s
}

func (s *Service) params() Params {
	return Params{
		TractsPath:     s.cfg.TractsShp,
		AttributesPath: s.cfg.AttributesCSV,
		LibrariesPath:  s.cfg.LibrariesCSV,
		County:         s.cfg.CountyFIPS,
		JoinKey:        JoinKey(s.cfg.JoinKey),
	}
}
