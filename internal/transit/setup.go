package transit

import (
	"fmt"
	"log"

	"github.com/EmpoweredVote/library-atlas/internal/cache"
	"github.com/EmpoweredVote/library-atlas/internal/config"
	"github.com/EmpoweredVote/library-atlas/internal/geo"
)

// RouteNameField is the route attribute shown in the tooltip.
const RouteNameField = "LineName"

// Zoom is the initial zoom of the routes map.
const Zoom = 12

// Service serves the bus routes view.
type Service struct {
	cfg       config.Config
	routes    *cache.Cache[[]*geo.Line]
	libraries *cache.Cache[[]geo.Point]
}

func Init(cfg config.Config, policy cache.Policy) *Service {
	s := &Service{
		cfg:       cfg,
		routes:    cache.New[[]*geo.Line]("routes", policy),
		libraries: cache.New[[]geo.Point]("transit_libraries", policy),
	}
	log.Println("Transit module initialized")
	return s
}

// Purge drops the cached routes and libraries.
func (s *Service) Purge() int {
	return s.routes.Purge() + s.libraries.Purge()
}

// Routes returns the route lines in NAD83 with null geometries dropped.
func (s *Service) Routes() ([]*geo.Line, error) {
	path := s.cfg.RoutesZip
	lines, _, err := s.routes.Load(path, []string{path}, func() ([]*geo.Line, error) {
		return geo.LoadLines(path, geo.LoadOptions{
			Required: []string{RouteNameField},
			Target:   geo.NAD83,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}
	return lines, nil
}

// Libraries returns the libraries with usable coordinates.
func (s *Service) Libraries() ([]geo.Point, error) {
	path := s.cfg.LibrariesCSV
	pts, _, err := s.libraries.Load(path, []string{path}, func() ([]geo.Point, error) {
		pts, skipped, err := geo.LoadPoints(path, geo.DefaultPointColumns)
		if err == nil && skipped > 0 {
			log.Printf("[transit] %s: %d libraries without usable coordinates", path, skipped)
		}
		return pts, err
	})
	if err != nil {
		return nil, fmt.Errorf("load libraries: %w", err)
	}
	return pts, nil
}

// Center is the mean library location. ok is false when there are none.
func Center(pts []geo.Point) (lat, lon float64, ok bool) {
	if len(pts) == 0 {
		return 0, 0, false
	}
	for _, p := range pts {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(pts))
	return lat / n, lon / n, true
}
