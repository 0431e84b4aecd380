package survey

import (
	"fmt"
	"log"

	"github.com/EmpoweredVote/library-atlas/internal/cache"
	"github.com/EmpoweredVote/library-atlas/internal/config"
)

// Service serves the survey browser.
type Service struct {
	cfg     config.Config
	surveys *cache.Cache[*Survey]
}

func Init(cfg config.Config, policy cache.Policy) *Service {
	s := &Service{cfg: cfg, surveys: cache.New[*Survey]("survey", policy)}
	log.Println("Survey module initialized")
	return s
}

func (s *Service) Purge() int { return s.surveys.Purge() }

func (s *Service) load() (*Survey, error) {
	path := s.cfg.SurveyCSV
	sv, _, err := s.surveys.Load(path, []string{path}, func() (*Survey, error) {
		return Load(path, s.cfg.SurveyBranchColumn)
	})
	if err != nil {
		return nil, fmt.Errorf("load survey: %w", err)
	}
	return sv, nil
}
