package survey

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/EmpoweredVote/library-atlas/internal/metrics"
	"github.com/EmpoweredVote/library-atlas/internal/utils"
	"github.com/EmpoweredVote/library-atlas/internal/web"
)

var renderPage = web.Render

func fail(w http.ResponseWriter, r *http.Request, view string, start time.Time, msg string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrUnknownBranch) {
		status = http.StatusBadRequest
	}
	log.Printf("%s[survey] %s: %s: %v", utils.LogPrefix(r.Context()), view, msg, err)
	metrics.ObserveRender(view, status, start)
	http.Error(w, msg+": "+err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// Page is the template data of the survey view.
type Page struct {
	Branches []string
	Branch   string
	Sections []Section
}

// PageHandler renders ?branch=, defaulting to the first branch.
func (s *Service) PageHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sv, err := s.load()
	if err != nil {
		fail(w, r, "survey_page", start, "Failed to load survey", err)
		return
	}

	page := Page{Branches: sv.Branches()}
	page.Branch = r.URL.Query().Get("branch")
	if page.Branch == "" && len(page.Branches) > 0 {
		page.Branch = page.Branches[0]
	}
	if page.Branch != "" {
		page.Sections, err = sv.Responses(page.Branch)
		if err != nil {
			fail(w, r, "survey_page", start, "Invalid branch", err)
			return
		}
	}

	if err := renderPage(w, web.PageSurvey, "Survey Responses", page); err != nil {
		fail(w, r, "survey_page", start, "Failed to render page", err)
		return
	}
	metrics.ObserveRender("survey_page", http.StatusOK, start)
}

func (s *Service) BranchesHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sv, err := s.load()
	if err != nil {
		fail(w, r, "branches", start, "Failed to load survey", err)
		return
	}
	metrics.ObserveRender("branches", http.StatusOK, start)
	writeJSON(w, sv.Branches())
}

func (s *Service) ResponsesHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sv, err := s.load()
	if err != nil {
		fail(w, r, "responses", start, "Failed to load survey", err)
		return
	}
	branch := r.URL.Query().Get("branch")
	sections, err := sv.Responses(branch)
	if err != nil {
		fail(w, r, "responses", start, "Invalid branch", err)
		return
	}
	metrics.ObserveRender("responses", http.StatusOK, start)
	writeJSON(w, map[string]any{"branch": branch, "sections": sections})
}
