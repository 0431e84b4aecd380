package survey

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/EmpoweredVote/library-atlas/internal/tabular"
)

var ErrUnknownBranch = errors.New("unknown branch")

// openEndedMarker selects the free-text columns.
const openEndedMarker = "Open-Ended Response"

// Survey is a parsed response file.
type Survey struct {
	branchCol string
	columns   []string
	table     *tabular.Table
}

// Section lists the non-empty answers to one open-ended question.
type Section struct {
	Column    string   `json:"column"`
	Responses []string `json:"responses"`
}

// Load reads the survey CSV. branchCol must exist; the open-ended columns are
// every header containing "Open-Ended Response".
func Load(path, branchCol string) (*Survey, error) {
	t, err := tabular.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read survey: %w", err)
	}
	if err := t.Require(branchCol); err != nil {
		return nil, fmt.Errorf("survey %s: %w", path, err)
	}
	return &Survey{
		branchCol: branchCol,
		columns:   t.ColumnsContaining(openEndedMarker),
		table:     t,
	}, nil
}

func (s *Survey) Columns() []string { return s.columns }

// Branches returns the distinct non-blank branch names, sorted.
func (s *Survey) Branches() []string {
	seen := map[string]struct{}{}
	var out []string
	for i := 0; i < s.table.Len(); i++ {
		b := s.table.Get(i, s.branchCol)
		if tabular.IsNA(b) {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Responses returns one section per open-ended column for branch, in header
// order. A section with no answers has an empty Responses slice.
func (s *Survey) Responses(branch string) ([]Section, error) {
	branch = strings.TrimSpace(branch)
	found := false
	sections := make([]Section, len(s.columns))
	for j, col := range s.columns {
		sections[j] = Section{Column: col, Responses: []string{}}
	}
	for i := 0; i < s.table.Len(); i++ {
		if s.table.Get(i, s.branchCol) != branch {
			continue
		}
		found = true
		for j, col := range s.columns {
			if v := s.table.Get(i, col); !tabular.IsNA(v) {
				sections[j].Responses = append(sections[j].Responses, v)
			}
		}
	}
	if !found || tabular.IsNA(branch) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBranch, branch)
	}
	return sections, nil
}
