package census

import (
	"sort"
	"strings"

	"github.com/EmpoweredVote/library-atlas/internal/geo"
)

const tractWidth = 6

// PadTract left-pads a tract code with zeros to six characters. Longer codes
// are returned unchanged.
func PadTract(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= tractWidth {
		return code
	}
	return strings.Repeat("0", tractWidth-len(code)) + code
}

// FilterCounty keeps the boundaries whose COUNTYFP equals code.
func FilterCounty(boundaries []*geo.Boundary, code string) []*geo.Boundary {
	out := make([]*geo.Boundary, 0, len(boundaries))
	for _, b := range boundaries {
		if b.Attr("COUNTYFP") == code {
			out = append(out, b)
		}
	}
	return out
}

// NewTracts lifts loaded boundaries into tracts.
func NewTracts(boundaries []*geo.Boundary) []*Tract {
	out := make([]*Tract, len(boundaries))
	for i, b := range boundaries {
		out[i] = &Tract{
			Boundary: b,
			Name:     b.Attr("NAMELSAD"),
			County:   b.Attr("COUNTYFP"),
			Code:     PadTract(b.Attr("TRACTCE")),
		}
	}
	return out
}

type rowKey struct {
	id   string
	year int
}

func (k JoinKey) tractKey(t *Tract) string {
	if k == JoinTract {
		return t.Code
	}
	return t.ID
}

func (k JoinKey) rowKey(r *AttributeRow) string {
	if k == JoinTract {
		return PadTract(r.GeoID)
	}
	return r.GeoID
}

// rowIndex maps (join id, year) to the first row carrying it.
type rowIndex map[rowKey]*AttributeRow

func indexRows(rows []*AttributeRow, key JoinKey) rowIndex {
	idx := make(rowIndex, len(rows))
	for _, r := range rows {
		k := rowKey{key.rowKey(r), r.Year}
		if _, dup := idx[k]; !dup {
			idx[k] = r
		}
	}
	return idx
}

// Join is a left outer join of rows onto tracts for one year. The result has
// exactly one entry per tract, in tract order.
func Join(tracts []*Tract, rows []*AttributeRow, year int, key JoinKey) []JoinedTract {
	return indexRows(rows, key).join(tracts, year, key)
}

func (idx rowIndex) join(tracts []*Tract, year int, key JoinKey) []JoinedTract {
	out := make([]JoinedTract, len(tracts))
	for i, t := range tracts {
		out[i] = JoinedTract{Tract: t, Row: idx[rowKey{key.tractKey(t), year}]}
	}
	return out
}

// Years returns the distinct years in rows, ascending.
func Years(rows []*AttributeRow) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, r := range rows {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		out = append(out, r.Year)
	}
	sort.Ints(out)
	return out
}
