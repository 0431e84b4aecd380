package census

import (
	"errors"

	"github.com/EmpoweredVote/library-atlas/internal/geo"
)

var (
	ErrUnknownMetric = errors.New("unknown metric")
	ErrUnknownYear   = errors.New("no attribute rows for year")
)

// Tract is a census tract boundary with its TIGER attributes pulled out.
type Tract struct {
	*geo.Boundary
	Name   string // NAMELSAD
	County string // COUNTYFP
	Code   string // TRACTCE, padded to 6
}

// AttributeRow is one row of the per-tract metrics file. A nil value is a
// missing cell.
type AttributeRow struct {
	GeoID  string
	Year   int
	Values map[string]*float64
}

func (r *AttributeRow) Value(metric string) *float64 {
	if r == nil {
		return nil
	}
	return r.Values[metric]
}

// JoinedTract pairs a tract with its attribute row for one year. Row is nil
// when the year has no row for the tract.
type JoinedTract struct {
	Tract *Tract
	Row   *AttributeRow
}

func (j JoinedTract) Value(metric string) *float64 { return j.Row.Value(metric) }

// LocatedLibrary is a library with the tract containing it, if any.
type LocatedLibrary struct {
	geo.Point
	TractID string
}

func (l LocatedLibrary) Located() bool { return l.TractID != "" }

// JoinKey selects how attribute rows find their tract.
type JoinKey string

const (
	// JoinGeoIDFQ matches GEO_ID against the tract's GEOIDFQ.
	JoinGeoIDFQ JoinKey = "geoidfq"
	// JoinTract matches the zero-padded GEO_ID against TRACTCE.
	JoinTract JoinKey = "tract"
)
