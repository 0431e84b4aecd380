package census

import (
	"log"

	"github.com/EmpoweredVote/library-atlas/internal/geo"
)

// LocatePoints finds the containing tract of every point once. Points outside
// all tracts keep an empty TractID.
func LocatePoints(points []geo.Point, ix *geo.Index) []LocatedLibrary {
	out := make([]LocatedLibrary, len(points))
	outside := 0
	for i, p := range points {
		out[i].Point = p
		if ix == nil {
			outside++
			continue
		}
		if id, ok := ix.Locate(p.Lon, p.Lat); ok {
			out[i].TractID = id
		} else {
			outside++
		}
	}
	if outside > 0 {
		log.Printf("[census] %d of %d libraries fall outside every tract", outside, len(points))
	}
	return out
}
