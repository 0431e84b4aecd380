package geo

import (
	"github.com/dhconnelly/rtreego"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Index answers point-in-boundary queries over a fixed set of boundaries.
type Index struct {
	tree *rtreego.Rtree
	size int
}

type indexed struct {
	b    *Boundary
	rect rtreego.Rect
	area float64
}

func (e *indexed) Bounds() rtreego.Rect { return e.rect }

const (
	outside = iota
	onEdge
	interior
)

func NewIndex(boundaries []*Boundary) *Index {
	ix := &Index{tree: rtreego.NewTree(2, 25, 50)}
	for _, b := range boundaries {
		if b.Geometry == nil || b.Geometry.Empty() {
			continue
		}
		bb := b.Geometry.Bounds()
		lo := rtreego.Point{bb.Min(0), bb.Min(1)}
		hi := rtreego.Point{bb.Max(0), bb.Max(1)}
		// rtreego rejects zero-length sides
		for i := range hi {
			if hi[i]-lo[i] <= 0 {
				hi[i] = lo[i] + 1e-12
			}
		}
		rect, err := rtreego.NewRectFromPoints(lo, hi)
		if err != nil {
			continue
		}
		ix.tree.Insert(&indexed{b: b, rect: rect, area: b.Geometry.Area()})
		ix.size++
	}
	return ix
}

func (ix *Index) Len() int { return ix.size }

// Locate returns the ID of the boundary containing (lon, lat). Interior hits
// beat points on an edge; ties go to the smallest area, then the smallest ID.
func (ix *Index) Locate(lon, lat float64) (string, bool) {
	b := ix.LocateBoundary(lon, lat)
	if b == nil {
		return "", false
	}
	return b.ID, true
}

func (ix *Index) LocateBoundary(lon, lat float64) *Boundary {
	q := rtreego.Point{lon, lat}
	var best *indexed
	bestRank := outside
	for _, s := range ix.tree.SearchIntersect(q.ToRect(1e-9)) {
		e := s.(*indexed)
		rank := locate(e.b.Geometry, geom.Coord{lon, lat})
		if rank == outside {
			continue
		}
		if best == nil || rank > bestRank ||
			rank == bestRank && (e.area < best.area || e.area == best.area && e.b.ID < best.b.ID) {
			best, bestRank = e, rank
		}
	}
	if best == nil {
		return nil
	}
	return best.b
}

func locate(mp *geom.MultiPolygon, c geom.Coord) int {
	res := outside
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if r := locatePolygon(poly, c); r > res {
			res = r
		}
		if res == interior {
			return res
		}
	}
	return res
}

func locatePolygon(poly *geom.Polygon, c geom.Coord) int {
	switch xy.LocatePointInRing(poly.Layout(), c, poly.LinearRing(0).FlatCoords()) {
	case location.Exterior:
		return outside
	case location.Boundary:
		return onEdge
	}
	for j := 1; j < poly.NumLinearRings(); j++ {
		switch xy.LocatePointInRing(poly.Layout(), c, poly.LinearRing(j).FlatCoords()) {
		case location.Interior:
			return outside
		case location.Boundary:
			return onEdge
		}
	}
	return interior
}
