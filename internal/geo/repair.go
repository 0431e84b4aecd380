package geo

import (
	"fmt"

	"github.com/lukeroth/gdal"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/xy"
)

// bufferSegments is the quadrant segment count handed to OGR; a zero-width
// buffer adds no arcs so it only matters to GEOS internally.
const bufferSegments = 30

func toOGR(g geom.T) (gdal.Geometry, error) {
	b, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return gdal.Geometry{}, fmt.Errorf("encode wkb: %w", err)
	}
	og, err := gdal.CreateFromWKB(b, gdal.SpatialReference{}, len(b))
	if err != nil {
		return gdal.Geometry{}, fmt.Errorf("ogr geometry: %w", err)
	}
	return og, nil
}

func fromOGR(og gdal.Geometry) (geom.T, error) {
	b, err := og.ToWKB()
	if err != nil {
		return nil, fmt.Errorf("export wkb: %w", err)
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return g, nil
}

// IsValid reports whether mp is valid in the OGC sense: simple rings, holes
// inside their shell and no overlap between parts. An empty MultiPolygon is
// valid.
func IsValid(mp *geom.MultiPolygon) bool {
	if mp == nil {
		return false
	}
	if mp.Empty() {
		return true
	}
	og, err := toOGR(mp)
	if err != nil {
		return false
	}
	defer og.Destroy()
	return og.IsValid()
}

// Repair returns mp unchanged when it is valid, otherwise its zero-width
// buffer, and whether anything changed.
func Repair(mp *geom.MultiPolygon) (*geom.MultiPolygon, bool, error) {
	if mp == nil {
		return geom.NewMultiPolygon(geom.XY), true, nil
	}
	if mp.Empty() {
		return mp, false, nil
	}
	og, err := toOGR(mp)
	if err != nil {
		return nil, false, err
	}
	defer og.Destroy()
	return repairOGR(og, mp)
}

// repairOGR is Repair on a geometry already in OGR form. valid, when not nil,
// is returned as is if og passes the validity check.
func repairOGR(og gdal.Geometry, valid *geom.MultiPolygon) (*geom.MultiPolygon, bool, error) {
	if og.IsValid() {
		if valid != nil {
			return valid, false, nil
		}
		g, err := fromOGR(og)
		if err != nil {
			return nil, false, err
		}
		return asMultiPolygon(g), false, nil
	}

	fixed := og.Buffer(0, bufferSegments)
	defer fixed.Destroy()
	g, err := fromOGR(fixed)
	if err != nil {
		return nil, true, err
	}
	return asMultiPolygon(g), true, nil
}

// asMultiPolygon collects the polygonal parts of g with counter-clockwise
// shells and clockwise holes, the orientation GeoJSON expects. Empty parts
// are dropped.
func asMultiPolygon(g geom.T) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	var add func(geom.T)
	add = func(g geom.T) {
		switch g := g.(type) {
		case *geom.Polygon:
			if p := orientPolygon(g); p != nil {
				_ = mp.Push(p)
			}
		case *geom.MultiPolygon:
			for i := 0; i < g.NumPolygons(); i++ {
				add(g.Polygon(i))
			}
		case *geom.GeometryCollection:
			for _, c := range g.Geoms() {
				add(c)
			}
		}
	}
	add(g)
	return mp
}

func orientPolygon(p *geom.Polygon) *geom.Polygon {
	if p.NumLinearRings() == 0 {
		return nil
	}
	rings := make([][]float64, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		rings = append(rings, xyRing(p.LinearRing(i).FlatCoords(), p.Stride()))
	}
	return newPolygon(rings[0], rings[1:])
}

// newPolygon builds an XY polygon from closed flat rings, flipping any ring
// whose orientation is wrong for its role.
func newPolygon(shell []float64, holes [][]float64) *geom.Polygon {
	flat := make([]float64, 0, len(shell))
	ends := make([]int, 0, len(holes)+1)
	// xy.SignedArea is positive for clockwise rings
	if xy.SignedArea(geom.XY, shell) > 0 {
		shell = reversedRing(shell)
	}
	flat = append(flat, shell...)
	ends = append(ends, len(flat))
	for _, h := range holes {
		if xy.SignedArea(geom.XY, h) < 0 {
			h = reversedRing(h)
		}
		flat = append(flat, h...)
		ends = append(ends, len(flat))
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends)
}

// xyRing drops any Z/M ordinates and closes the ring.
func xyRing(flat []float64, stride int) []float64 {
	out := make([]float64, 0, len(flat)/stride*2+2)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, flat[i], flat[i+1])
	}
	if n := len(out); n >= 2 && (out[0] != out[n-2] || out[1] != out[n-1]) {
		out = append(out, out[0], out[1])
	}
	return out
}

func reversedRing(flat []float64) []float64 {
	out := make([]float64, len(flat))
	for i := 0; i < len(flat); i += 2 {
		j := len(flat) - 2 - i
		out[j], out[j+1] = flat[i], flat[i+1]
	}
	return out
}
