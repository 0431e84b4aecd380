package geo

import "github.com/twpayne/go-geom"

// Boundary is one polygon record of a boundary shapefile. Geometry is valid
// once LoadBoundaries returns it.
type Boundary struct {
	ID         string
	Attributes map[string]string
	Geometry   *geom.MultiPolygon
	Repaired   bool
}

func (b *Boundary) Attr(name string) string {
	return b.Attributes[name]
}

// Line is one polyline record, e.g. a bus route.
type Line struct {
	Attributes map[string]string
	Geometry   *geom.MultiLineString
}

func (l *Line) Attr(name string) string {
	return l.Attributes[name]
}

// Point is a geocoded row of a point CSV such as the library list.
type Point struct {
	Lat, Lon float64
	Name     string
	Address  string
	City     string
	State    string
	Zip      string
}

// LoadOptions controls how a shapefile becomes boundaries or lines.
type LoadOptions struct {
	// IDField names the attribute copied into Boundary.ID.
	IDField string
	// Required attributes; a missing column fails the load.
	Required []string
	// Filter, when set, drops records before their geometry is built.
	Filter func(attrs map[string]string) bool
	// Target is the output CRS; the zero value means WGS84.
	Target CRS
	// Source overrides the CRS read from the .prj sidecar.
	Source *CRS
}

func (o LoadOptions) target() CRS {
	if o.Target == (CRS{}) {
		return WGS84
	}
	return o.Target
}
