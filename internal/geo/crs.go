package geo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lukeroth/gdal"
)

// CRS names a coordinate reference system. Exactly one of proj4, WKT and EPSG
// is used to build the GDAL spatial reference, in that order.
type CRS struct {
	EPSG int
	Name string
	WKT  string

	proj4      string
	geographic bool
}

// Geographic systems are declared with PROJ strings so GDAL keeps lon/lat
// axis order.
var (
	WGS84 = CRS{EPSG: 4326, Name: "WGS 84", proj4: "+proj=longlat +datum=WGS84 +no_defs", geographic: true}
	NAD83 = CRS{EPSG: 4269, Name: "NAD83", proj4: "+proj=longlat +datum=NAD83 +no_defs", geographic: true}
)

var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

func (c CRS) Geographic() bool { return c.geographic }

func (c CRS) String() string {
	if c.EPSG != 0 {
		return fmt.Sprintf("EPSG:%d", c.EPSG)
	}
	if c.Name != "" {
		return c.Name
	}
	return "custom CRS"
}

func (c CRS) spatialReference() (gdal.SpatialReference, error) {
	sr := gdal.CreateSpatialReference("")
	var err error
	switch {
	case c.proj4 != "":
		err = sr.FromProj4(c.proj4)
	case c.WKT != "":
		err = sr.FromWKT(c.WKT)
	case c.EPSG != 0:
		err = sr.FromEPSG(c.EPSG)
	default:
		err = errors.New("no definition")
	}
	if err != nil {
		sr.Destroy()
		return gdal.SpatialReference{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedCRS, c, err)
	}
	return sr, nil
}

// FromEPSG resolves code through the GDAL/PROJ database.
func FromEPSG(code int) (CRS, error) {
	switch code {
	case 4326:
		return WGS84, nil
	case 4269:
		return NAD83, nil
	}
	c := CRS{EPSG: code}
	sr, err := c.spatialReference()
	if err != nil {
		return CRS{}, err
	}
	defer sr.Destroy()
	c.geographic = sr.IsGeographic()
	return c, nil
}

// ParsePRJ reads the ESRI/OGC WKT found in a shapefile's .prj sidecar.
// Geographic NAD83 and WGS 84 sidecars resolve to the package values.
func ParsePRJ(wkt string) (CRS, error) {
	wkt = strings.TrimSpace(wkt)
	if wkt == "" {
		return CRS{}, fmt.Errorf("%w: empty .prj", ErrUnsupportedCRS)
	}
	c := CRS{Name: wktName(wkt), WKT: wkt}
	sr, err := c.spatialReference()
	if err != nil {
		return CRS{}, err
	}
	defer sr.Destroy()
	if !sr.IsGeographic() {
		return c, nil
	}

	upper := strings.ToUpper(wkt)
	switch {
	case strings.Contains(upper, "NORTH_AMERICAN_1983"):
		return NAD83, nil
	case strings.Contains(upper, "WGS_1984"), strings.Contains(upper, "WGS 84"), strings.Contains(upper, "WGS84"):
		return WGS84, nil
	}
	c.geographic = true
	return c, nil
}

// wktName returns the quoted name of the root WKT node.
func wktName(wkt string) string {
	_, rest, ok := strings.Cut(wkt, `["`)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, `"`)
	return name
}

// Transformer converts coordinates between two reference systems.
// Geographic to geographic is the identity: NAD83 and WGS84 differ by about a
// metre, which the null datum transformation ignores.
type Transformer struct {
	from, to CRS
	src, dst gdal.SpatialReference
	point    gdal.Geometry
	identity bool
}

func NewTransformer(from, to CRS) (*Transformer, error) {
	t := &Transformer{from: from, to: to}
	t.identity = from.Geographic() && to.Geographic() || from == to
	if t.identity {
		return t, nil
	}
	var err error
	if t.src, err = from.spatialReference(); err != nil {
		return nil, err
	}
	if t.dst, err = to.spatialReference(); err != nil {
		t.src.Destroy()
		return nil, err
	}
	t.point = gdal.Create(gdal.GT_Point)
	return t, nil
}

func (t *Transformer) Identity() bool { return t.identity }

func (t *Transformer) Transform(x, y float64) (float64, float64) {
	if t.identity {
		return x, y
	}
	t.point.SetSpatialReference(t.src)
	t.point.SetPoint2D(0, x, y)
	t.point.TransformTo(t.dst)
	return t.point.X(0), t.point.Y(0)
}

// Reproject transforms g in place.
func (t *Transformer) Reproject(g gdal.Geometry) error {
	if t.identity {
		return nil
	}
	g.SetSpatialReference(t.src)
	if err := g.TransformTo(t.dst); err != nil {
		return fmt.Errorf("reproject %s -> %s: %w", t.from, t.to, err)
	}
	return nil
}

func (t *Transformer) Close() {
	if t.identity {
		return
	}
	t.point.Destroy()
	t.src.Destroy()
	t.dst.Destroy()
}
