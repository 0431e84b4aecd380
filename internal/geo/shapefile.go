package geo

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"golang.org/x/text/encoding/charmap"

	"github.com/EmpoweredVote/library-atlas/internal/metrics"
	"github.com/EmpoweredVote/library-atlas/internal/tabular"
)

// ErrMissingColumn is shared with CSV loading so callers match one sentinel.
var ErrMissingColumn = tabular.ErrMissingColumn

// shapeSource is what shp.Reader and shp.ZipReader have in common.
type shapeSource interface {
	Next() bool
	Shape() (int, shp.Shape)
	Attribute(n int) string
	Fields() []shp.Field
	Err() error
	Close() error
}

// LoadBoundaries reads polygon records from a .shp file (with its .dbf and
// .prj sidecars), reprojects them to opts.Target and repairs invalid geometry.
func LoadBoundaries(path string, opts LoadOptions) ([]*Boundary, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	src, err := sourceCRS(opts, func() (string, error) {
		b, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
		return string(b), err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tr, err := NewTransformer(src, opts.target())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer tr.Close()

	names, err := fieldNames(r, opts.Required)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var out []*Boundary
	skipped, repaired := 0, 0
	for r.Next() {
		n, shape := r.Shape()
		attrs := readAttrs(r, names)
		if opts.Filter != nil && !opts.Filter(attrs) {
			continue
		}

		parts, points, ok := polygonParts(shape)
		if !ok {
			skipped++
			continue
		}
		mp, fixed, err := prepareBoundary(parts, points, tr)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", path, n, err)
		}
		if fixed {
			repaired++
			metrics.GeometryRepairs.Inc()
		}
		out = append(out, &Boundary{
			ID:         attrs[opts.IDField],
			Attributes: attrs,
			Geometry:   mp,
			Repaired:   fixed,
		})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	log.Printf("[geo] loaded %d boundaries from %s (%s -> %s, %d repaired, %d non-polygon skipped)",
		len(out), filepath.Base(path), src, opts.target(), repaired, skipped)
	return out, nil
}

// LoadLines reads polyline records from a zipped shapefile, drops null
// geometries and reprojects to opts.Target.
func LoadLines(zipPath string, opts LoadOptions) ([]*Line, error) {
	r, err := shp.OpenZip(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer r.Close()

	src, err := sourceCRS(opts, func() (string, error) { return prjFromZip(zipPath) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", zipPath, err)
	}
	tr, err := NewTransformer(src, opts.target())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", zipPath, err)
	}
	defer tr.Close()

	names, err := fieldNames(r, opts.Required)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", zipPath, err)
	}

	var out []*Line
	dropped := 0
	for r.Next() {
		n, shape := r.Shape()
		attrs := readAttrs(r, names)
		if opts.Filter != nil && !opts.Filter(attrs) {
			continue
		}
		mls := buildMultiLineString(shape)
		if mls == nil {
			dropped++
			continue
		}
		if mls, err = reprojectLines(mls, tr); err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", zipPath, n, err)
		}
		out = append(out, &Line{Attributes: attrs, Geometry: mls})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", zipPath, err)
	}

	log.Printf("[geo] loaded %d lines from %s (%s -> %s, %d null geometries dropped)",
		len(out), filepath.Base(zipPath), src, opts.target(), dropped)
	return out, nil
}

func sourceCRS(opts LoadOptions, readPRJ func() (string, error)) (CRS, error) {
	if opts.Source != nil {
		return *opts.Source, nil
	}
	wkt, err := readPRJ()
	if errors.Is(err, os.ErrNotExist) || (err == nil && strings.TrimSpace(wkt) == "") {
		log.Printf("[geo] no .prj found, assuming %s", WGS84)
		return WGS84, nil
	}
	if err != nil {
		return CRS{}, err
	}
	return ParsePRJ(wkt)
}

func prjFromZip(zipPath string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if !strings.EqualFold(filepath.Ext(f.Name), ".prj") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		return string(b), err
	}
	return "", os.ErrNotExist
}

func fieldNames(src shapeSource, required []string) ([]string, error) {
	fields := src.Fields()
	names := make([]string, len(fields))
	have := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimSpace(f.String())
		have[names[i]] = struct{}{}
	}
	for _, k := range required {
		if _, ok := have[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, k)
		}
	}
	return names, nil
}

func readAttrs(src shapeSource, names []string) map[string]string {
	attrs := make(map[string]string, len(names))
	for i, n := range names {
		v := strings.TrimSpace(strings.TrimRight(src.Attribute(i), "\x00"))
		if !utf8.ValidString(v) {
			// older DBFs are Latin-1
			if dec, err := charmap.ISO8859_1.NewDecoder().String(v); err == nil {
				v = dec
			}
		}
		attrs[n] = v
	}
	return attrs
}

func polygonParts(s shp.Shape) ([]int32, []shp.Point, bool) {
	switch p := s.(type) {
	case *shp.Polygon:
		return p.Parts, p.Points, true
	case *shp.PolygonZ:
		return p.Parts, p.Points, true
	case *shp.PolygonM:
		return p.Parts, p.Points, true
	}
	return nil, nil, false
}

func lineParts(s shp.Shape) ([]int32, []shp.Point, bool) {
	switch p := s.(type) {
	case *shp.PolyLine:
		return p.Parts, p.Points, true
	case *shp.PolyLineZ:
		return p.Parts, p.Points, true
	case *shp.PolyLineM:
		return p.Parts, p.Points, true
	}
	return nil, nil, false
}

// splitParts returns the XY coordinates of each part, in source units.
func splitParts(parts []int32, points []shp.Point) [][]float64 {
	out := make([][]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, p := range points[start:end] {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				continue
			}
			flat = append(flat, p.X, p.Y)
		}
		out = append(out, flat)
	}
	return out
}

type shellRing struct {
	flat   []float64
	area   float64
	bounds *geom.Bounds
	holes  [][]float64
}

func newShellRing(flat []float64) *shellRing {
	p := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	return &shellRing{flat: flat, area: math.Abs(xy.SignedArea(geom.XY, flat)), bounds: p.Bounds()}
}

// buildMultiPolygon groups shapefile rings into polygons: clockwise rings are
// shells and counter-clockwise rings are holes of the smallest shell that
// contains them. A hole that only crosses a shell is attached to it so repair
// cuts it out of the footprint; one that meets no shell becomes a shell.
func buildMultiPolygon(parts []int32, points []shp.Point) (*geom.MultiPolygon, error) {
	var shells []*shellRing
	var holes [][]float64
	for _, flat := range splitParts(parts, points) {
		ring := xyRing(flat, 2)
		if len(ring) < 8 {
			continue
		}
		if xy.SignedArea(geom.XY, ring) >= 0 {
			shells = append(shells, newShellRing(ring))
		} else {
			holes = append(holes, ring)
		}
	}
	if len(shells) == 0 {
		for _, h := range holes {
			shells = append(shells, newShellRing(h))
		}
		holes = nil
	}
	for _, h := range holes {
		owner, err := holeOwner(shells, h)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			shells = append(shells, newShellRing(h))
			continue
		}
		owner.holes = append(owner.holes, h)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, s := range shells {
		if err := mp.Push(newPolygon(s.flat, s.holes)); err != nil {
			return nil, err
		}
	}
	return mp, nil
}

// holeOwner picks the smallest shell containing hole, else the smallest shell
// it intersects, else nil.
func holeOwner(shells []*shellRing, hole []float64) (*shellRing, error) {
	hp := geom.NewPolygonFlat(geom.XY, hole, []int{len(hole)})
	hb := hp.Bounds()
	hg, err := toOGR(hp)
	if err != nil {
		return nil, err
	}
	defer hg.Destroy()

	var within, crossing *shellRing
	for _, s := range shells {
		if !s.bounds.Overlaps(geom.XY, hb) {
			continue
		}
		sg, err := toOGR(geom.NewPolygonFlat(geom.XY, s.flat, []int{len(s.flat)}))
		if err != nil {
			return nil, err
		}
		contains := sg.Contains(hg)
		intersects := contains || sg.Intersects(hg)
		sg.Destroy()
		switch {
		case contains:
			if within == nil || s.area < within.area {
				within = s
			}
		case intersects:
			if crossing == nil || s.area < crossing.area {
				crossing = s
			}
		}
	}
	if within != nil {
		return within, nil
	}
	return crossing, nil
}

// prepareBoundary reprojects a record's rings and repairs the result.
func prepareBoundary(parts []int32, points []shp.Point, tr *Transformer) (*geom.MultiPolygon, bool, error) {
	mp, err := buildMultiPolygon(parts, points)
	if err != nil {
		return nil, false, err
	}
	if mp.Empty() {
		return mp, false, nil
	}
	og, err := toOGR(mp)
	if err != nil {
		return nil, false, err
	}
	defer og.Destroy()
	if err := tr.Reproject(og); err != nil {
		return nil, false, err
	}
	var valid *geom.MultiPolygon
	if tr.Identity() {
		valid = mp
	}
	return repairOGR(og, valid)
}

func buildMultiLineString(s shp.Shape) *geom.MultiLineString {
	parts, points, ok := lineParts(s)
	if !ok {
		return nil
	}
	var flat []float64
	var ends []int
	for _, part := range splitParts(parts, points) {
		if len(part) < 4 {
			continue
		}
		flat = append(flat, part...)
		ends = append(ends, len(flat))
	}
	if len(ends) == 0 {
		return nil
	}
	return geom.NewMultiLineStringFlat(geom.XY, flat, ends)
}

func reprojectLines(mls *geom.MultiLineString, tr *Transformer) (*geom.MultiLineString, error) {
	if tr.Identity() {
		return mls, nil
	}
	og, err := toOGR(mls)
	if err != nil {
		return nil, err
	}
	defer og.Destroy()
	if err := tr.Reproject(og); err != nil {
		return nil, err
	}
	g, err := fromOGR(og)
	if err != nil {
		return nil, err
	}
	switch g := g.(type) {
	case *geom.MultiLineString:
		return g, nil
	case *geom.LineString:
		out := geom.NewMultiLineString(geom.XY)
		return out, out.Push(g)
	}
	return nil, fmt.Errorf("reprojected lines came back as %T", g)
}
