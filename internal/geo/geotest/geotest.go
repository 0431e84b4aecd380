// Package geotest writes small shapefile fixtures for tests.
package geotest

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
)

const PRJNAD83 = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

const PRJUTM18N = `PROJCS["NAD_1983_UTM_Zone_18N",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",500000.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",-75.0],PARAMETER["Scale_Factor",0.9996],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`

// Square returns a closed clockwise ring, the shapefile orientation for shells.
func Square(x0, y0, x1, y1 float64) []shp.Point {
	return []shp.Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0}}
}

func Polygon(rings ...[]shp.Point) shp.Shape {
	p := shp.Polygon(*shp.NewPolyLine(rings))
	return &p
}

func Line(parts ...[]shp.Point) shp.Shape {
	return shp.NewPolyLine(parts)
}

// Layer describes one shapefile: its records and attribute table.
type Layer struct {
	Type   shp.ShapeType
	Fields []string
	Shapes []shp.Shape
	Rows   [][]string
	PRJ    string
}

// Write creates path (ending in .shp) with its .shx, .dbf and optional .prj.
func Write(t *testing.T, path string, l Layer) {
	t.Helper()

	w, err := shp.Create(path, l.Type)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	fields := make([]shp.Field, len(l.Fields))
	for i, f := range l.Fields {
		fields[i] = shp.StringField(f, 64)
	}
	if err := w.SetFields(fields); err != nil {
		t.Fatalf("set fields: %v", err)
	}
	for i, s := range l.Shapes {
		n := int(w.Write(s))
		for j := range l.Fields {
			v := ""
			if i < len(l.Rows) && j < len(l.Rows[i]) {
				v = l.Rows[i][j]
			}
			if err := w.WriteAttribute(n, j, v); err != nil {
				t.Fatalf("write attribute %d/%d: %v", n, j, err)
			}
		}
	}
	w.Close()

	if l.PRJ != "" {
		prj := strings.TrimSuffix(path, ".shp") + ".prj"
		if err := os.WriteFile(prj, []byte(l.PRJ), 0o644); err != nil {
			t.Fatalf("write prj: %v", err)
		}
	}
}

// WriteZip writes the layer into dir and bundles its files into zipPath.
func WriteZip(t *testing.T, zipPath string, name string, l Layer) {
	t.Helper()

	dir := t.TempDir()
	Write(t, filepath.Join(dir, name+".shp"), l)

	out, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer out.Close()
	zw := zip.NewWriter(out)
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		src, err := os.Open(filepath.Join(dir, name+ext))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			t.Fatalf("open %s: %v", ext, err)
		}
		dst, err := zw.Create(name + ext)
		if err != nil {
			t.Fatalf("zip entry: %v", err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			t.Fatalf("zip copy: %v", err)
		}
		src.Close()
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}
