package transit

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/EmpoweredVote/library-atlas/internal/geo"
)

// RouteFeatures carries every route attribute as a property.
func RouteFeatures(lines []*geo.Line) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(lines))}
	for _, l := range lines {
		props := make(map[string]any, len(l.Attributes))
		for k, v := range l.Attributes {
			props[k] = v
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: l.Geometry, Properties: props})
	}
	return fc
}

// LibraryFeatures turns library points into GeoJSON points.
func LibraryFeatures(pts []geo.Point) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(pts))}
	for _, p := range pts {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}),
			Properties: map[string]any{
				"name":    p.Name,
				"address": p.Address,
				"city":    p.City,
				"state":   p.State,
				"zip":     p.Zip,
			},
		})
	}
	return fc
}
