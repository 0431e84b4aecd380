package census

import (
	"fmt"
	"sort"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// Map defaults for the county view.
const (
	MapStyle     = "carto-positron"
	MapCenterLat = 43.0481
	MapCenterLon = -76.1513
	MapZoom      = 10
)

// Figure is a Plotly figure; Data holds trace objects.
type Figure struct {
	Data   []any  `json:"data"`
	Layout Layout `json:"layout"`
}

type Layout struct {
	Title  *Title  `json:"title,omitempty"`
	Mapbox *Mapbox `json:"mapbox,omitempty"`
	Margin *Margin `json:"margin,omitempty"`
	XAxis  *Axis   `json:"xaxis,omitempty"`
	YAxis  *Axis   `json:"yaxis,omitempty"`
	Legend *Legend `json:"legend,omitempty"`
}

type Title struct {
	Text string `json:"text"`
}

type Mapbox struct {
	Style  string  `json:"style"`
	Center LatLon  `json:"center"`
	Zoom   float64 `json:"zoom"`
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Margin struct {
	R int `json:"r"`
	T int `json:"t"`
	L int `json:"l"`
	B int `json:"b"`
}

type Axis struct {
	Title *Title `json:"title,omitempty"`
	DTick int    `json:"dtick,omitempty"`
}

type Legend struct {
	Title *Title `json:"title,omitempty"`
}

type Choropleth struct {
	Type          string                     `json:"type"`
	GeoJSON       *geojson.FeatureCollection `json:"geojson"`
	Locations     []string                   `json:"locations"`
	Z             []*float64                 `json:"z"`
	FeatureIDKey  string                     `json:"featureidkey"`
	ColorScale    string                     `json:"colorscale"`
	Marker        ChoroplethMarker           `json:"marker"`
	Text          []string                   `json:"text"`
	HoverInfo     string                     `json:"hoverinfo"`
	HoverTemplate string                     `json:"hovertemplate"`
}

type ChoroplethMarker struct {
	Opacity float64 `json:"opacity"`
	Line    struct {
		Width float64 `json:"width"`
	} `json:"line"`
}

type ScatterMapbox struct {
	Type      string        `json:"type"`
	Lat       []float64     `json:"lat"`
	Lon       []float64     `json:"lon"`
	Mode      string        `json:"mode"`
	Marker    ScatterMarker `json:"marker"`
	Text      []string      `json:"text"`
	HoverInfo string        `json:"hoverinfo"`
	Name      string        `json:"name,omitempty"`
}

type ScatterMarker struct {
	Size  int    `json:"size"`
	Color string `json:"color"`
}

// Line is one series of the time-series chart. Visible is true or
// "legendonly".
type Line struct {
	Type    string     `json:"type"`
	Mode    string     `json:"mode"`
	Name    string     `json:"name"`
	X       []int      `json:"x"`
	Y       []*float64 `json:"y"`
	Visible any        `json:"visible"`
}

// TractFeatures converts a cross-section to GeoJSON with the properties the
// choropleth keys on. The metric value is carried for hover and export use.
func TractFeatures(joined []JoinedTract, metric string) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(joined))}
	for _, j := range joined {
		t := j.Tract
		if t.Geometry == nil || t.Geometry.Empty() {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   t.Geometry,
			Properties: map[string]any{
				"GEOIDFQ":  t.ID,
				"NAMELSAD": t.Name,
				"TRACTCE":  t.Code,
				"COUNTYFP": t.County,
				metric:     j.Value(metric),
			},
		})
	}
	return fc
}

func checkSelection(d *Dataset, metric string, year int) error {
	if !d.HasMetric(metric) {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	if !d.HasYear(year) {
		return fmt.Errorf("%w %d", ErrUnknownYear, year)
	}
	return nil
}

// MapFigure builds the choropleth of metric for year with a marker per
// library.
func MapFigure(d *Dataset, metric string, year int) (*Figure, error) {
	if err := checkSelection(d, metric, year); err != nil {
		return nil, err
	}
	joined := d.CrossSection(year)

	ch := Choropleth{
		Type:          "choroplethmapbox",
		GeoJSON:       TractFeatures(joined, metric),
		Locations:     make([]string, 0, len(joined)),
		Z:             make([]*float64, 0, len(joined)),
		FeatureIDKey:  "properties.GEOIDFQ",
		ColorScale:    "RdYlGn",
		Text:          make([]string, 0, len(joined)),
		HoverInfo:     "location+z+text",
		HoverTemplate: "<b>%{text}</b><br>Value: %{z}<extra></extra>",
	}
	ch.Marker.Opacity = 0.5
	for _, j := range joined {
		ch.Locations = append(ch.Locations, j.Tract.ID)
		ch.Z = append(ch.Z, j.Value(metric))
		ch.Text = append(ch.Text, j.Tract.Name)
	}

	markers := ScatterMapbox{
		Type:      "scattermapbox",
		Mode:      "markers",
		Marker:    ScatterMarker{Size: 9, Color: "red"},
		HoverInfo: "text",
		Name:      "Libraries",
	}
	for _, lib := range d.Libraries {
		markers.Lat = append(markers.Lat, lib.Lat)
		markers.Lon = append(markers.Lon, lib.Lon)
		markers.Text = append(markers.Text, markerText(lib.Name, d.Lookup(lib.TractID, year).Value(metric)))
	}

	return &Figure{
		Data: []any{ch, markers},
		Layout: Layout{
			Mapbox: &Mapbox{Style: MapStyle, Center: LatLon{MapCenterLat, MapCenterLon}, Zoom: MapZoom},
			Margin: &Margin{},
		},
	}, nil
}

func markerText(name string, v *float64) string {
	if v == nil {
		return name + "<br>n/a"
	}
	return fmt.Sprintf("%s<br>%.2f", name, *v)
}

// Table is the library-by-tract table. The selected metric is the first
// column and rows are ordered by it, highest first, missing values last.
type Table struct {
	Metric  string   `json:"metric"`
	Year    int      `json:"year"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

var libraryColumns = []string{"Library Name", "Address", "City", "State", "Zip Code", "NAMELSAD"}

func BuildTable(d *Dataset, metric string, year int) (*Table, error) {
	if err := checkSelection(d, metric, year); err != nil {
		return nil, err
	}

	others := make([]string, 0, len(d.Metrics))
	for _, m := range d.Metrics {
		if m != metric {
			others = append(others, m)
		}
	}
	cols := append([]string{metric}, libraryColumns...)
	cols = append(cols, others...)

	type keyed struct {
		v   *float64
		row []any
	}
	rows := make([]keyed, 0, len(d.Libraries))
	for _, lib := range d.Libraries {
		attrs := d.Lookup(lib.TractID, year)
		tractName := ""
		if t := d.Tract(lib.TractID); t != nil {
			tractName = t.Name
		}
		v := attrs.Value(metric)
		row := []any{v, lib.Name, lib.Address, lib.City, lib.State, lib.Zip, tractName}
		for _, m := range others {
			row = append(row, attrs.Value(m))
		}
		rows = append(rows, keyed{v, row})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].v, rows[j].v
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})

	t := &Table{Metric: metric, Year: year, Columns: cols, Rows: make([][]any, len(rows))}
	for i, r := range rows {
		t.Rows[i] = r.row
	}
	return t, nil
}

// TimeSeries plots metric per library across every year. Only the libraries
// with the highest and lowest value in year start visible.
func TimeSeries(d *Dataset, metric string, year int) (*Figure, error) {
	if err := checkSelection(d, metric, year); err != nil {
		return nil, err
	}

	var names []string
	tracts := map[string]string{}
	for _, lib := range d.Libraries {
		if _, ok := tracts[lib.Name]; ok {
			continue
		}
		names = append(names, lib.Name)
		tracts[lib.Name] = lib.TractID
	}

	var maxName, minName string
	var maxV, minV *float64
	for _, lib := range d.Libraries {
		v := d.Lookup(lib.TractID, year).Value(metric)
		if v == nil {
			continue
		}
		if maxV == nil || *v > *maxV {
			maxV, maxName = v, lib.Name
		}
		if minV == nil || *v < *minV {
			minV, minName = v, lib.Name
		}
	}

	data := make([]any, 0, len(names))
	for _, name := range names {
		tractID := tracts[name]
		tr := Line{Type: "scatter", Mode: "lines+markers", Name: name, Visible: true}
		for _, y := range d.Years {
			tr.X = append(tr.X, y)
			tr.Y = append(tr.Y, d.Lookup(tractID, y).Value(metric))
		}
		if maxV != nil && name != maxName && name != minName {
			tr.Visible = "legendonly"
		}
		data = append(data, tr)
	}

	return &Figure{
		Data: data,
		Layout: Layout{
			Title:  &Title{Text: fmt.Sprintf("Census Data Over Time by %s and Library Name", metric)},
			XAxis:  &Axis{Title: &Title{Text: "Year"}, DTick: 1},
			YAxis:  &Axis{Title: &Title{Text: metric}},
			Legend: &Legend{Title: &Title{Text: "Library Name"}},
		},
	}, nil
}
