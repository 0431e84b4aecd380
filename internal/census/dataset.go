package census

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/EmpoweredVote/library-atlas/internal/cache"
	"github.com/EmpoweredVote/library-atlas/internal/geo"
)

// Tract shapefile columns the census view depends on.
var TractColumns = []string{"GEOIDFQ", "COUNTYFP", "TRACTCE", "NAMELSAD"}

// Params names the inputs of one dataset build.
type Params struct {
	TractsPath     string
	AttributesPath string
	LibrariesPath  string // optional
	County         string
	JoinKey        JoinKey
}

// Dataset is the joined, county-filtered view of the census inputs. It is
// shared between requests and must not be mutated.
type Dataset struct {
	Tracts    []*Tract
	Rows      []*AttributeRow
	Metrics   []string
	Years     []int
	Libraries []LocatedLibrary
	Index     *geo.Index

	// Fingerprint changes whenever any input file changes.
	Fingerprint string
	JoinKey     JoinKey

	rows      rowIndex
	tractByID map[string]*Tract
}

// CrossSection joins the attribute rows for year onto every tract.
func (d *Dataset) CrossSection(year int) []JoinedTract {
	return d.rows.join(d.Tracts, year, d.JoinKey)
}

// Lookup returns the attribute row for a tract ID and year, or nil.
func (d *Dataset) Lookup(tractID string, year int) *AttributeRow {
	t, ok := d.tractByID[tractID]
	if !ok {
		return nil
	}
	return d.rows[rowKey{d.JoinKey.tractKey(t), year}]
}

func (d *Dataset) Tract(id string) *Tract { return d.tractByID[id] }

func (d *Dataset) HasMetric(m string) bool {
	for _, c := range d.Metrics {
		if c == m {
			return true
		}
	}
	return false
}

func (d *Dataset) HasYear(y int) bool {
	for _, v := range d.Years {
		if v == y {
			return true
		}
	}
	return false
}

type tractSet struct {
	tracts []*Tract
	index  *geo.Index
}

type attributeSet struct {
	rows    []*AttributeRow
	metrics []string
}

// Loader builds datasets, reusing parsed files while they are unchanged.
type Loader struct {
	tracts     *cache.Cache[tractSet]
	attributes *cache.Cache[attributeSet]
	points     *cache.Cache[[]geo.Point]
}

func NewLoader(policy cache.Policy) *Loader {
	return &Loader{
		tracts:     cache.New[tractSet]("tracts", policy),
		attributes: cache.New[attributeSet]("attributes", policy),
		points:     cache.New[[]geo.Point]("libraries", policy),
	}
}

// Purge drops every cached file and returns how many entries were held.
func (l *Loader) Purge() int {
	return l.tracts.Purge() + l.attributes.Purge() + l.points.Purge()
}

// dbfPath is the attribute sidecar of a .shp; both files feed the fingerprint.
func dbfPath(shpPath string) string {
	return strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".dbf"
}

// LoadTracts returns the county's tracts and a containment index over them.
func (l *Loader) LoadTracts(path, county string) ([]*Tract, *geo.Index, string, error) {
	set, fp, err := l.tracts.Load(path+"#"+county, []string{path, dbfPath(path)}, func() (tractSet, error) {
		bs, err := geo.LoadBoundaries(path, geo.LoadOptions{
			IDField:  "GEOIDFQ",
			Required: TractColumns,
			Filter:   func(a map[string]string) bool { return a["COUNTYFP"] == county },
			Target:   geo.WGS84,
		})
		if err != nil {
			return tractSet{}, err
		}
		tracts := NewTracts(bs)
		return tractSet{tracts: tracts, index: geo.NewIndex(bs)}, nil
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("load tracts: %w", err)
	}
	return set.tracts, set.index, fp, nil
}

func (l *Loader) loadAttributes(path string) (attributeSet, string, error) {
	set, fp, err := l.attributes.Load(path, []string{path}, func() (attributeSet, error) {
		rows, metrics, err := LoadAttributes(path)
		return attributeSet{rows: rows, metrics: metrics}, err
	})
	if err != nil {
		return attributeSet{}, "", fmt.Errorf("load attributes: %w", err)
	}
	return set, fp, nil
}

func (l *Loader) loadLibraries(path string) ([]geo.Point, string, error) {
	pts, fp, err := l.points.Load(path, []string{path}, func() ([]geo.Point, error) {
		pts, skipped, err := geo.LoadPoints(path, geo.DefaultPointColumns)
		if err == nil && skipped > 0 {
			log.Printf("[census] %s: %d libraries without usable coordinates", path, skipped)
		}
		return pts, err
	})
	if err != nil {
		return nil, "", fmt.Errorf("load libraries: %w", err)
	}
	return pts, fp, nil
}

// BuildDataset runs the census pipeline: tracts filtered to the county,
// attribute rows indexed by join key, and libraries located in tracts.
func (l *Loader) BuildDataset(ctx context.Context, p Params) (*Dataset, error) {
	start := time.Now()
	if p.JoinKey == "" {
		p.JoinKey = JoinGeoIDFQ
	}

	tracts, ix, tractFP, err := l.LoadTracts(p.TractsPath, p.County)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attrs, attrFP, err := l.loadAttributes(p.AttributesPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := &Dataset{
		Tracts:    tracts,
		Rows:      attrs.rows,
		Metrics:   attrs.metrics,
		Years:     Years(attrs.rows),
		Index:     ix,
		JoinKey:   p.JoinKey,
		rows:      indexRows(attrs.rows, p.JoinKey),
		tractByID: make(map[string]*Tract, len(tracts)),
	}
	for _, t := range tracts {
		d.tractByID[t.ID] = t
	}

	fps := []string{tractFP, attrFP}
	if p.LibrariesPath != "" {
		pts, libFP, err := l.loadLibraries(p.LibrariesPath)
		if err != nil {
			return nil, err
		}
		d.Libraries = LocatePoints(pts, ix)
		fps = append(fps, libFP)
	}
	d.Fingerprint = strings.Join(fps, "-")

	log.Printf("[census] dataset: %d tracts, %d rows, %d libraries, years %v in %dms",
		len(d.Tracts), len(d.Rows), len(d.Libraries), d.Years, time.Since(start).Milliseconds())
	return d, nil
}
