// Package indexer converts geometries to discrete global grid cells. One
// Indexer exists per grid scheme; all of them share the polyfill, parent
// derivation and compaction contract so the pipeline stays scheme-agnostic.
package indexer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/vector2dggs/internal/feature"
	"github.com/beetlebugorg/vector2dggs/internal/store"
)

// Scheme names a grid system.
type Scheme string

const (
	H3       Scheme = "h3"
	S2       Scheme = "s2"
	RHEALPix Scheme = "rhp"
	Geohash  Scheme = "geohash"
)

// Schemes lists the supported schemes.
var Schemes = []Scheme{H3, S2, RHEALPix, Geohash}

// Range is an inclusive resolution range.
type Range struct {
	Min, Max int
}

var ranges = map[Scheme]Range{
	H3:       {0, 15},
	S2:       {0, 30},
	RHEALPix: {0, 15},
	Geohash:  {1, 12},
}

// parentOffset is how many levels above the target the default parent sits.
const parentOffset = 6

// ErrUnknownScheme indicates an unsupported scheme name.
type ErrUnknownScheme struct {
	Name string
}

func (e *ErrUnknownScheme) Error() string {
	return fmt.Sprintf("unknown DGGS %q (want one of h3, s2, rhp, geohash)", e.Name)
}

// ErrMissingCell is returned by SecondaryIndex for rows that have no cell
// yet, or whose cell is not valid for the scheme.
var ErrMissingCell = errors.New("row has no valid cell; polyfill must run first")

// ParseScheme resolves a scheme name. "rhealpix" is accepted for rhp.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "h3":
		return H3, nil
	case "s2":
		return S2, nil
	case "rhp", "rhealpix":
		return RHEALPix, nil
	case "geohash":
		return Geohash, nil
	}
	return "", &ErrUnknownScheme{Name: name}
}

// Range returns the valid resolutions of s.
func (s Scheme) Range() Range {
	return ranges[s]
}

// DefaultParent returns the default parent resolution for a target.
func (s Scheme) DefaultParent(res int) int {
	return max(s.Range().Min, res-parentOffset)
}

// Column names the cell column for res, e.g. "h3_09".
func (s Scheme) Column(res int) string {
	return fmt.Sprintf("%s_%02d", s, res)
}

// Row is one polyfill result: a cell and the index of the feature it came
// from in the slice handed to Polyfill.
type Row struct {
	Cell    string
	Parent  string
	Feature int
}

// Stats summarizes one Polyfill call.
type Stats struct {
	Features int // features with at least one cell
	Empty    int // features producing no cells
	Failed   int // features the grid library rejected
	Errors   []error
}

// Indexer is the per-scheme capability set.
type Indexer interface {
	Scheme() Scheme

	// Polyfill returns the cells for every feature. Polygons yield cells
	// whose center lies inside the polygon and outside its holes, lines the
	// cells they pass through in order, points their containing cell.
	// Features with no cells are dropped.
	Polyfill(features []feature.Feature, res int) ([]Row, Stats)

	// SecondaryIndex sets Parent on every row to the ancestor of Cell at
	// parentRes.
	SecondaryIndex(rows []Row, parentRes int) error

	// Compaction merges complete sibling groups per feature, never coarser
	// than minRes, rewriting the cell column of t. res is the resolution of
	// the cells in t.
	Compaction(t *store.Table, res, minRes int, cellCol, idCol string) (*store.Table, error)

	// Parent returns the ancestor of cell at res.
	Parent(cell string, res int) (string, error)

	// MaxCellArea is the largest cell area at res in square metres.
	MaxCellArea(res int) float64
}

// grid is the cell algebra one scheme provides.
type grid interface {
	scheme() Scheme
	point(pt orb.Point, res int) string
	polygon(p orb.Polygon, res int) []string
	line(ls orb.LineString, res int) []string
	parent(cell string, res int) (string, bool)
	compact(cells []string, minRes int) []string
	centerChild(cell string, res int) string
	maxArea(res int) float64
}

// New returns the Indexer for s.
func New(s Scheme) (Indexer, error) {
	switch s {
	case H3:
		return &indexer{g: h3Grid{}}, nil
	case S2:
		return &indexer{g: s2Grid{}}, nil
	case RHEALPix:
		return &indexer{g: rhpGrid{}}, nil
	case Geohash:
		return &indexer{g: geohashGrid{}}, nil
	}
	return nil, &ErrUnknownScheme{Name: string(s)}
}

type indexer struct {
	g grid
}

func (ix *indexer) Scheme() Scheme {
	return ix.g.scheme()
}

func (ix *indexer) MaxCellArea(res int) float64 {
	return ix.g.maxArea(res)
}

func (ix *indexer) Parent(cell string, res int) (string, error) {
	p, ok := ix.g.parent(cell, res)
	if !ok {
		return "", fmt.Errorf("%s cell %q: %w", ix.g.scheme(), cell, ErrMissingCell)
	}
	return p, nil
}

func (ix *indexer) Polyfill(features []feature.Feature, res int) ([]Row, Stats) {
	var (
		rows  []Row
		stats Stats
	)
	for i, f := range features {
		cells, err := ix.cells(f.Geometry, res)
		if err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, fmt.Errorf("feature %v: %w", f.ID, err))
			continue
		}
		if len(cells) == 0 {
			stats.Empty++
			continue
		}
		stats.Features++
		for _, c := range cells {
			rows = append(rows, Row{Cell: c, Feature: i})
		}
	}
	return rows, stats
}

// cells indexes one geometry. Panics inside the grid libraries are turned
// into errors so one bad geometry cannot take down a worker.
func (ix *indexer) cells(g orb.Geometry, res int) (cells []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s polyfill: %v", ix.g.scheme(), r)
		}
	}()

	switch g := g.(type) {
	case orb.Point:
		return []string{ix.g.point(g, res)}, nil
	case orb.LineString:
		return dedupe(ix.g.line(g, res)), nil
	case orb.Polygon:
		return ix.g.polygon(g, res), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
}

func (ix *indexer) SecondaryIndex(rows []Row, parentRes int) error {
	for i := range rows {
		if rows[i].Cell == "" {
			return ErrMissingCell
		}
		p, err := ix.Parent(rows[i].Cell, parentRes)
		if err != nil {
			return err
		}
		rows[i].Parent = p
	}
	return nil
}

func (ix *indexer) Compaction(t *store.Table, res, minRes int, cellCol, idCol string) (*store.Table, error) {
	return compactTable(t, res, minRes, cellCol, idCol, ix.g.compact, ix.g.centerChild)
}

// dedupe keeps the first occurrence of each cell.
func dedupe(cells []string) []string {
	seen := make(map[string]struct{}, len(cells))
	out := cells[:0]
	for _, c := range cells {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
