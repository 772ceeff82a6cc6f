package indexer

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/vector2dggs/internal/geometry"
	"github.com/beetlebugorg/vector2dggs/internal/rhealpix"
)

type rhpGrid struct{}

func (rhpGrid) scheme() Scheme { return RHEALPix }

func (rhpGrid) point(pt orb.Point, res int) string {
	return string(rhealpix.FromLonLat(pt[0], pt[1], res))
}

func (rhpGrid) polygon(p orb.Polygon, res int) []string {
	c := geometry.NewContainment(p)
	cells := rhealpix.Polyfill(p.Bound(), res, func(lon, lat float64) bool {
		return c.Contains(orb.Point{lon, lat})
	})
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = string(cell)
	}
	return out
}

func (g rhpGrid) line(ls orb.LineString, res int) []string {
	// A quarter of the cell edge, in degrees of the authalic sphere.
	step := math.Pi / 2 / math.Pow(3, float64(res)) * 180 / math.Pi / 4
	return traceLine(ls, step, func(p orb.Point) string { return g.point(p, res) })
}

func (rhpGrid) parent(cell string, res int) (string, bool) {
	c := rhealpix.Cell(cell)
	if !c.Valid() || res < 0 || res > c.Resolution() {
		return "", false
	}
	return string(c.Parent(res)), true
}

func (rhpGrid) compact(cells []string, minRes int) []string {
	in := make([]rhealpix.Cell, 0, len(cells))
	for _, s := range cells {
		if c := rhealpix.Cell(s); c.Valid() {
			in = append(in, c)
		}
	}
	compacted := rhealpix.Compact(in, minRes)
	out := make([]string, len(compacted))
	for i, c := range compacted {
		out[i] = string(c)
	}
	return out
}

func (rhpGrid) centerChild(cell string, res int) string {
	return string(rhealpix.Cell(cell).CenterChild(res))
}

func (rhpGrid) maxArea(res int) float64 {
	return rhealpix.Area(res)
}
