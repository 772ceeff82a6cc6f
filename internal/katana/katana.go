// Package katana splits oversized geometries into pieces whose bounding box
// stays under a size threshold.
package katana

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/beetlebugorg/vector2dggs/internal/geometry"
)

// MaxDepth caps recursion. Pieces reaching it are returned whatever their
// size.
const MaxDepth = 250

// Threshold bounds piece size. Polygons are compared by bounding-box area,
// lines by the longer bounding-box side, both in the units of the
// coordinates handed to Bisect.
type Threshold struct {
	Area   float64
	Length float64
}

// AreaThreshold derives a Threshold from an area limit. The line limit is
// the side of a square of that area.
func AreaThreshold(area float64) Threshold {
	if area <= 0 {
		return Threshold{}
	}
	return Threshold{Area: area, Length: math.Sqrt(area)}
}

// Piece is one output geometry with the depth it was produced at.
type Piece struct {
	Geometry orb.Geometry
	Depth    int
}

// Bisect returns g split into pieces that satisfy t.
//
// The geometry is repaired once up front. Empty or unusable input yields an
// empty result; Bisect never fails. Clipped parts that are neither polygons
// nor lines are discarded. A zero or negative limit disables splitting for
// that geometry kind.
func Bisect(g orb.Geometry, t Threshold) []orb.Geometry {
	pieces := BisectPieces(g, t)
	out := make([]orb.Geometry, len(pieces))
	for i, p := range pieces {
		out[i] = p.Geometry
	}
	return out
}

// BisectPieces is Bisect reporting the depth of every piece.
func BisectPieces(g orb.Geometry, t Threshold) []Piece {
	if g == nil || geometry.IsEmpty(g) {
		return nil
	}
	if r, ok := g.(orb.Ring); ok {
		g = orb.Polygon{r}
	}
	g = geometry.MakeValid(g)
	if g == nil {
		return nil
	}

	var out []Piece
	stack := []Piece{{Geometry: g, Depth: 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		b := it.Geometry.Bound()
		w, h := b.Right()-b.Left(), b.Top()-b.Bottom()
		if small(it.Geometry, w, h, t) || it.Depth >= MaxDepth {
			out = append(out, it)
			continue
		}

		var first, second orb.Bound
		if h >= w {
			mid := b.Bottom() + h/2
			first = orb.Bound{Min: b.Min, Max: orb.Point{b.Right(), mid}}
			second = orb.Bound{Min: orb.Point{b.Left(), mid}, Max: b.Max}
		} else {
			mid := b.Left() + w/2
			first = orb.Bound{Min: b.Min, Max: orb.Point{mid, b.Top()}}
			second = orb.Bound{Min: orb.Point{mid, b.Bottom()}, Max: b.Max}
		}

		// Pushed in reverse so the first half is processed first.
		for _, half := range []orb.Bound{second, first} {
			for _, part := range cut(it.Geometry, half) {
				stack = append(stack, Piece{Geometry: part, Depth: it.Depth + 1})
			}
		}
	}
	return out
}

func small(g orb.Geometry, w, h float64, t Threshold) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return t.Area <= 0 || w*h <= t.Area
	case orb.LineString, orb.MultiLineString:
		return t.Length <= 0 || math.Max(w, h) <= t.Length
	}
	return true
}

// cut clips g to half and returns its usable single parts. Vertices are
// added along the clip edges so the pieces survive later reprojection
// without gaps, then the parts are cleaned of repeated vertices.
func cut(g orb.Geometry, half orb.Bound) []orb.Geometry {
	clipped := clip.Geometry(half, orb.Clone(g))
	if clipped == nil {
		return nil
	}
	seg := math.Min(half.Right()-half.Left(), half.Top()-half.Bottom()) / 2
	clipped = geometry.MakeValid(geometry.DensifyOnBound(clipped, half, seg))
	if clipped == nil {
		return nil
	}

	var parts []orb.Geometry
	for _, p := range geometry.Explode(clipped) {
		switch p := p.(type) {
		case orb.Polygon:
			if len(p) == 0 || len(p[0]) < 4 || geometry.PolygonArea(p) <= 0 {
				continue
			}
			parts = append(parts, p)
		case orb.LineString:
			if len(p) < 2 {
				continue
			}
			parts = append(parts, p)
		}
	}
	return parts
}
