package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MakeValid returns a best-effort repaired copy of g, or nil when nothing
// usable is left. Rings are closed, repeated vertices and spikes removed,
// degenerate rings dropped, shells wound counter-clockwise and holes
// clockwise. Holes lying outside their shell are discarded. A bare ring is
// promoted to a polygon.
//
// A polygon whose rings cross or touch themselves is split at those points
// and rebuilt with the even-odd rule, so a bowtie becomes a MultiPolygon of
// its two lobes.
func MakeValid(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case nil:
		return nil
	case orb.Point:
		if !finitePoint(g) {
			return nil
		}
		return g
	case orb.MultiPoint:
		var mp orb.MultiPoint
		for _, p := range g {
			if finitePoint(p) {
				mp = append(mp, p)
			}
		}
		if len(mp) == 0 {
			return nil
		}
		return mp
	case orb.LineString:
		if ls := cleanLine(g); ls != nil {
			return ls
		}
		return nil
	case orb.MultiLineString:
		var mls orb.MultiLineString
		for _, ls := range g {
			if c := cleanLine(ls); c != nil {
				mls = append(mls, c)
			}
		}
		if len(mls) == 0 {
			return nil
		}
		return mls
	case orb.Ring:
		return polygons(repairPolygon(orb.Polygon{g}))
	case orb.Bound:
		return polygons(repairPolygon(g.ToPolygon()))
	case orb.Polygon:
		return polygons(repairPolygon(g))
	case orb.MultiPolygon:
		var mp orb.MultiPolygon
		for _, p := range g {
			mp = append(mp, repairPolygon(p)...)
		}
		if len(mp) == 0 {
			return nil
		}
		return mp
	case orb.Collection:
		var c orb.Collection
		for _, m := range g {
			if r := MakeValid(m); r != nil {
				c = append(c, r)
			}
		}
		switch len(c) {
		case 0:
			return nil
		case 1:
			return c[0]
		}
		return c
	}
	return nil
}

func cleanLine(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(ls))
	for _, p := range ls {
		if !finitePoint(p) {
			return nil
		}
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

// cleanRing closes the ring and drops repeated vertices and spikes. It
// returns nil when fewer than three distinct vertices remain.
func cleanRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		if !finitePoint(p) {
			return nil
		}
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
		for len(out) >= 3 && spike(out[len(out)-3], out[len(out)-2], out[len(out)-1]) {
			out = append(out[:len(out)-2], out[len(out)-1])
			if out[len(out)-1].Equal(out[len(out)-2]) {
				out = out[:len(out)-1]
			}
		}
	}

	// The seam between the last and first vertex.
	for len(out) >= 3 {
		n := len(out)
		switch {
		case out[0].Equal(out[n-1]):
			out = out[:n-1]
		case spike(out[n-2], out[n-1], out[0]):
			out = out[:n-1]
		case spike(out[n-1], out[0], out[1]):
			out = out[1:]
		default:
			return append(out, out[0])
		}
	}
	return nil
}

// spike reports whether b is the tip of a zero-width spike: the path
// a, b, c doubles back on itself.
func spike(a, b, c orb.Point) bool {
	ux, uy := b[0]-a[0], b[1]-a[1]
	vx, vy := c[0]-b[0], c[1]-b[1]
	return ux*vy-uy*vx == 0 && ux*vx+uy*vy < 0
}

func polygons(ps []orb.Polygon) orb.Geometry {
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	}
	return orb.MultiPolygon(ps)
}

// repairPolygon cleans the rings of p. Simple rings keep their roles;
// self-crossing rings are split and every loop is reassembled by nesting.
func repairPolygon(p orb.Polygon) []orb.Polygon {
	if len(p) == 0 {
		return nil
	}

	var (
		rings   []orb.Ring
		loops   []orb.Ring
		crossed bool
	)
	for i, r := range p {
		c := cleanRing(r)
		if c == nil {
			if i == 0 {
				return nil
			}
			continue
		}
		parts, split := splitRing(c)
		crossed = crossed || split
		rings = append(rings, c)
		loops = append(loops, parts...)
	}
	if crossed {
		return evenOdd(loops)
	}

	shell := rings[0]
	if planar.Area(shell) == 0 {
		return nil
	}
	if shell.Orientation() != orb.CCW {
		shell.Reverse()
	}

	out := orb.Polygon{shell}
	sb := shell.Bound()
	for _, hole := range rings[1:] {
		if planar.Area(hole) == 0 {
			continue
		}
		if !sb.Contains(hole.Bound().Min) || !sb.Contains(hole.Bound().Max) {
			continue
		}
		if !holeInside(shell, hole) {
			continue
		}
		if hole.Orientation() != orb.CW {
			hole.Reverse()
		}
		out = append(out, hole)
	}
	return []orb.Polygon{out}
}

// holeInside reports whether some vertex of hole lies strictly inside
// shell. Holes touching the shell at every vertex are rejected.
func holeInside(shell, hole orb.Ring) bool {
	for _, v := range hole {
		if planar.RingContains(shell, v) {
			return true
		}
	}
	return false
}

// PolygonArea is the planar area of p with holes subtracted, independent
// of ring winding.
func PolygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	a := math.Abs(planar.Area(p[0]))
	for _, h := range p[1:] {
		a -= math.Abs(planar.Area(h))
	}
	return a
}
