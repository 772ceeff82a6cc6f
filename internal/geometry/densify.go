package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// DensifyOnBound inserts vertices along segments of g that lie on an edge of
// b so that no such segment is longer than maxLen. Segments away from the
// bound are left alone.
func DensifyOnBound(g orb.Geometry, b orb.Bound, maxLen float64) orb.Geometry {
	if maxLen <= 0 {
		return g
	}
	switch g := g.(type) {
	case orb.Polygon:
		out := make(orb.Polygon, len(g))
		for i, r := range g {
			out[i] = orb.Ring(densify(orb.LineString(r), b, maxLen))
		}
		return out
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = DensifyOnBound(p, b, maxLen).(orb.Polygon)
		}
		return out
	case orb.Ring:
		return orb.Ring(densify(orb.LineString(g), b, maxLen))
	case orb.LineString:
		return densify(g, b, maxLen)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = densify(ls, b, maxLen)
		}
		return out
	}
	return g
}

func densify(ls orb.LineString, b orb.Bound, maxLen float64) orb.LineString {
	if len(ls) < 2 {
		return ls
	}
	out := make(orb.LineString, 0, len(ls))
	out = append(out, ls[0])
	for i := 1; i < len(ls); i++ {
		a, c := ls[i-1], ls[i]
		if onSameEdge(a, c, b) {
			d := math.Hypot(c[0]-a[0], c[1]-a[1])
			n := int(math.Ceil(d / maxLen))
			for k := 1; k < n; k++ {
				t := float64(k) / float64(n)
				out = append(out, orb.Point{a[0] + (c[0]-a[0])*t, a[1] + (c[1]-a[1])*t})
			}
		}
		out = append(out, c)
	}
	return out
}

func onSameEdge(a, c orb.Point, b orb.Bound) bool {
	eps := 1e-12 * math.Max(1, math.Max(math.Abs(b.Max[0]), math.Abs(b.Max[1])))
	near := func(v, edge float64) bool { return math.Abs(v-edge) <= eps }
	switch {
	case near(a[0], b.Min[0]) && near(c[0], b.Min[0]):
		return true
	case near(a[0], b.Max[0]) && near(c[0], b.Max[0]):
		return true
	case near(a[1], b.Min[1]) && near(c[1], b.Min[1]):
		return true
	case near(a[1], b.Max[1]) && near(c[1], b.Max[1]):
		return true
	}
	return false
}
