package geometry

import (
	"github.com/paulmach/orb"
)

// Explode splits multi-part geometries and collections into single parts.
// Rings and bounds become polygons.
func Explode(g orb.Geometry) []orb.Geometry {
	switch g := g.(type) {
	case nil:
		return nil
	case orb.MultiPoint:
		out := make([]orb.Geometry, 0, len(g))
		for _, p := range g {
			out = append(out, p)
		}
		return out
	case orb.MultiLineString:
		out := make([]orb.Geometry, 0, len(g))
		for _, ls := range g {
			out = append(out, ls)
		}
		return out
	case orb.MultiPolygon:
		out := make([]orb.Geometry, 0, len(g))
		for _, p := range g {
			out = append(out, p)
		}
		return out
	case orb.Collection:
		var out []orb.Geometry
		for _, m := range g {
			out = append(out, Explode(m)...)
		}
		return out
	case orb.Ring:
		return []orb.Geometry{orb.Polygon{g}}
	case orb.Bound:
		return []orb.Geometry{g.ToPolygon()}
	}
	return []orb.Geometry{g}
}

// Supported reports whether g is a single-part type the indexers accept.
func Supported(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Point, orb.LineString, orb.Polygon:
		return true
	}
	return false
}

// IsEmpty reports whether g has too few vertices to index.
func IsEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.Point:
		return !finitePoint(g)
	case orb.LineString:
		return len(g) < 2
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) < 4
	case orb.MultiPoint:
		return len(g) == 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) >= 2 {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) > 0 && len(p[0]) >= 4 {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, m := range g {
			if !IsEmpty(m) {
				return false
			}
		}
		return true
	case orb.Ring:
		return len(g) < 4
	}
	return false
}
