package geometry

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// indexThreshold is the vertex count above which polygon edges are loaded
// into an R-tree.
const indexThreshold = 256

// Containment answers point-in-polygon queries for one polygon, holes
// included. Large polygons keep their edges in an R-tree so each query only
// visits edges crossing the query ray.
type Containment struct {
	poly  orb.Polygon
	bound orb.Bound
	rtree *rtreego.Rtree
}

type edge struct {
	a, b orb.Point
}

// Bounds method for rtreego.Spatial interface.
func (e edge) Bounds() rtreego.Rect {
	minX, maxX := math.Min(e.a[0], e.b[0]), math.Max(e.a[0], e.b[0])
	minY, maxY := math.Min(e.a[1], e.b[1]), math.Max(e.a[1], e.b[1])
	rect, _ := rtreego.NewRect(rtreego.Point{minX, minY}, []float64{pad(maxX-minX, maxX), pad(maxY-minY, maxY)})
	return rect
}

// NewContainment prepares p for repeated Contains calls.
func NewContainment(p orb.Polygon) *Containment {
	c := &Containment{poly: p, bound: p.Bound()}

	n := 0
	for _, r := range p {
		n += len(r)
	}
	if n <= indexThreshold {
		return c
	}

	// 2D, min=25 children, max=50 children
	c.rtree = rtreego.NewTree(2, 25, 50)
	for _, r := range p {
		for i := 1; i < len(r); i++ {
			c.rtree.Insert(edge{a: r[i-1], b: r[i]})
		}
	}
	return c
}

// Contains reports whether pt is inside the polygon and not inside a hole,
// using the even-odd rule over all rings.
func (c *Containment) Contains(pt orb.Point) bool {
	if len(c.poly) == 0 || !c.bound.Contains(pt) {
		return false
	}

	if c.rtree == nil {
		inside := false
		for _, r := range c.poly {
			if ringCrossings(r, pt)%2 == 1 {
				inside = !inside
			}
		}
		return inside
	}

	// Horizontal ray from pt towards +x. The query box is widened on every
	// side; crosses() decides exactly.
	h := pad(0, pt[1])
	query, _ := rtreego.NewRect(
		rtreego.Point{pt[0] - h, pt[1] - h},
		[]float64{c.bound.Max[0] - pt[0] + 2*h + 1, 2 * h},
	)
	crossings := 0
	for _, s := range c.rtree.SearchIntersect(query) {
		e := s.(edge)
		if crosses(e.a, e.b, pt) {
			crossings++
		}
	}
	return crossings%2 == 1
}

// pad keeps R-tree extents positive for axis-parallel edges, scaled to the
// magnitude of the coordinate.
func pad(v, coord float64) float64 {
	floor := 1e-9 * math.Max(1, math.Abs(coord))
	if v < floor {
		return floor
	}
	return v
}

func ringCrossings(r orb.Ring, pt orb.Point) int {
	n := 0
	for i := 1; i < len(r); i++ {
		if crosses(r[i-1], r[i], pt) {
			n++
		}
	}
	return n
}

// crosses reports whether the segment ab crosses the ray from pt towards +x.
func crosses(a, b, pt orb.Point) bool {
	if (a[1] > pt[1]) == (b[1] > pt[1]) {
		return false
	}
	x := (b[0]-a[0])*(pt[1]-a[1])/(b[1]-a[1]) + a[0]
	return pt[0] < x
}
