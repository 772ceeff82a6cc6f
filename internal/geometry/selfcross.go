package geometry

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ringSegment is segment i of an open ring, from vertex i to vertex i+1.
type ringSegment struct {
	edge
	i int
}

// crossing is a point inserted into a segment at parameter t.
type crossing struct {
	t float64
	p orb.Point
}

// splitRing splits a closed, cleaned ring at the points where it crosses or
// touches itself. The second result is false, and the ring is returned as
// is, when the ring is simple.
func splitRing(r orb.Ring) ([]orb.Ring, bool) {
	pts := r[:len(r)-1]
	m := len(pts)

	segs := make([]ringSegment, m)
	for i := range pts {
		segs[i] = ringSegment{edge: edge{a: pts[i], b: pts[(i+1)%m]}, i: i}
	}

	cuts := make([][]crossing, m)
	split := false
	visit := func(i, j int) {
		if i == j || (i+1)%m == j || (j+1)%m == i {
			return
		}
		t, u, p, ok := intersect(segs[i].a, segs[i].b, segs[j].a, segs[j].b)
		if !ok {
			return
		}
		if t > 0 && t < 1 {
			cuts[i] = append(cuts[i], crossing{t: t, p: p})
			split = true
		}
		if u > 0 && u < 1 {
			cuts[j] = append(cuts[j], crossing{t: u, p: p})
			split = true
		}
	}

	if m <= indexThreshold {
		for i := 0; i < m; i++ {
			for j := i + 1; j < m; j++ {
				visit(i, j)
			}
		}
	} else {
		tree := rtreego.NewTree(2, 25, 50)
		for _, s := range segs {
			tree.Insert(s)
		}
		for _, s := range segs {
			for _, o := range tree.SearchIntersect(s.Bounds()) {
				if j := o.(ringSegment).i; j > s.i {
					visit(s.i, j)
				}
			}
		}
	}

	seen := make(map[orb.Point]struct{}, m)
	for _, p := range pts {
		if _, dup := seen[p]; dup {
			split = true
		}
		seen[p] = struct{}{}
	}
	if !split {
		return []orb.Ring{r}, false
	}

	walk := make([]orb.Point, 0, m)
	for i, p := range pts {
		walk = append(walk, p)
		cs := cuts[i]
		sort.Slice(cs, func(a, b int) bool { return cs[a].t < cs[b].t })
		for _, c := range cs {
			if !c.p.Equal(walk[len(walk)-1]) {
				walk = append(walk, c.p)
			}
		}
	}

	// Every revisited point closes the loop walked since its first visit.
	var loops []orb.Ring
	stack := make([]orb.Point, 0, len(walk))
	at := make(map[orb.Point]int, len(walk))
	for _, p := range walk {
		if k, ok := at[p]; ok {
			loop := append(orb.Ring{}, stack[k:]...)
			loops = append(loops, append(loop, p))
			for _, q := range stack[k+1:] {
				delete(at, q)
			}
			stack = stack[:k+1]
			continue
		}
		at[p] = len(stack)
		stack = append(stack, p)
	}
	if len(stack) >= 3 {
		loop := append(orb.Ring{}, stack...)
		loops = append(loops, append(loop, stack[0]))
	}

	out := loops[:0]
	for _, l := range loops {
		if len(l) >= 4 && planar.Area(l) != 0 {
			out = append(out, l)
		}
	}
	return out, true
}

// intersect returns where segments ab and cd meet, as parameters along
// each segment and the point. Parallel segments never meet.
func intersect(a, b, c, d orb.Point) (t, u float64, p orb.Point, ok bool) {
	rx, ry := b[0]-a[0], b[1]-a[1]
	sx, sy := d[0]-c[0], d[1]-c[1]
	den := rx*sy - ry*sx
	if den == 0 {
		return 0, 0, orb.Point{}, false
	}
	qx, qy := c[0]-a[0], c[1]-a[1]
	t = (qx*sy - qy*sx) / den
	u = (qx*ry - qy*rx) / den
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, 0, orb.Point{}, false
	}

	switch {
	case t == 0:
		p = a
	case t == 1:
		p = b
	case u == 0:
		p = c
	case u == 1:
		p = d
	default:
		p = orb.Point{a[0] + t*rx, a[1] + t*ry}
	}
	return t, u, p, true
}

// evenOdd assembles simple loops into polygons. A loop inside an even
// number of other loops is a shell, otherwise a hole of the smallest loop
// containing it.
func evenOdd(loops []orb.Ring) []orb.Polygon {
	sort.SliceStable(loops, func(i, j int) bool {
		return math.Abs(planar.Area(loops[i])) > math.Abs(planar.Area(loops[j]))
	})

	var (
		polys  []orb.Polygon
		placed []orb.Ring
		owner  []int
	)
	for _, l := range loops {
		if planar.Area(l) == 0 {
			continue
		}
		if l.Orientation() != orb.CCW {
			l.Reverse()
		}
		probe := innerPoint(l)

		depth, parent := 0, -1
		for k, other := range placed {
			if planar.RingContains(other, probe) {
				depth++
				parent = k
			}
		}

		if depth%2 == 0 {
			polys = append(polys, orb.Polygon{l})
			owner = append(owner, len(polys)-1)
		} else {
			l.Reverse()
			pi := owner[parent]
			polys[pi] = append(polys[pi], l)
			owner = append(owner, pi)
		}
		placed = append(placed, l)
	}
	return polys
}

// innerPoint is a point just inside the first edge of a counter-clockwise
// ring.
func innerPoint(r orb.Ring) orb.Point {
	a, b := r[0], r[1]
	dx, dy := b[0]-a[0], b[1]-a[1]
	const nudge = 1e-6
	return orb.Point{
		(a[0]+b[0])/2 - dy*nudge,
		(a[1]+b[1])/2 + dx*nudge,
	}
}
