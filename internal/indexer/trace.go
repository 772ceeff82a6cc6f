package indexer

import (
	"math"

	"github.com/paulmach/orb"
)

// traceLine walks ls in steps no longer than step and maps each sample to
// a cell, collapsing repeats.
func traceLine(ls orb.LineString, step float64, cell func(orb.Point) string) []string {
	var out []string
	add := func(p orb.Point) {
		c := cell(p)
		if len(out) == 0 || out[len(out)-1] != c {
			out = append(out, c)
		}
	}
	if len(ls) == 0 {
		return nil
	}
	add(ls[0])
	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		n := 1
		if step > 0 {
			n = int(math.Ceil(math.Hypot(b[0]-a[0], b[1]-a[1]) / step))
			n = max(n, 1)
		}
		for k := 1; k <= n; k++ {
			f := float64(k) / float64(n)
			add(orb.Point{a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f})
		}
	}
	return out
}

// gridCenters visits the center of every cell of a regular w x h degree
// lon/lat grid that overlaps bound.
func gridCenters(bound orb.Bound, w, h float64, visit func(center orb.Point)) {
	c0 := int(math.Floor((bound.Min[0] + 180) / w))
	c1 := int(math.Floor((bound.Max[0] + 180) / w))
	r0 := int(math.Floor((bound.Min[1] + 90) / h))
	r1 := int(math.Floor((bound.Max[1] + 90) / h))
	maxC := int(math.Round(360/w)) - 1
	maxR := int(math.Round(180/h)) - 1
	c0, c1 = clampInt(c0, 0, maxC), clampInt(c1, 0, maxC)
	r0, r1 = clampInt(r0, 0, maxR), clampInt(r1, 0, maxR)

	for r := r0; r <= r1; r++ {
		lat := -90 + (float64(r)+0.5)*h
		for c := c0; c <= c1; c++ {
			visit(orb.Point{-180 + (float64(c)+0.5)*w, lat})
		}
	}
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
