package indexer

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"
)

// h3HexArea is the average hexagon area in square metres per resolution.
var h3HexArea = [16]float64{
	4.357449416078383e12,
	6.097884417941332e11,
	8.680178039899720e10,
	1.239343465508816e10,
	1.770347654491307e9,
	2.529038581819449e8,
	3.612906216441245e7,
	5.161293359717191e6,
	7.373275975944177e5,
	1.053325134272067e5,
	1.504750190766435e4,
	2.149643129451879e3,
	3.070918756316060e2,
	4.387026794728296e1,
	6.267181135324313e0,
	8.953115907605790e-1,
}

type h3Grid struct{}

func (h3Grid) scheme() Scheme { return H3 }

func (h3Grid) point(pt orb.Point, res int) string {
	return h3.LatLngToCell(h3.NewLatLng(pt[1], pt[0]), res).String()
}

func h3Loop(r orb.Ring) h3.GeoLoop {
	n := len(r)
	if n > 1 && r[0].Equal(r[n-1]) {
		n--
	}
	loop := make(h3.GeoLoop, n)
	for i := 0; i < n; i++ {
		loop[i] = h3.NewLatLng(r[i][1], r[i][0])
	}
	return loop
}

// polygon relies on the library's own center-containment rule, which
// already excludes centers inside holes.
func (h3Grid) polygon(p orb.Polygon, res int) []string {
	if len(p) == 0 {
		return nil
	}
	gp := h3.GeoPolygon{GeoLoop: h3Loop(p[0])}
	for _, hole := range p[1:] {
		gp.Holes = append(gp.Holes, h3Loop(hole))
	}
	cells := h3.PolygonToCells(gp, res)
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.String()
	}
	return out
}

// line joins the grid paths between consecutive vertices. Pairs the path
// algorithm cannot connect (across pentagons) are sampled instead.
func (g h3Grid) line(ls orb.LineString, res int) []string {
	if len(ls) == 0 {
		return nil
	}
	step := math.Sqrt(h3HexArea[res]) / metresPerDegree / 4

	var out []string
	prev := h3.LatLngToCell(h3.NewLatLng(ls[0][1], ls[0][0]), res)
	out = append(out, prev.String())
	for i := 1; i < len(ls); i++ {
		next := h3.LatLngToCell(h3.NewLatLng(ls[i][1], ls[i][0]), res)
		if next == prev {
			continue
		}
		path := h3.GridPath(prev, next)
		if len(path) == 0 {
			out = append(out, traceLine(orb.LineString{ls[i-1], ls[i]}, step, func(p orb.Point) string {
				return g.point(p, res)
			})...)
		} else {
			for _, c := range path {
				out = append(out, c.String())
			}
		}
		prev = next
	}
	return out
}

func parseH3(cell string) (h3.Cell, bool) {
	c := h3.Cell(h3.IndexFromString(cell))
	return c, c.IsValid()
}

func (h3Grid) parent(cell string, res int) (string, bool) {
	c, ok := parseH3(cell)
	if !ok || res < 0 || res > c.Resolution() {
		return "", false
	}
	if res == c.Resolution() {
		return cell, true
	}
	return c.Parent(res).String(), true
}

// compact expands mixed-resolution input to its finest resolution first;
// the library only compacts uniform sets.
func (h3Grid) compact(cells []string, minRes int) []string {
	parsed := make([]h3.Cell, 0, len(cells))
	finest := 0
	for _, s := range cells {
		if c, ok := parseH3(s); ok {
			parsed = append(parsed, c)
			finest = max(finest, c.Resolution())
		}
	}

	in := make([]h3.Cell, 0, len(parsed))
	seen := make(map[h3.Cell]struct{}, len(parsed))
	add := func(c h3.Cell) {
		if _, dup := seen[c]; !dup {
			seen[c] = struct{}{}
			in = append(in, c)
		}
	}
	for _, c := range parsed {
		if c.Resolution() == finest {
			add(c)
			continue
		}
		for _, child := range c.Children(finest) {
			add(child)
		}
	}

	var out []string
	for _, c := range h3.CompactCells(in) {
		if c.Resolution() >= minRes {
			out = append(out, c.String())
			continue
		}
		for _, child := range c.Children(minRes) {
			out = append(out, child.String())
		}
	}
	return out
}

func (h3Grid) centerChild(cell string, res int) string {
	c, ok := parseH3(cell)
	if !ok || res <= c.Resolution() {
		return cell
	}
	return c.CenterChild(res).String()
}

func (h3Grid) maxArea(res int) float64 {
	return h3HexArea[res]
}
