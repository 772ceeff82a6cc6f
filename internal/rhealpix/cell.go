package rhealpix

import (
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/vector2dggs/internal/projection"
)

// MaxResolution is the finest supported level.
const MaxResolution = 15

// faces are the resolution-0 cells: the north square, four equatorial
// squares west to east, and the south square.
const faces = "NOPQRS"

// Cell identifies one rHEALPix cell: a face letter followed by one digit
// 0-8 per level. Digits number the 3x3 children row by row from the
// upper-left corner, so 4 is the central child.
type Cell string

// Valid reports whether c is a well-formed cell identifier.
func (c Cell) Valid() bool {
	if len(c) == 0 || len(c) > MaxResolution+1 {
		return false
	}
	if !strings.ContainsRune(faces, rune(c[0])) {
		return false
	}
	for i := 1; i < len(c); i++ {
		if c[i] < '0' || c[i] > '8' {
			return false
		}
	}
	return true
}

// Resolution returns the level of c.
func (c Cell) Resolution() int {
	return len(c) - 1
}

// Parent returns the ancestor of c at res. It returns c itself when res is
// not coarser than c.
func (c Cell) Parent(res int) Cell {
	if res < 0 || res >= c.Resolution() {
		return c
	}
	return c[:res+1]
}

// CenterChild returns the central descendant of c at res.
func (c Cell) CenterChild(res int) Cell {
	if res <= c.Resolution() {
		return c
	}
	return c + Cell(strings.Repeat("4", res-c.Resolution()))
}

// Children returns the nine children of c.
func (c Cell) Children() []Cell {
	out := make([]Cell, 9)
	for d := 0; d < 9; d++ {
		out[d] = c + Cell(rune('0'+d))
	}
	return out
}

// faceOrigin returns the upper-left corner of a resolution-0 square.
func faceOrigin(face byte) (x0, y0 float64) {
	switch face {
	case 'N':
		return -math.Pi + northSquare*math.Pi/2, 3 * math.Pi / 4
	case 'S':
		return -math.Pi + southSquare*math.Pi/2, -math.Pi / 4
	}
	i := strings.IndexByte(faces, face) - 1
	return -math.Pi + float64(i)*math.Pi/2, math.Pi / 4
}

// side is the planar edge length of a cell at res.
func side(res int) float64 {
	return math.Pi / 2 / math.Pow(3, float64(res))
}

// planar returns the upper-left corner and edge length of c in the plane.
func (c Cell) planar() (x0, y0, s float64) {
	x0, y0 = faceOrigin(c[0])
	col, row := 0, 0
	for i := 1; i < len(c); i++ {
		d := int(c[i] - '0')
		row = row*3 + d/3
		col = col*3 + d%3
	}
	s = side(c.Resolution())
	return x0 + float64(col)*s, y0 - float64(row)*s, s
}

// FromPlanar returns the cell at res containing planar point (x, y).
func FromPlanar(x, y float64, res int) Cell {
	var face byte
	switch {
	case y > math.Pi/4:
		face = 'N'
	case y < -math.Pi/4:
		face = 'S'
	default:
		face = faces[1+triangle(x)]
	}
	x0, y0 := faceOrigin(face)

	n := int(math.Round(math.Pow(3, float64(res))))
	col := gridIndex((x-x0)/(math.Pi/2), n)
	row := gridIndex((y0-y)/(math.Pi/2), n)

	b := make([]byte, res+1)
	b[0] = face
	for i := res; i >= 1; i-- {
		b[i] = byte('0' + 3*(row%3) + col%3)
		row /= 3
		col /= 3
	}
	return Cell(b)
}

func gridIndex(u float64, n int) int {
	i := int(math.Floor(u * float64(n)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// FromLonLat returns the cell at res containing the lon/lat point.
func FromLonLat(lon, lat float64, res int) Cell {
	x, y := Project(lon, lat)
	return FromPlanar(x, y, res)
}

// Center returns the lon/lat of the planar centroid of c.
func (c Cell) Center() (lon, lat float64) {
	x0, y0, s := c.planar()
	return Unproject(x0+s/2, y0-s/2)
}

// Bound returns a conservative lon/lat bounding box of c, found by
// sampling the cell and padding by half a cell. Cells touching a pole or
// wrapping the antimeridian get the full longitude range.
func (c Cell) Bound() orb.Bound {
	const samples = 5
	x0, y0, s := c.planar()

	b := orb.Bound{Min: orb.Point{180, 90}, Max: orb.Point{-180, -90}}
	for i := 0; i < samples; i++ {
		for j := 0; j < samples; j++ {
			x := x0 + s*float64(i)/(samples-1)
			y := y0 - s*float64(j)/(samples-1)
			lon, lat := Unproject(x, y)
			b = b.Extend(orb.Point{lon, lat})
		}
	}

	padDeg := s * 180 / math.Pi / 2
	b.Min[1] = math.Max(-90, b.Min[1]-padDeg)
	b.Max[1] = math.Min(90, b.Max[1]+padDeg)

	fullLon := b.Max[0]-b.Min[0] > 180
	if c[0] == 'N' || c[0] == 'S' {
		px, py := triangleCenter(northSquare), math.Pi/2
		if c[0] == 'S' {
			px, py = triangleCenter(southSquare), -math.Pi/2
		}
		if px >= x0 && px <= x0+s && py <= y0 && py >= y0-s {
			fullLon = true
			if c[0] == 'N' {
				b.Max[1] = 90
			} else {
				b.Min[1] = -90
			}
		}
	}

	if fullLon {
		b.Min[0], b.Max[0] = -180, 180
		return b
	}
	lat := math.Max(math.Abs(b.Min[1]), math.Abs(b.Max[1]))
	lonPad := padDeg / math.Max(math.Cos(lat*math.Pi/180), 0.01)
	b.Min[0] -= lonPad
	b.Max[0] += lonPad
	if b.Min[0] < -180 || b.Max[0] > 180 {
		b.Min[0], b.Max[0] = -180, 180
	}
	return b
}

// Area returns the area in square metres of any cell at res. rHEALPix
// cells at one level are equal-area.
func Area(res int) float64 {
	r := projection.AuthalicRadius
	return 4 * math.Pi * r * r / (6 * math.Pow(9, float64(res)))
}

// Polyfill returns the cells at res whose centers satisfy contains,
// descending only into cells whose bounds meet bound.
func Polyfill(bound orb.Bound, res int, contains func(lon, lat float64) bool) []Cell {
	var out []Cell
	stack := make([]Cell, 0, 64)
	for i := len(faces) - 1; i >= 0; i-- {
		stack = append(stack, Cell(faces[i:i+1]))
	}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !c.Bound().Intersects(bound) {
			continue
		}
		if c.Resolution() == res {
			if contains(c.Center()) {
				out = append(out, c)
			}
			continue
		}
		children := c.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// Compact replaces every complete group of nine siblings with their parent,
// repeatedly, never going coarser than minRes. The result is sorted.
func Compact(cells []Cell, minRes int) []Cell {
	set := make(map[Cell]struct{}, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}

	for {
		counts := make(map[Cell]int)
		for c := range set {
			if r := c.Resolution(); r > minRes {
				counts[c.Parent(r-1)]++
			}
		}
		merged := false
		for p, n := range counts {
			if n != 9 {
				continue
			}
			for _, child := range p.Children() {
				delete(set, child)
			}
			set[p] = struct{}{}
			merged = true
		}
		if !merged {
			break
		}
	}

	out := make([]Cell, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
