package rhealpix

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func TestProjectRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		lon := rng.Float64()*360 - 180
		lat := rng.Float64()*179.8 - 89.9
		x, y := Project(lon, lat)
		lon2, lat2 := Unproject(x, y)
		dlon := math.Mod(lon2-lon+540, 360) - 180
		if math.Abs(lat2-lat) > 1e-6 || math.Abs(dlon) > 1e-6 {
			t.Fatalf("(%v, %v) -> (%v, %v) -> (%v, %v)", lon, lat, x, y, lon2, lat2)
		}
	}
}

func TestFromLonLat(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		res      int
		want     Cell
	}{
		{"origin", 0, 0, 1, "Q3"},
		{"north cap", 0, 45, 1, "N2"},
		{"face only", 100, -10, 0, "R"},
		{"north pole", 0, 90, 0, "N"},
		{"south pole", 0, -90, 2, "S44"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromLonLat(tt.lon, tt.lat, tt.res); got != tt.want {
				t.Errorf("FromLonLat(%v, %v, %d) = %s, want %s", tt.lon, tt.lat, tt.res, got, tt.want)
			}
		})
	}
}

func TestHierarchy(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		lon := rng.Float64()*360 - 180
		lat := rng.Float64()*180 - 90
		res := 1 + rng.Intn(MaxResolution)

		c := FromLonLat(lon, lat, res)
		if !c.Valid() || c.Resolution() != res {
			t.Fatalf("FromLonLat gave %q at res %d", c, res)
		}
		if p := FromLonLat(lon, lat, res-1); c.Parent(res-1) != p {
			t.Fatalf("parent of %s = %s, want %s", c, c.Parent(res-1), p)
		}

		// The planar centroid must map back into the same cell.
		clon, clat := c.Center()
		if back := FromLonLat(clon, clat, res); back != c {
			t.Fatalf("center of %s maps to %s", c, back)
		}
		if b := c.Bound(); !b.Contains(orb.Point{clon, clat}) || !b.Contains(orb.Point{lon, lat}) {
			t.Fatalf("bound %v of %s misses its center or source point", b, c)
		}
	}
}

func TestCenterChild(t *testing.T) {
	c := FromLonLat(12.5, 41.9, 4)
	cc := c.CenterChild(7)
	if cc.Resolution() != 7 || cc.Parent(4) != c {
		t.Fatalf("CenterChild(7) = %s", cc)
	}
	lon1, lat1 := c.Center()
	lon2, lat2 := cc.Center()
	if math.Abs(lon1-lon2) > 1e-9 || math.Abs(lat1-lat2) > 1e-9 {
		t.Errorf("center child center (%v,%v) != cell center (%v,%v)", lon2, lat2, lon1, lat1)
	}
	if c.CenterChild(3) != c {
		t.Error("CenterChild at a coarser level should return the cell")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		c    Cell
		want bool
	}{
		{"N", true},
		{"Q0123", true},
		{"S888888888888888", true},
		{"", false},
		{"T1", false},
		{"N9", false},
		{"N8888888888888888", false},
	}
	for _, tt := range tests {
		if got := tt.c.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestArea(t *testing.T) {
	total := 6 * Area(0)
	if math.Abs(total-5.10065621724e14)/5.10065621724e14 > 1e-6 {
		t.Errorf("6 * Area(0) = %v, want earth area", total)
	}
	if r := Area(3) / Area(4); math.Abs(r-9) > 1e-9 {
		t.Errorf("area ratio = %v, want 9", r)
	}
}

func TestCompact(t *testing.T) {
	parent := Cell("P12")
	full := parent.Children()

	tests := []struct {
		name   string
		cells  []Cell
		minRes int
		want   []Cell
	}{
		{"complete siblings", full, 0, []Cell{"P12"}},
		{"incomplete siblings", full[:8], 0, full[:8]},
		{"floor respected", full, 3, full},
		{
			name:   "recursive",
			cells:  allDescendants("P1", 3),
			minRes: 0,
			want:   []Cell{"P1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compact(tt.cells, tt.minRes)
			if len(got) != len(tt.want) {
				t.Fatalf("Compact() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Compact() = %v, want %v", got, tt.want)
				}
			}
			again := Compact(got, tt.minRes)
			if len(again) != len(got) {
				t.Errorf("Compact not idempotent: %v -> %v", got, again)
			}
		})
	}
}

func allDescendants(c Cell, res int) []Cell {
	if c.Resolution() == res {
		return []Cell{c}
	}
	var out []Cell
	for _, ch := range c.Children() {
		out = append(out, allDescendants(ch, res)...)
	}
	return out
}

func TestPolyfill(t *testing.T) {
	poly := orb.Polygon{{{10, 10}, {11, 10}, {11, 11}, {10, 11}, {10, 10}}}
	contains := func(lon, lat float64) bool {
		return planar.PolygonContains(poly, orb.Point{lon, lat})
	}

	cells := Polyfill(poly.Bound(), 6, contains)
	if len(cells) == 0 {
		t.Fatal("no cells")
	}
	seen := make(map[Cell]bool)
	for _, c := range cells {
		if seen[c] {
			t.Fatalf("duplicate cell %s", c)
		}
		seen[c] = true
		lon, lat := c.Center()
		if !contains(lon, lat) {
			t.Errorf("cell %s center (%v, %v) outside polygon", c, lon, lat)
		}
	}

	// A cell whose center is inside must be found.
	probe := FromLonLat(10.5, 10.5, 6)
	if !seen[probe] {
		t.Errorf("cell %s containing the polygon center was not returned", probe)
	}

	// Expected count from area: 1°x1° near 10°N over the cell area.
	area := 111319.49 * 111319.49 * math.Cos(10.5*math.Pi/180)
	want := area / Area(6)
	if n := float64(len(cells)); n < want*0.8 || n > want*1.2 {
		t.Errorf("got %d cells, want about %.0f", len(cells), want)
	}
}
