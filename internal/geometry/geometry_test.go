package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func square(x0, y0, size float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0}}
}

// TestValidateCoordinate tests coordinate validation
func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		lon     float64
		lat     float64
		wantErr bool
	}{
		{"valid", -71.05, 42.35, false},
		{"lat max boundary", 0.0, 90.0, false},
		{"lon min boundary", -180.0, 0.0, false},
		{"lat too high", 0.0, 90.1, true},
		{"lon too low", -180.1, 0.0, true},
		{"nan", math.NaN(), 0, true},
		{"inf", 0, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinate(tt.lon, tt.lat)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGeographic(t *testing.T) {
	tests := []struct {
		name    string
		g       orb.Geometry
		wantErr bool
	}{
		{"point", orb.Point{10, 10}, false},
		{"line", orb.LineString{{0, 0}, {1, 1}}, false},
		{"short line", orb.LineString{{0, 0}}, true},
		{"polygon", orb.Polygon{square(0, 0, 1)}, false},
		{"polygon out of range", orb.Polygon{square(179.5, 0, 1)}, true},
		{"multipolygon", orb.MultiPolygon{{square(0, 0, 1)}}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeographic(tt.g)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeographic() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMakeValid(t *testing.T) {
	t.Run("ring becomes closed ccw polygon", func(t *testing.T) {
		cw := orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
		got, ok := MakeValid(cw).(orb.Polygon)
		if !ok {
			t.Fatalf("MakeValid(ring) = %T, want orb.Polygon", MakeValid(cw))
		}
		shell := got[0]
		if !shell[0].Equal(shell[len(shell)-1]) {
			t.Error("shell not closed")
		}
		if shell.Orientation() != orb.CCW {
			t.Error("shell not counter-clockwise")
		}
	})

	t.Run("duplicate vertices removed", func(t *testing.T) {
		p := orb.Polygon{{{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
		got := MakeValid(p).(orb.Polygon)
		if len(got[0]) != 5 {
			t.Errorf("shell has %d points, want 5", len(got[0]))
		}
	})

	t.Run("degenerate polygon dropped", func(t *testing.T) {
		p := orb.Polygon{{{0, 0}, {1, 1}, {2, 2}, {0, 0}}}
		if got := MakeValid(p); got != nil {
			t.Errorf("MakeValid(collinear) = %v, want nil", got)
		}
	})

	t.Run("hole outside shell dropped", func(t *testing.T) {
		p := orb.Polygon{square(0, 0, 10), square(20, 20, 1)}
		got := MakeValid(p).(orb.Polygon)
		if len(got) != 1 {
			t.Errorf("got %d rings, want 1", len(got))
		}
	})

	t.Run("hole kept clockwise", func(t *testing.T) {
		p := orb.Polygon{square(0, 0, 10), square(2, 2, 2)}
		got := MakeValid(p).(orb.Polygon)
		if len(got) != 2 {
			t.Fatalf("got %d rings, want 2", len(got))
		}
		if got[1].Orientation() != orb.CW {
			t.Error("hole not clockwise")
		}
	})

	t.Run("nan point dropped", func(t *testing.T) {
		if got := MakeValid(orb.Point{math.NaN(), 0}); got != nil {
			t.Errorf("MakeValid(NaN) = %v, want nil", got)
		}
	})

	t.Run("collection unwraps single member", func(t *testing.T) {
		c := orb.Collection{orb.LineString{{0, 0}}, orb.LineString{{0, 0}, {1, 1}}}
		if _, ok := MakeValid(c).(orb.LineString); !ok {
			t.Errorf("MakeValid(collection) = %T, want orb.LineString", MakeValid(c))
		}
	})
}

func TestExplode(t *testing.T) {
	tests := []struct {
		name  string
		g     orb.Geometry
		count int
	}{
		{"polygon", orb.Polygon{square(0, 0, 1)}, 1},
		{"multipolygon", orb.MultiPolygon{{square(0, 0, 1)}, {square(5, 5, 1)}}, 2},
		{"multiline", orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}}, {{4, 4}, {5, 5}}}, 3},
		{"nested collection", orb.Collection{orb.Point{0, 0}, orb.Collection{orb.MultiPoint{{1, 1}, {2, 2}}}}, 3},
		{"ring", square(0, 0, 1), 1},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := Explode(tt.g)
			if len(parts) != tt.count {
				t.Fatalf("Explode() returned %d parts, want %d", len(parts), tt.count)
			}
			for _, p := range parts {
				if !Supported(p) {
					t.Errorf("part %T not supported", p)
				}
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		g    orb.Geometry
		want bool
	}{
		{"nil", nil, true},
		{"polygon", orb.Polygon{square(0, 0, 1)}, false},
		{"empty polygon", orb.Polygon{}, true},
		{"one point line", orb.LineString{{1, 1}}, true},
		{"point", orb.Point{1, 1}, false},
		{"empty multipolygon", orb.MultiPolygon{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmpty(tt.g); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDensifyOnBound(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 4}}
	p := orb.Polygon{{{0, 0}, {4, 0}, {2, 3}, {0, 0}}}

	got := DensifyOnBound(p, b, 1).(orb.Polygon)
	// Only the bottom edge lies on the bound: 0..4 in steps of 1.
	if len(got[0]) != 7 {
		t.Fatalf("densified ring has %d points, want 7: %v", len(got[0]), got[0])
	}
	if got[0][2] != (orb.Point{2, 0}) {
		t.Errorf("inserted vertex = %v, want [2 0]", got[0][2])
	}
	if math.Abs(PolygonArea(got)-PolygonArea(p)) > 1e-12 {
		t.Error("densify changed the area")
	}
}

func TestContainment(t *testing.T) {
	// A polygon with a hole, plus a many-vertex version of the same shape so
	// both the linear and R-tree paths are exercised.
	shell := square(0, 0, 10)
	hole := square(4, 4, 2)
	small := orb.Polygon{shell, hole}

	var dense orb.Ring
	for i := 0; i < 4; i++ {
		a, b := shell[i], shell[i+1]
		for k := 0; k < 100; k++ {
			f := float64(k) / 100
			dense = append(dense, orb.Point{a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f})
		}
	}
	dense = append(dense, dense[0])
	big := orb.Polygon{dense, hole}

	points := []struct {
		name string
		pt   orb.Point
		want bool
	}{
		{"inside", orb.Point{1, 1}, true},
		{"in hole", orb.Point{5, 5}, false},
		{"outside", orb.Point{11, 5}, false},
		{"left of hole", orb.Point{3, 5}, true},
		{"far outside", orb.Point{-50, -50}, false},
	}

	for _, tc := range []struct {
		name string
		poly orb.Polygon
	}{{"linear", small}, {"rtree", big}} {
		c := NewContainment(tc.poly)
		if tc.name == "rtree" && c.rtree == nil {
			t.Fatal("expected R-tree for dense polygon")
		}
		for _, p := range points {
			t.Run(tc.name+"/"+p.name, func(t *testing.T) {
				if got := c.Contains(p.pt); got != p.want {
					t.Errorf("Contains(%v) = %v, want %v", p.pt, got, p.want)
				}
			})
		}
	}
}

// densePath walks from a towards b in n equal steps, excluding b.
func densePath(a, b orb.Point, n int) []orb.Point {
	out := make([]orb.Point, n)
	for k := range out {
		t := float64(k) / float64(n)
		out[k] = orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
	}
	return out
}

func totalArea(g orb.Geometry) float64 {
	switch g := g.(type) {
	case orb.Polygon:
		return PolygonArea(g)
	case orb.MultiPolygon:
		a := 0.0
		for _, p := range g {
			a += PolygonArea(p)
		}
		return a
	}
	return 0
}

func TestMakeValidSelfCrossing(t *testing.T) {
	bowtie := orb.Ring{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}

	var dense orb.Ring
	dense = append(dense, densePath(orb.Point{0, 0}, orb.Point{1, 1}, 101)...)
	dense = append(dense, densePath(orb.Point{1, 1}, orb.Point{1, 0}, 101)...)
	dense = append(dense, densePath(orb.Point{1, 0}, orb.Point{0, 1}, 101)...)
	dense = append(dense, densePath(orb.Point{0, 1}, orb.Point{0, 0}, 101)...)
	dense = append(dense, orb.Point{0, 0})

	tests := []struct {
		name  string
		in    orb.Geometry
		parts int
		area  float64
	}{
		{"bowtie", orb.Polygon{bowtie}, 2, 0.5},
		{"bowtie ring", bowtie, 2, 0.5},
		{"dense bowtie", orb.Polygon{dense}, 2, 0.5},
		{"figure eight touching at a vertex",
			orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {2, 1}, {2, 2}, {1, 2}, {1, 1}, {0, 1}, {0, 0}}}, 2, 2},
		{"bowtie with hole in one lobe",
			orb.Polygon{{{0, 0}, {4, 4}, {4, 0}, {0, 4}, {0, 0}}, {{3, 1.5}, {3.5, 1.5}, {3.5, 2.5}, {3, 2.5}, {3, 1.5}}}, 2, 8 - 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MakeValid(tt.in)
			if got == nil {
				t.Fatal("MakeValid dropped a self-crossing polygon")
			}
			parts := Explode(got)
			if len(parts) != tt.parts {
				t.Fatalf("got %d parts, want %d", len(parts), tt.parts)
			}
			if a := totalArea(got); math.Abs(a-tt.area) > 1e-6 {
				t.Errorf("area = %v, want %v", a, tt.area)
			}
			for _, part := range parts {
				p := part.(orb.Polygon)
				if p[0].Orientation() != orb.CCW {
					t.Error("shell not counter-clockwise")
				}
				for _, h := range p[1:] {
					if h.Orientation() != orb.CW {
						t.Error("hole not clockwise")
					}
				}
				if _, crossed := splitRing(p[0]); crossed {
					t.Errorf("shell %v still crosses itself", p[0])
				}
			}
		})
	}
}

func TestMakeValidRemovesSpikes(t *testing.T) {
	p := orb.Polygon{{{0, 0}, {2, 0}, {2, 1}, {3, 1}, {2, 1}, {2, 2}, {0, 2}, {0, 0}}}
	got, ok := MakeValid(p).(orb.Polygon)
	if !ok {
		t.Fatalf("MakeValid = %T, want orb.Polygon", MakeValid(p))
	}
	for _, v := range got[0] {
		if v.Equal(orb.Point{3, 1}) {
			t.Errorf("spike vertex kept: %v", got[0])
		}
	}
	if a := PolygonArea(got); a != 4 {
		t.Errorf("area = %v, want 4", a)
	}
}
