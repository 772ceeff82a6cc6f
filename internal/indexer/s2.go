package indexer

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// s2EarthRadius is the radius the S2 metrics are scaled by, in metres.
const s2EarthRadius = 6371010.0

// coverMargin pads the region coverer cell budget.
const coverMargin = 1.02

type s2Grid struct{}

func (s2Grid) scheme() Scheme { return S2 }

func s2Point(p orb.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p[1], p[0]))
}

func (s2Grid) point(pt orb.Point, level int) string {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(pt[1], pt[0])).Parent(level).ToToken()
}

// coverBudget sizes MaxCells from the area of the geometry's bounding box
// so the covering is never truncated.
func coverBudget(b orb.Bound, level int) int {
	area := geo.Area(b.ToPolygon())
	n := math.Ceil(math.Max(1, area/s2MaxArea(level)))
	return int(math.Ceil(n * coverMargin))
}

func s2MaxArea(level int) float64 {
	return s2.MaxAreaMetric.Value(level) * s2EarthRadius * s2EarthRadius
}

func coverer(b orb.Bound, level int) *s2.RegionCoverer {
	return &s2.RegionCoverer{
		MinLevel: level,
		MaxLevel: level,
		LevelMod: 1,
		MaxCells: coverBudget(b, level),
	}
}

// s2Loop builds a normalized loop from r, dropping repeated vertices and
// the closing vertex. Loops that fail validation or still cover more than
// a hemisphere are rejected.
func s2Loop(r orb.Ring) *s2.Loop {
	pts := make([]s2.Point, 0, len(r))
	for _, p := range r {
		sp := s2Point(p)
		if len(pts) > 0 && pts[len(pts)-1] == sp {
			continue
		}
		pts = append(pts, sp)
	}
	for len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil
	}
	l := s2.LoopFromPoints(pts)
	l.Normalize()
	if l.Validate() != nil || l.Area() > 2*math.Pi {
		return nil
	}
	return l
}

// polygon covers the polygon with cells that intersect it, then keeps
// only cells whose center is contained. Loops are all normalized and
// nesting decides which are holes.
func (s2Grid) polygon(p orb.Polygon, level int) []string {
	var loops []*s2.Loop
	for i, r := range p {
		l := s2Loop(r)
		if l == nil {
			if i == 0 {
				return nil
			}
			continue
		}
		loops = append(loops, l)
	}
	poly := s2.PolygonFromLoops(loops)

	var out []string
	for _, id := range coverer(p.Bound(), level).Covering(poly) {
		if poly.ContainsPoint(s2.CellFromCellID(id).Center()) {
			out = append(out, id.ToToken())
		}
	}
	return out
}

// line returns the cells covering the polyline, ordered by where their
// centers project onto it.
func (s2Grid) line(ls orb.LineString, level int) []string {
	lls := make([]s2.LatLng, len(ls))
	for i, p := range ls {
		lls[i] = s2.LatLngFromDegrees(p[1], p[0])
	}
	pl := s2.PolylineFromLatLngs(lls)

	type ordered struct {
		id   s2.CellID
		next int
		dist float64
	}
	var cells []ordered
	for _, id := range coverer(ls.Bound(), level).Covering(pl) {
		proj, next := pl.Project(s2.CellFromCellID(id).Center())
		prev := max(next-1, 0)
		cells = append(cells, ordered{
			id:   id,
			next: next,
			dist: float64((*pl)[prev].Distance(proj)),
		})
	}
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].next != cells[j].next {
			return cells[i].next < cells[j].next
		}
		return cells[i].dist < cells[j].dist
	})

	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.id.ToToken()
	}
	return out
}

func (s2Grid) parent(cell string, level int) (string, bool) {
	id := s2.CellIDFromToken(cell)
	if !id.IsValid() || level < 0 || level > id.Level() {
		return "", false
	}
	return id.Parent(level).ToToken(), true
}

func (s2Grid) compact(cells []string, minLevel int) []string {
	cu := make(s2.CellUnion, 0, len(cells))
	for _, tok := range cells {
		if id := s2.CellIDFromToken(tok); id.IsValid() {
			cu = append(cu, id)
		}
	}
	cu.Normalize()
	cu.Denormalize(minLevel, 1)

	out := make([]string, len(cu))
	for i, id := range cu {
		out[i] = id.ToToken()
	}
	return out
}

// centerChild uses the first child: S2 cells have no central child.
func (s2Grid) centerChild(cell string, level int) string {
	id := s2.CellIDFromToken(cell)
	if !id.IsValid() || level <= id.Level() {
		return cell
	}
	return id.ChildBeginAtLevel(level).ToToken()
}

func (s2Grid) maxArea(level int) float64 {
	return s2MaxArea(level)
}
