// Package projection reprojects geometries between the coordinate reference
// systems the pipeline accepts: EPSG:4326, EPSG:3857 and EPSG:6933.
package projection

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	WGS84         = 4326
	WebMercator   = 3857
	EqualAreaEASE = 6933
)

// MetresPerDegree is the length of one degree of longitude at the equator
// on the WGS84 ellipsoid.
const MetresPerDegree = 111319.49079327357

// ErrUnsupportedCRS indicates an EPSG code without a transform.
type ErrUnsupportedCRS struct {
	EPSG int
}

func (e *ErrUnsupportedCRS) Error() string {
	return fmt.Sprintf("unsupported CRS: EPSG:%d (supported: 4326, 3857, 6933)", e.EPSG)
}

// Supported reports whether epsg can be transformed.
func Supported(epsg int) bool {
	switch epsg {
	case WGS84, WebMercator, EqualAreaEASE:
		return true
	}
	return false
}

// Metric reports whether epsg uses metres.
func Metric(epsg int) bool {
	return epsg == WebMercator || epsg == EqualAreaEASE
}

// Transform returns a copy of g reprojected from one EPSG code to another.
func Transform(g orb.Geometry, from, to int) (orb.Geometry, error) {
	if from == 0 {
		from = WGS84
	}
	if to == 0 {
		to = WGS84
	}
	if !Supported(from) {
		return nil, &ErrUnsupportedCRS{EPSG: from}
	}
	if !Supported(to) {
		return nil, &ErrUnsupportedCRS{EPSG: to}
	}
	if g == nil || from == to {
		return g, nil
	}

	out := orb.Clone(g)
	if from != WGS84 {
		out = project.Geometry(out, toWGS84(from))
	}
	if to != WGS84 {
		out = project.Geometry(out, fromWGS84(to))
	}
	return out, nil
}

func toWGS84(epsg int) orb.Projection {
	if epsg == WebMercator {
		return project.Mercator.ToWGS84
	}
	return easeToWGS84
}

func fromWGS84(epsg int) orb.Projection {
	if epsg == WebMercator {
		return project.WGS84.ToMercator
	}
	return wgs84ToEASE
}

// EASE-Grid 2.0 global: cylindrical equal-area on WGS84, true scale at 30°.
var easeK0 = func() float64 {
	s := math.Sin(30 * math.Pi / 180)
	return math.Cos(30*math.Pi/180) / math.Sqrt(1-E2*s*s)
}()

func wgs84ToEASE(p orb.Point) orb.Point {
	lon := p[0] * math.Pi / 180
	lat := p[1] * math.Pi / 180
	x := SemiMajor * easeK0 * lon
	y := SemiMajor * q(lat) / (2 * easeK0)
	return orb.Point{x, y}
}

func easeToWGS84(p orb.Point) orb.Point {
	lon := p[0] / (SemiMajor * easeK0)
	s := 2 * p[1] * easeK0 / (SemiMajor * qp)
	s = math.Max(-1, math.Min(1, s))
	lat := GeodeticLatitude(math.Asin(s))
	return orb.Point{lon * 180 / math.Pi, lat * 180 / math.Pi}
}
