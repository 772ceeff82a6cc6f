package projection

import (
	"math"
)

// WGS84 ellipsoid.
const (
	SemiMajor  = 6378137.0
	Flattening = 1 / 298.257223563
)

var (
	// E2 is the squared first eccentricity.
	E2 = Flattening * (2 - Flattening)
	e  = math.Sqrt(E2)

	qp = q(math.Pi / 2)

	// AuthalicRadius is the radius of the sphere with the ellipsoid's area.
	AuthalicRadius = SemiMajor * math.Sqrt(qp/2)
)

func q(phi float64) float64 {
	s := math.Sin(phi)
	return (1 - E2) * (s/(1-E2*s*s) - (1/(2*e))*math.Log((1-e*s)/(1+e*s)))
}

// AuthalicLatitude maps geodetic latitude (radians) to authalic latitude.
func AuthalicLatitude(phi float64) float64 {
	r := q(phi) / qp
	return math.Asin(math.Max(-1, math.Min(1, r)))
}

// GeodeticLatitude inverts AuthalicLatitude: series start, then Newton
// steps on q.
func GeodeticLatitude(beta float64) float64 {
	e4 := E2 * E2
	e6 := e4 * E2
	phi := beta +
		(E2/3+31*e4/180+517*e6/5040)*math.Sin(2*beta) +
		(23*e4/360+251*e6/3780)*math.Sin(4*beta) +
		(761*e6/45360)*math.Sin(6*beta)

	target := qp * math.Sin(beta)
	for i := 0; i < 3; i++ {
		c := math.Cos(phi)
		if math.Abs(c) < 1e-12 {
			break
		}
		s := math.Sin(phi)
		d := 1 - E2*s*s
		phi += d * d / (2 * c) * (target/(1-E2) - s/d + (1/(2*e))*math.Log((1-e*s)/(1+e*s)))
	}
	return phi
}
