// Package rhealpix implements the rHEALPix discrete global grid on the WGS84
// authalic sphere with 3x3 subdivision, the north and south polar squares
// both placed above and below the first equatorial square.
//
// Planar coordinates are on the unit sphere: x in [-π, π), the equatorial
// band spans y in [-π/4, π/4] and the polar squares extend to ±3π/4.
package rhealpix

import (
	"math"

	"github.com/beetlebugorg/vector2dggs/internal/projection"
)

const (
	northSquare = 0
	southSquare = 0
)

var phi0 = math.Asin(2.0 / 3.0)

// Project maps lon/lat degrees to rHEALPix planar coordinates.
func Project(lon, lat float64) (x, y float64) {
	lam := lon * math.Pi / 180
	for lam >= math.Pi {
		lam -= 2 * math.Pi
	}
	for lam < -math.Pi {
		lam += 2 * math.Pi
	}
	beta := projection.AuthalicLatitude(lat * math.Pi / 180)
	return combine(healpix(lam, beta))
}

// Unproject maps planar coordinates back to lon/lat degrees.
func Unproject(x, y float64) (lon, lat float64) {
	lam, beta := healpixInverse(uncombine(x, y))
	lon = lam * 180 / math.Pi
	if lon >= 180 {
		lon -= 360
	}
	if lon < -180 {
		lon += 360
	}
	return lon, projection.GeodeticLatitude(beta) * 180 / math.Pi
}

// triangle returns the polar triangle index (0-3) holding x.
func triangle(x float64) int {
	c := int(math.Floor((x + math.Pi) / (math.Pi / 2)))
	if c < 0 {
		return 0
	}
	if c > 3 {
		return 3
	}
	return c
}

func triangleCenter(c int) float64 {
	return -3*math.Pi/4 + float64(c)*math.Pi/2
}

func healpix(lam, beta float64) (x, y float64) {
	if math.Abs(beta) <= phi0 {
		return lam, 3 * math.Pi / 8 * math.Sin(beta)
	}
	sigma := math.Sqrt(3 * (1 - math.Abs(math.Sin(beta))))
	xc := triangleCenter(triangle(lam))
	return xc + (lam-xc)*sigma, math.Copysign(math.Pi/4*(2-sigma), beta)
}

func healpixInverse(x, y float64) (lam, beta float64) {
	if math.Abs(y) <= math.Pi/4 {
		return x, math.Asin(clamp(8 * y / (3 * math.Pi)))
	}
	if math.Abs(y) >= math.Pi/2 {
		return -math.Pi, math.Copysign(math.Pi/2, y)
	}
	xc := triangleCenter(triangle(x))
	tau := 2 - 4*math.Abs(y)/math.Pi
	return xc + (x-xc)/tau, math.Copysign(math.Asin(clamp(1-tau*tau/3)), y)
}

func ccw(dx, dy float64) (float64, float64) { return -dy, dx }
func cw(dx, dy float64) (float64, float64)  { return dy, -dx }

// combine moves the polar HEALPix triangles into a single square per pole.
// North triangles are turned anticlockwise about their apex, south ones
// clockwise.
func combine(x, y float64) (float64, float64) {
	switch {
	case y > math.Pi/4:
		c := triangle(x)
		dx, dy := x-triangleCenter(c), y-math.Pi/2
		for k := (c - northSquare + 4) % 4; k > 0; k-- {
			dx, dy = ccw(dx, dy)
		}
		return triangleCenter(northSquare) + dx, math.Pi/2 + dy
	case y < -math.Pi/4:
		c := triangle(x)
		dx, dy := x-triangleCenter(c), y+math.Pi/2
		for k := (c - southSquare + 4) % 4; k > 0; k-- {
			dx, dy = cw(dx, dy)
		}
		return triangleCenter(southSquare) + dx, -math.Pi/2 + dy
	}
	return x, y
}

func uncombine(x, y float64) (float64, float64) {
	switch {
	case y > math.Pi/4:
		dx, dy := x-triangleCenter(northSquare), y-math.Pi/2
		var k int
		switch {
		case dy <= -math.Abs(dx):
			k = 0
		case dx >= math.Abs(dy):
			k = 1
		case dy >= math.Abs(dx):
			k = 2
		default:
			k = 3
		}
		for i := 0; i < k; i++ {
			dx, dy = cw(dx, dy)
		}
		return triangleCenter((northSquare+k)%4) + dx, math.Pi/2 + dy
	case y < -math.Pi/4:
		dx, dy := x-triangleCenter(southSquare), y+math.Pi/2
		var k int
		switch {
		case dy >= math.Abs(dx):
			k = 0
		case dx >= math.Abs(dy):
			k = 1
		case dy <= -math.Abs(dx):
			k = 2
		default:
			k = 3
		}
		for i := 0; i < k; i++ {
			dx, dy = ccw(dx, dy)
		}
		return triangleCenter((southSquare+k)%4) + dx, -math.Pi/2 + dy
	}
	return x, y
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
