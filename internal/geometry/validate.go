package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ValidateCoordinate checks that a lon/lat pair is finite and within
// geographic bounds.
func ValidateCoordinate(lon, lat float64) error {
	if !finite(lon) || !finite(lat) {
		return &ErrInvalidCoordinate{Lon: lon, Lat: lat}
	}
	if lat < -90.0 || lat > 90.0 {
		return &ErrInvalidCoordinate{Lon: lon, Lat: lat}
	}
	if lon < -180.0 || lon > 180.0 {
		return &ErrInvalidCoordinate{Lon: lon, Lat: lat}
	}
	return nil
}

// ValidateGeographic checks every vertex of a single-part geometry in
// EPSG:4326 and the minimum vertex count for its type.
func ValidateGeographic(g orb.Geometry) error {
	if g == nil {
		return &ErrInvalidGeometry{Reason: "geometry is nil"}
	}

	check := func(pts []orb.Point) error {
		for i, p := range pts {
			if err := ValidateCoordinate(p[0], p[1]); err != nil {
				return &ErrInvalidGeometry{
					Type:   g.GeoJSONType(),
					Reason: fmt.Sprintf("coordinate %d invalid: %v", i, err),
				}
			}
		}
		return nil
	}

	switch g := g.(type) {
	case orb.Point:
		return check([]orb.Point{g})
	case orb.LineString:
		if len(g) < 2 {
			return &ErrInvalidGeometry{Type: "LineString", Reason: "fewer than 2 points"}
		}
		return check(g)
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) < 4 {
			return &ErrInvalidGeometry{Type: "Polygon", Reason: "outer ring has fewer than 4 points"}
		}
		for _, r := range g {
			if err := check(r); err != nil {
				return err
			}
		}
		return nil
	}
	return &ErrInvalidGeometry{Type: g.GeoJSONType(), Reason: "not a single-part point, line or polygon"}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finitePoint(p orb.Point) bool {
	return finite(p[0]) && finite(p[1])
}
