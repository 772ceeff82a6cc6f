package geometry

import (
	"fmt"
)

// ErrInvalidCoordinate indicates a coordinate outside geographic bounds or
// not a finite number.
type ErrInvalidCoordinate struct {
	Lon, Lat float64
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate: lon=%f lat=%f (lon must be ±180, lat must be ±90)",
		e.Lon, e.Lat)
}

// ErrInvalidGeometry indicates a geometry that cannot be used for indexing.
type ErrInvalidGeometry struct {
	Type   string
	Reason string
}

func (e *ErrInvalidGeometry) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("invalid geometry (%s): %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}
