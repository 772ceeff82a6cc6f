package indexer

import (
	"math"
	"sort"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"

	"github.com/beetlebugorg/vector2dggs/internal/geometry"
	"github.com/beetlebugorg/vector2dggs/internal/projection"
)

const metresPerDegree = projection.MetresPerDegree

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

type geohashGrid struct{}

func (geohashGrid) scheme() Scheme { return Geohash }

// geohashSize returns the width and height in degrees of a cell of the
// given precision.
func geohashSize(precision int) (w, h float64) {
	bits := 5 * precision
	lngBits := (bits + 1) / 2
	latBits := bits / 2
	return 360 / math.Pow(2, float64(lngBits)), 180 / math.Pow(2, float64(latBits))
}

func (geohashGrid) point(pt orb.Point, precision int) string {
	return geohash.EncodeWithPrecision(pt[1], pt[0], uint(precision))
}

// polygon enumerates every cell overlapping the polygon's bounding box and
// keeps those whose center is inside. Cells the boundary merely crosses are
// excluded when their center falls outside, as are centers inside holes.
func (g geohashGrid) polygon(p orb.Polygon, precision int) []string {
	w, h := geohashSize(precision)
	c := geometry.NewContainment(p)

	var out []string
	gridCenters(p.Bound(), w, h, func(center orb.Point) {
		if c.Contains(center) {
			out = append(out, g.point(center, precision))
		}
	})
	return out
}

func (g geohashGrid) line(ls orb.LineString, precision int) []string {
	w, h := geohashSize(precision)
	return traceLine(ls, math.Min(w, h)/4, func(p orb.Point) string { return g.point(p, precision) })
}

func validGeohash(cell string) bool {
	return cell != "" && len(cell) <= 12 && geohash.Validate(cell) == nil
}

func (geohashGrid) parent(cell string, precision int) (string, bool) {
	if !validGeohash(cell) || precision < 1 || precision > len(cell) {
		return "", false
	}
	return cell[:precision], true
}

// compact merges complete groups of 32 children into their prefix.
func (geohashGrid) compact(cells []string, minPrecision int) []string {
	set := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		if validGeohash(c) {
			set[c] = struct{}{}
		}
	}

	for {
		counts := make(map[string]int)
		for c := range set {
			if len(c) > minPrecision && len(c) > 1 {
				counts[c[:len(c)-1]]++
			}
		}
		merged := false
		for p, n := range counts {
			if n != len(base32) {
				continue
			}
			for i := 0; i < len(base32); i++ {
				delete(set, p+base32[i:i+1])
			}
			set[p] = struct{}{}
			merged = true
		}
		if !merged {
			break
		}
	}

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// centerChild encodes the parent's center at the finer precision.
func (g geohashGrid) centerChild(cell string, precision int) string {
	if precision <= len(cell) {
		return cell
	}
	lat, lng := geohash.DecodeCenter(cell)
	return geohash.EncodeWithPrecision(lat, lng, uint(precision))
}

func (geohashGrid) maxArea(precision int) float64 {
	w, h := geohashSize(precision)
	return w * h * metresPerDegree * metresPerDegree
}
