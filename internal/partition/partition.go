// Package partition orders features along a space-filling curve and cuts
// them into fixed-size chunks that can be indexed independently.
package partition

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/hilbert"
	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"

	"github.com/beetlebugorg/vector2dggs/internal/feature"
)

// Method is a spatial sort method.
type Method string

const (
	Hilbert Method = "hilbert"
	Morton  Method = "morton"
	Geohash Method = "geohash"
	None    Method = "none"
)

// curveOrder is the number of cells per axis of the curve grid.
const curveOrder = 1 << 16

// ErrUnknownMethod indicates an unsupported sort method name.
type ErrUnknownMethod struct {
	Name string
}

func (e *ErrUnknownMethod) Error() string {
	return fmt.Sprintf("unknown spatial sort %q (want one of hilbert, morton, geohash, none)", e.Name)
}

// ParseMethod resolves a sort method name.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case Hilbert, Morton, Geohash, None:
		return m, nil
	}
	return "", &ErrUnknownMethod{Name: name}
}

// Column names the sort key column written with each chunk, or "" for None.
func (m Method) Column() string {
	switch m {
	case Hilbert, Morton:
		return string(m) + "_distance"
	case Geohash:
		return string(m)
	}
	return ""
}

// Chunk is one independently processable slice of the sorted features.
type Chunk struct {
	Index    int
	Features []feature.Feature
	Keys     []uint64
}

// Split sorts features by m and cuts them every size rows. Features with
// equal keys keep their input order. An empty input yields no chunks.
func Split(features []feature.Feature, m Method, size int) ([]Chunk, error) {
	if _, err := ParseMethod(string(m)); err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, nil
	}
	size = max(size, 1)

	keys, err := Keys(features, m)
	if err != nil {
		return nil, err
	}
	order := make([]int, len(features))
	for i := range order {
		order[i] = i
	}
	if m != None {
		sort.SliceStable(order, func(a, b int) bool {
			return keys[order[a]] < keys[order[b]]
		})
	}

	chunks := make([]Chunk, 0, (len(features)+size-1)/size)
	for start := 0; start < len(order); start += size {
		end := min(start+size, len(order))
		c := Chunk{
			Index:    len(chunks),
			Features: make([]feature.Feature, 0, end-start),
			Keys:     make([]uint64, 0, end-start),
		}
		for _, i := range order[start:end] {
			c.Features = append(c.Features, features[i])
			c.Keys = append(c.Keys, keys[i])
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// Keys computes the sort key of every feature from the midpoint of its
// bounding box. Curve keys are relative to the bounds of the whole set;
// geohash keys are absolute and expect geographic coordinates. None keys
// are the input positions.
func Keys(features []feature.Feature, m Method) ([]uint64, error) {
	keys := make([]uint64, len(features))
	if m == None {
		for i := range keys {
			keys[i] = uint64(i)
		}
		return keys, nil
	}

	mids := make([]orb.Point, len(features))
	var (
		total orb.Bound
		seen  bool
	)
	for i, f := range features {
		if f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		mids[i] = b.Center()
		if !seen {
			total, seen = b, true
		} else {
			total = total.Union(b)
		}
	}

	switch m {
	case Geohash:
		for i, p := range mids {
			keys[i] = geohash.EncodeInt(clampLat(p[1]), clampLng(p[0]))
		}
		return keys, nil
	case Hilbert:
		h, err := hilbert.NewHilbert(curveOrder)
		if err != nil {
			return nil, fmt.Errorf("hilbert curve: %w", err)
		}
		for i, p := range mids {
			x, y := gridXY(total, p)
			d, err := h.MapInverse(x, y)
			if err != nil {
				return nil, fmt.Errorf("hilbert distance: %w", err)
			}
			keys[i] = uint64(d)
		}
		return keys, nil
	case Morton:
		for i, p := range mids {
			x, y := gridXY(total, p)
			keys[i] = interleave(uint32(x), uint32(y))
		}
		return keys, nil
	}
	return nil, &ErrUnknownMethod{Name: string(m)}
}

// gridXY scales p within total onto the curve grid.
func gridXY(total orb.Bound, p orb.Point) (int, int) {
	scale := func(v, lo, hi float64) int {
		if hi <= lo {
			return 0
		}
		i := int(math.Floor((v - lo) / (hi - lo) * (curveOrder - 1)))
		return min(max(i, 0), curveOrder-1)
	}
	return scale(p[0], total.Min[0], total.Max[0]), scale(p[1], total.Min[1], total.Max[1])
}

// interleave spreads the bits of x and y into a Z-order key, x in the even
// positions.
func interleave(x, y uint32) uint64 {
	return spread(x) | spread(y)<<1
}

func spread(v uint32) uint64 {
	x := uint64(v)
	x = (x | x<<16) & 0x0000ffff0000ffff
	x = (x | x<<8) & 0x00ff00ff00ff00ff
	x = (x | x<<4) & 0x0f0f0f0f0f0f0f0f
	x = (x | x<<2) & 0x3333333333333333
	x = (x | x<<1) & 0x5555555555555555
	return x
}

func clampLat(v float64) float64 { return math.Min(math.Max(v, -90), 90) }
func clampLng(v float64) float64 { return math.Min(math.Max(v, -180), 180) }
