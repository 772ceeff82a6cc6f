// Package source reads vector features for the indexing pipeline.
package source

import (
	"context"
	"math"

	"github.com/beetlebugorg/vector2dggs/internal/feature"
)

// Reader produces the complete feature collection of one input.
type Reader interface {
	Read(ctx context.Context) (*feature.Collection, error)
}

// integralColumns converts float64 attributes to int64 for columns whose
// values are all whole numbers. JSON numbers decode as floats.
func integralColumns(c *feature.Collection) {
	for _, col := range c.AttributeColumns() {
		whole, found := true, false
		for _, f := range c.Features {
			v, ok := f.Properties[col]
			if !ok || v == nil {
				continue
			}
			x, isFloat := v.(float64)
			if !isFloat || x != math.Trunc(x) || math.Abs(x) > 1<<53 {
				whole = false
				break
			}
			found = true
		}
		if !whole || !found {
			continue
		}
		for _, f := range c.Features {
			if x, ok := f.Properties[col].(float64); ok {
				f.Properties[col] = int64(x)
			}
		}
	}
}
