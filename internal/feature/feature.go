// Package feature holds the in-memory representation of vector features as
// they move through the indexing pipeline.
package feature

import (
	"sort"

	"github.com/paulmach/orb"
)

// Feature is one geometry with its identifier and retained attributes.
//
// ID is either the value of the configured identifier attribute or a
// synthesized dense integer (int64).
type Feature struct {
	ID         any
	Geometry   orb.Geometry
	Properties map[string]any
}

// Collection is what a reader hands to the pipeline.
type Collection struct {
	Features []Feature

	// EPSG code of the coordinates in Features. Zero means EPSG:4326.
	EPSG int

	// Columns lists attribute names in the order the source reported them.
	// When empty, the sorted union of all property keys is used.
	Columns []string
}

// AttributeColumns returns the attribute names of the collection in a stable
// order.
func (c *Collection) AttributeColumns() []string {
	if len(c.Columns) > 0 {
		return c.Columns
	}
	seen := make(map[string]struct{})
	for _, f := range c.Features {
		for k := range f.Properties {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// CRS returns the EPSG code, defaulting to 4326.
func (c *Collection) CRS() int {
	if c.EPSG == 0 {
		return 4326
	}
	return c.EPSG
}
