package main

import (
	"context"
	"fmt"
	"log"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/vector2dggs/pkg/dggs"
)

// gridReader produces a small grid of square plots in memory.
type gridReader struct {
	rows, cols int
	size       float64
}

func (g gridReader) Read(ctx context.Context) (*dggs.Collection, error) {
	var features []dggs.Feature
	for i := 0; i < g.rows; i++ {
		for j := 0; j < g.cols; j++ {
			x, y := float64(j)*g.size, float64(i)*g.size
			ring := orb.Ring{{x, y}, {x + g.size, y}, {x + g.size, y + g.size}, {x, y + g.size}, {x, y}}
			features = append(features, dggs.Feature{
				Geometry:   orb.Polygon{ring},
				Properties: map[string]any{"plot": fmt.Sprintf("%d-%d", i, j)},
			})
		}
	}
	return &dggs.Collection{Features: features, EPSG: 4326}, nil
}

func main() {
	opts := dggs.DefaultOptions()
	opts.Scheme = dggs.Geohash
	opts.Resolution = 6
	opts.IDField = "plot"

	res, err := dggs.Index(context.Background(), gridReader{rows: 4, cols: 4, size: 0.05}, "plots_geohash", opts)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d plots -> %d rows\n", res.FeaturesRead, res.Rows)
}
