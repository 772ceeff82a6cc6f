package main

import (
	"context"
	"fmt"
	"log"

	"github.com/beetlebugorg/vector2dggs/pkg/dggs"
)

func main() {
	opts := dggs.DefaultOptions()
	opts.Scheme = dggs.H3
	opts.Resolution = 9

	// Index every feature in the file into H3 resolution 9 cells
	res, err := dggs.Index(context.Background(), dggs.NewGeoJSONReader("buildings.geojson"), "buildings_h3", opts)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Features: %d\n", res.FeaturesRead)
	fmt.Printf("Rows: %d\n", res.Rows)
	fmt.Printf("Partitions: %d (parent resolution %d)\n", res.Partitions, res.ParentResolution)
	fmt.Printf("Output: %s\n", res.Output)
}
