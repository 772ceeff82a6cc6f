package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/beetlebugorg/vector2dggs/pkg/dggs"
)

func main() {
	metrics := dggs.NewMetrics(dggs.RHEALPix)

	opts := dggs.DefaultOptions()
	opts.Scheme = dggs.RHEALPix
	opts.Resolution = 10
	opts.IDField = "region_id" // compaction merges cells per feature
	opts.Compact = true
	opts.Overwrite = true
	opts.Metrics = metrics

	res, err := dggs.Index(context.Background(), dggs.NewGeoJSONReader("regions.geojson"), "regions_rhp", opts)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Compacted output: %d rows in %d partitions\n", res.Rows, res.Partitions)

	// Counters in Prometheus text format, e.g. for node_exporter's textfile collector
	if err := metrics.WriteTextfile("vector2dggs.prom"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
