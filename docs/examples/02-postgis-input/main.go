package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/beetlebugorg/vector2dggs/pkg/dggs"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "postgres://postgres@localhost/gis?sslmode=disable"
	}

	// nil columns selects every attribute of the table
	r := dggs.NewPostGISReader(dsn, "public.land_parcels", "geom", nil)

	opts := dggs.DefaultOptions()
	opts.Scheme = dggs.S2
	opts.Resolution = 16
	opts.ParentResolution = 8
	opts.IDField = "parcel_id"
	opts.KeepAttributes = true
	opts.CutCRS = 6933 // bisect in metres
	opts.Progress = func(done, total int) {
		fmt.Printf("\rIndexed %d/%d chunks", done, total)
	}

	res, err := dggs.Index(context.Background(), r, "parcels_s2", opts)
	fmt.Println()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d rows in %d partitions (%s)\n", res.Rows, res.Partitions, res.Duration)
}
