package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/beetlebugorg/vector2dggs/pkg/dggs"
)

func index(output string, opts dggs.Options) error {
	_, err := dggs.Index(context.Background(), dggs.NewGeoJSONReader("roads.geojson"), output, opts)

	var (
		cfgErr    *dggs.ErrConfig
		resErr    *dggs.ErrResolution
		existsErr *dggs.ErrOutputExists
		workerErr *dggs.ErrWorker
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &resErr):
		return fmt.Errorf("pick a resolution in [%d, %d]: %w", resErr.Min, resErr.Max, err)
	case errors.As(err, &cfgErr):
		return fmt.Errorf("fix option %s: %w", cfgErr.Field, err)
	case errors.As(err, &existsErr):
		log.Printf("%s already exists, rerun with Overwrite", existsErr.Path)
		return err
	case errors.Is(err, dggs.ErrNothingToWrite):
		log.Printf("no feature produced a cell")
		return nil
	case errors.As(err, &workerErr):
		return fmt.Errorf("chunk %d failed: %w", workerErr.Chunk, workerErr.Err)
	}
	return err
}

func main() {
	opts := dggs.DefaultOptions()
	opts.Scheme = dggs.H3
	opts.Resolution = 20 // out of range for H3

	if err := index("roads_h3", opts); err != nil {
		log.Printf("Expected error: %v", err)
	}

	opts.Resolution = 10
	if err := index("roads_h3", opts); err != nil {
		log.Fatal(err)
	}
}
