package dggs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/beetlebugorg/vector2dggs/internal/feature"
	"github.com/beetlebugorg/vector2dggs/internal/metrics"
	"github.com/beetlebugorg/vector2dggs/internal/partition"
	"github.com/beetlebugorg/vector2dggs/internal/source"
)

// Feature is one input geometry with its attributes.
type Feature = feature.Feature

// Collection is the complete output of a Reader.
type Collection = feature.Collection

// Reader supplies input features. Implementations must return coordinates
// in the EPSG code they report on the Collection.
type Reader = source.Reader

// NewGeoJSONReader reads a GeoJSON FeatureCollection file.
func NewGeoJSONReader(path string) Reader {
	return &source.GeoJSON{Path: path}
}

// NewPostGISReader reads the table of a PostGIS database. columns limits
// the attributes selected: nil selects every column, an empty slice only
// the geometry.
func NewPostGISReader(dsn, table, geomColumn string, columns []string) Reader {
	return &source.PostGIS{DSN: dsn, Table: table, GeomColumn: geomColumn, Columns: columns}
}

// Result summarizes a completed run.
type Result struct {
	RunID            string
	Output           string
	Scheme           string
	Resolution       int
	ParentResolution int

	FeaturesRead int // features returned by the reader
	Pieces       int // single-part geometries indexed
	Dropped      int // pieces dropped as empty, unsupported or invalid
	Chunks       int
	Rows         int // rows written after de-duplication and compaction
	Partitions   int
	Duration     time.Duration
}

// Index reads every feature from r, indexes it at opts.Resolution and
// writes the rows to output, one partition per parent cell.
//
// Options are validated and the output path is checked before the reader
// is called. Intermediate stores live under opts.TempDir and are removed
// whether the run succeeds or not. A failed run never leaves a new output
// directory behind.
//
// Example:
//
//	opts := dggs.DefaultOptions()
//	opts.Scheme = dggs.H3
//	opts.Resolution = 9
//	opts.IDField = "parcel_id"
//	opts.Compact = true
//
//	res, err := dggs.Index(ctx, dggs.NewGeoJSONReader("parcels.geojson"), "parcels_h3", opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d rows in %d partitions\n", res.Rows, res.Partitions)
func Index(ctx context.Context, r Reader, output string, opts Options) (*Result, error) {
	start := time.Now()

	p, err := opts.plan()
	if err != nil {
		return nil, err
	}
	if output == "" {
		return nil, &ErrConfig{Field: "output", Reason: "path is empty"}
	}
	if _, err := os.Stat(output); err == nil {
		if !opts.Overwrite {
			return nil, &ErrOutputExists{Path: output}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat output: %w", err)
	}

	runID := uuid.NewString()
	log := p.log.With(
		"run", runID,
		"dggs", string(p.scheme),
		"resolution", p.res,
		"parent_resolution", p.parentRes,
	)
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.New(string(p.scheme))
	}

	log.Info("reading input", "stage", "read")
	c, err := r.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	prep, err := p.prepare(ctx, c, opts, rec, log)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:            runID,
		Output:           output,
		Scheme:           string(p.scheme),
		Resolution:       p.res,
		ParentResolution: p.parentRes,
		FeaturesRead:     prep.read,
		Pieces:           len(prep.features),
		Dropped:          prep.droppedTotal(),
	}
	if len(prep.features) == 0 {
		return nil, ErrNothingToWrite
	}

	work, err := os.MkdirTemp(opts.TempDir, "vector2dggs-")
	if err != nil {
		return nil, fmt.Errorf("create temporary directory: %w", err)
	}
	defer os.RemoveAll(work)

	chunkDir := filepath.Join(work, "chunks")
	indexedDir := filepath.Join(work, "indexed")
	for _, dir := range []string{chunkDir, indexedDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create temporary directory: %w", err)
		}
	}

	log.Info("spatially partitioning", "stage", "partition", "method", string(p.method), "pieces", len(prep.features))
	paths, err := p.writeChunks(ctx, chunkDir, prep)
	if err != nil {
		return nil, err
	}
	res.Chunks = len(paths)

	log.Info("indexing", "stage", "index", "chunks", len(paths), "workers", min(p.workers, len(paths)))
	if _, err := p.indexChunks(ctx, paths, prep.layout, indexedDir, opts.Progress, rec, log); err != nil {
		return nil, err
	}

	log.Info("writing partitions", "stage", "write", "output", output)
	ws, err := p.writePartitions(ctx, indexedDir, work, output, p.indexedSchema(prep.layout), opts, rec, log)
	if err != nil {
		return nil, err
	}
	res.Rows = ws.rows
	res.Partitions = ws.partitions
	res.Duration = time.Since(start)

	log.Info("done",
		"rows", res.Rows,
		"partitions", res.Partitions,
		"duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// writeChunks sorts and chunks the prepared features and writes every
// chunk to dir.
func (p *plan) writeChunks(ctx context.Context, dir string, prep *prepared) ([]string, error) {
	chunks, err := partition.Split(prep.features, p.method, p.chunkSize)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, err := partition.WriteChunk(dir, c, prep.layout, p.codec)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
