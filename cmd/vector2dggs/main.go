// Command vector2dggs indexes vector features into a discrete global grid
// and writes the result as parquet partitions grouped by parent cell.
//
// Usage:
//
//	vector2dggs [flags] <h3|s2|rhp|geohash> <input> <output>
//
// The input is a GeoJSON file or a postgres:// DSN together with -layer.
// A JSON job file given with -config supplies defaults that explicitly set
// flags and positional arguments override.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/beetlebugorg/vector2dggs/internal/config"
	"github.com/beetlebugorg/vector2dggs/internal/logger"
	"github.com/beetlebugorg/vector2dggs/pkg/dggs"
)

func main() {
	_ = godotenv.Load(".env")
	log := logger.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error("indexing failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, log *slog.Logger) error {
	job, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	opts, err := jobOptions(job)
	if err != nil {
		return err
	}
	opts.Logger = log
	opts.Progress = func(done, total int) {
		log.Debug("progress", "chunks", done, "total", total)
	}
	if job.MetricsFile != "" {
		opts.Metrics = dggs.NewMetrics(opts.Scheme)
	}

	res, err := dggs.Index(ctx, reader(job), job.Output, opts)
	if opts.Metrics != nil {
		// Written on failure too so a scrape sees partial counters.
		if werr := opts.Metrics.WriteTextfile(job.MetricsFile); werr != nil {
			log.Warn("writing metrics file", "path", job.MetricsFile, "err", werr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s: %d features, %d rows in %d partitions (%s)\n",
		res.Output, res.FeaturesRead, res.Rows, res.Partitions, res.Duration.Round(time.Millisecond))
	return nil
}

// parseArgs merges the optional job file, flags, and positional arguments
// into one job. Flags win over the job file only when set explicitly.
func parseArgs(args []string, stderr io.Writer) (*config.Job, error) {
	fs := flag.NewFlagSet("vector2dggs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: vector2dggs [flags] <h3|s2|rhp|geohash> <input> <output>")
		fs.PrintDefaults()
	}

	var (
		configPath  = fs.String("config", "", "JSON job file")
		resolution  = fs.Int("r", -1, "target resolution")
		parentRes   = fs.Int("parent-res", -1, "partition (parent) resolution; -1 picks a default")
		idField     = fs.String("id-field", "", "attribute holding the feature id")
		keepAttrs   = fs.Bool("keep-attributes", false, "carry input attributes into the output")
		chunkSize   = fs.Int("chunksize", 50, "features per indexing chunk")
		sorting     = fs.String("spatial-sorting", "hilbert", "chunk ordering: hilbert, morton, geohash or none")
		cut         = fs.Float64("cut-threshold", -1, "bisection threshold in cut CRS units; -1 derives it, 0 disables")
		cutCRS      = fs.Int("cut-crs", 0, "EPSG code used for bisection; 0 keeps the input CRS")
		threads     = fs.Int("threads", envInt("V2D_WORKERS", max(runtime.NumCPU()-1, 1)), "worker count")
		compression = fs.String("compression", envString("V2D_COMPRESSION", "zstd"), "parquet codec")
		overwrite   = fs.Bool("overwrite", false, "replace an existing output directory")
		compact     = fs.Bool("compact", false, "compact cells per feature (requires -id-field)")
		tempDir     = fs.String("tempdir", envString("V2D_TEMPDIR", os.TempDir()), "directory for intermediate files")
		table       = fs.String("layer", "", "PostGIS table (schema.table) for postgres:// input")
		geomCol     = fs.String("geom-col", "geom", "PostGIS geometry column")
		metricsFile = fs.String("metrics-file", "", "write Prometheus text metrics to this file")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	job := &config.Job{
		GeomColumn:     "geom",
		ChunkSize:      50,
		SpatialSorting: "hilbert",
		Compression:    *compression,
	}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		job = loaded
	}

	// Env-backed defaults apply whenever the job file leaves them unset.
	if job.Threads == 0 {
		job.Threads = *threads
	}
	if job.TempDir == "" {
		job.TempDir = *tempDir
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "r":
			job.Resolution = resolution
		case "parent-res":
			job.ParentResolution = parentRes
		case "id-field":
			job.IDField = *idField
		case "keep-attributes":
			job.KeepAttributes = *keepAttrs
		case "chunksize":
			job.ChunkSize = *chunkSize
		case "spatial-sorting":
			job.SpatialSorting = *sorting
		case "cut-threshold":
			job.CutThreshold = cut
		case "cut-crs":
			job.CutCRS = *cutCRS
		case "threads":
			job.Threads = *threads
		case "compression":
			job.Compression = *compression
		case "overwrite":
			job.Overwrite = *overwrite
		case "compact":
			job.Compact = *compact
		case "tempdir":
			job.TempDir = *tempDir
		case "layer":
			job.Table = *table
		case "geom-col":
			job.GeomColumn = *geomCol
		case "metrics-file":
			job.MetricsFile = *metricsFile
		}
	})

	rest := fs.Args()
	switch {
	case len(rest) == 3:
		job.DGGS, job.Input, job.Output = rest[0], rest[1], rest[2]
	case len(rest) == 0 && *configPath != "":
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected <dggs> <input> <output>, got %d arguments", len(rest))
	}

	if job.DGGS == "" || job.Input == "" || job.Output == "" {
		return nil, fmt.Errorf("dggs, input and output are required")
	}
	if job.Resolution == nil {
		return nil, fmt.Errorf("resolution is required (-r)")
	}
	if isPostgres(job.Input) && job.Table == "" {
		return nil, fmt.Errorf("postgres input requires -layer")
	}
	return job, nil
}

// jobOptions converts a job into pipeline options.
func jobOptions(job *config.Job) (dggs.Options, error) {
	opts := dggs.DefaultOptions()
	opts.Scheme = strings.ToLower(job.DGGS)
	if job.Resolution == nil {
		return opts, &dggs.ErrConfig{Field: "Resolution", Reason: "required"}
	}
	opts.Resolution = *job.Resolution
	if job.ParentResolution != nil {
		opts.ParentResolution = *job.ParentResolution
	}
	opts.IDField = job.IDField
	opts.KeepAttributes = job.KeepAttributes
	if job.ChunkSize > 0 {
		opts.ChunkSize = job.ChunkSize
	}
	if job.SpatialSorting != "" {
		opts.SpatialSort = job.SpatialSorting
	}
	if job.CutThreshold != nil {
		opts.CutThreshold = *job.CutThreshold
	}
	opts.CutCRS = job.CutCRS
	if job.Threads > 0 {
		opts.Workers = job.Threads
	}
	if job.Compression != "" {
		opts.Compression = job.Compression
	}
	opts.Overwrite = job.Overwrite
	opts.Compact = job.Compact
	opts.TempDir = job.TempDir
	return opts, opts.Validate()
}

// reader picks a feature source for the job input. PostGIS reads only the
// columns the output needs.
func reader(job *config.Job) dggs.Reader {
	if !isPostgres(job.Input) {
		return dggs.NewGeoJSONReader(job.Input)
	}
	var columns []string
	switch {
	case job.KeepAttributes:
		columns = nil
	case job.IDField != "":
		columns = []string{job.IDField}
	default:
		columns = []string{}
	}
	return dggs.NewPostGISReader(job.Input, job.Table, job.GeomColumn, columns)
}

func isPostgres(input string) bool {
	return strings.HasPrefix(input, "postgres://") || strings.HasPrefix(input, "postgresql://")
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 {
		return n
	}
	return def
}
