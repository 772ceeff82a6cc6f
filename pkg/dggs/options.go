package dggs

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/beetlebugorg/vector2dggs/internal/indexer"
	"github.com/beetlebugorg/vector2dggs/internal/logger"
	"github.com/beetlebugorg/vector2dggs/internal/metrics"
	"github.com/beetlebugorg/vector2dggs/internal/partition"
	"github.com/beetlebugorg/vector2dggs/internal/projection"
	"github.com/beetlebugorg/vector2dggs/internal/store"
)

// Scheme names accepted in Options.Scheme.
const (
	H3       = string(indexer.H3)
	S2       = string(indexer.S2)
	RHEALPix = string(indexer.RHEALPix)
	Geohash  = string(indexer.Geohash)
)

// Metrics records the counters of a run. Create one with NewMetrics.
type Metrics = metrics.Recorder

// NewMetrics returns an empty recorder labelled with scheme.
func NewMetrics(scheme string) *Metrics {
	return metrics.New(scheme)
}

// Options configures one indexing run.
type Options struct {
	// Scheme is one of "h3", "s2", "rhp" (or "rhealpix") and "geohash".
	Scheme string

	// Resolution is the target resolution of the cell column.
	Resolution int

	// ParentResolution is the resolution of the partition key. It must be
	// strictly less than Resolution. -1 selects max(scheme minimum,
	// Resolution-6).
	ParentResolution int

	// IDField names the attribute used as the feature identifier. When
	// empty a dense integer column "fid" is synthesized.
	IDField string

	// KeepAttributes retains every input attribute in the output.
	KeepAttributes bool

	// ChunkSize is the number of geometries per indexing chunk.
	ChunkSize int

	// SpatialSort is one of "hilbert", "morton", "geohash" and "none".
	SpatialSort string

	// CutThreshold bounds the size of any geometry handed to the indexer,
	// in square units of the cutting CRS. -1 derives it from the largest
	// cell at the parent resolution; 0 disables bisection.
	CutThreshold float64

	// CutCRS is the EPSG code geometries are bisected in. 0 uses the input
	// CRS.
	CutCRS int

	// Workers is the size of the indexing pool. 0 uses runtime.NumCPU().
	Workers int

	// Compression is the parquet codec for every file written.
	Compression string

	// Overwrite replaces an existing output directory.
	Overwrite bool

	// Compact merges complete sibling groups per feature. Requires IDField.
	Compact bool

	// TempDir is where intermediate stores are created. Empty uses the
	// system default.
	TempDir string

	// Logger overrides the process logger.
	Logger *slog.Logger

	// Progress is called after each chunk is indexed with (done, total).
	Progress func(done, total int)

	// Metrics receives the run counters. Optional.
	Metrics *Metrics
}

// DefaultOptions returns options with the defaults of the command-line
// tool. Scheme and Resolution must still be set.
func DefaultOptions() Options {
	return Options{
		ParentResolution: -1,
		ChunkSize:        50,
		SpatialSort:      string(partition.Hilbert),
		CutThreshold:     -1,
		Workers:          max(runtime.NumCPU()-1, 1),
		Compression:      "zstd",
	}
}

// plan is the validated, resolved form of Options.
type plan struct {
	ix        indexer.Indexer
	scheme    indexer.Scheme
	res       int
	parentRes int
	method    partition.Method
	chunkSize int
	codec     store.Codec
	workers   int
	threshold float64 // <0 derived, 0 off
	log       *slog.Logger
}

func (p *plan) cellColumn() string   { return p.scheme.Column(p.res) }
func (p *plan) parentColumn() string { return p.scheme.Column(p.parentRes) }

// Validate checks the options without touching the filesystem.
func (o Options) Validate() error {
	_, err := o.plan()
	return err
}

func (o Options) plan() (*plan, error) {
	scheme, err := indexer.ParseScheme(o.Scheme)
	if err != nil {
		return nil, &ErrConfig{Field: "Scheme", Reason: err.Error()}
	}
	ix, err := indexer.New(scheme)
	if err != nil {
		return nil, &ErrConfig{Field: "Scheme", Reason: err.Error()}
	}

	r := scheme.Range()
	if o.Resolution < r.Min || o.Resolution > r.Max {
		return nil, &ErrResolution{Scheme: string(scheme), Field: "Resolution", Resolution: o.Resolution, Min: r.Min, Max: r.Max}
	}

	parentRes := o.ParentResolution
	switch {
	case parentRes == -1:
		parentRes = scheme.DefaultParent(o.Resolution)
		if parentRes >= o.Resolution {
			return nil, &ErrConfig{
				Field:  "ParentResolution",
				Reason: fmt.Sprintf("no resolution coarser than %d to partition by; the target is the %s minimum", o.Resolution, scheme),
			}
		}
	case parentRes < r.Min || parentRes > r.Max:
		return nil, &ErrResolution{Scheme: string(scheme), Field: "ParentResolution", Resolution: parentRes, Min: r.Min, Max: r.Max}
	case parentRes >= o.Resolution:
		return nil, &ErrConfig{
			Field:  "ParentResolution",
			Reason: fmt.Sprintf("parent resolution (%d) must be less than target resolution (%d)", parentRes, o.Resolution),
		}
	}

	if o.Compact && o.IDField == "" {
		return nil, &ErrConfig{Field: "IDField", Reason: "compaction requires a feature identifier field"}
	}
	if o.ChunkSize < 1 {
		return nil, &ErrConfig{Field: "ChunkSize", Reason: fmt.Sprintf("must be positive, got %d", o.ChunkSize)}
	}
	method, err := partition.ParseMethod(o.SpatialSort)
	if err != nil {
		return nil, &ErrConfig{Field: "SpatialSort", Reason: err.Error()}
	}
	codec, err := store.ParseCodec(o.Compression)
	if err != nil {
		return nil, &ErrConfig{Field: "Compression", Reason: err.Error()}
	}
	if o.CutCRS != 0 && !projection.Supported(o.CutCRS) {
		return nil, &ErrConfig{Field: "CutCRS", Reason: fmt.Sprintf("EPSG:%d is not supported", o.CutCRS)}
	}
	if math.IsNaN(o.CutThreshold) || (o.CutThreshold < 0 && o.CutThreshold != -1) {
		return nil, &ErrConfig{Field: "CutThreshold", Reason: fmt.Sprintf("must be -1, 0 or positive, got %v", o.CutThreshold)}
	}
	if o.Workers < 0 {
		return nil, &ErrConfig{Field: "Workers", Reason: fmt.Sprintf("must not be negative, got %d", o.Workers)}
	}

	workers := o.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	log := o.Logger
	if log == nil {
		log = logger.L()
	}

	return &plan{
		ix:        ix,
		scheme:    scheme,
		res:       o.Resolution,
		parentRes: parentRes,
		method:    method,
		chunkSize: o.ChunkSize,
		codec:     codec,
		workers:   workers,
		threshold: o.CutThreshold,
		log:       log,
	}, nil
}
