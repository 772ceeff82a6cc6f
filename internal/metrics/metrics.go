// Package metrics collects per-run pipeline counters on a private Prometheus
// registry so that concurrent runs do not share state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the counters for one pipeline run.
type Recorder struct {
	registry *prometheus.Registry

	FeaturesRead      prometheus.Counter
	FeaturesDropped   *prometheus.CounterVec
	Pieces            prometheus.Counter
	ChunksIndexed     prometheus.Counter
	RowsIndexed       prometheus.Counter
	IndexFailures     prometheus.Counter
	PartitionsWritten prometheus.Counter
	RowsCompactedAway prometheus.Counter
}

// New builds a Recorder whose series carry the scheme label.
func New(scheme string) *Recorder {
	labels := prometheus.Labels{"scheme": scheme}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		FeaturesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vector2dggs_features_read_total",
			Help:        "Features returned by the reader",
			ConstLabels: labels,
		}),
		FeaturesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vector2dggs_features_dropped_total",
			Help:        "Geometry pieces dropped before indexing, by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		Pieces: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vector2dggs_pieces_total",
			Help:        "Single-part geometries handed to the partitioner",
			ConstLabels: labels,
		}),
		ChunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vector2dggs_chunks_indexed_total",
			Help:        "Chunks polyfilled by the worker pool",
			ConstLabels: labels,
		}),
		RowsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vector2dggs_rows_indexed_total",
			Help:        "Cell rows produced by polyfill",
			ConstLabels: labels,
		}),
		IndexFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vector2dggs_index_failures_total",
			Help:        "Geometries the indexer could not polyfill",
			ConstLabels: labels,
		}),
		PartitionsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vector2dggs_partitions_written_total",
			Help:        "Parent-cell partitions written to the output",
			ConstLabels: labels,
		}),
		RowsCompactedAway: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vector2dggs_rows_compacted_away_total",
			Help:        "Rows removed by compaction",
			ConstLabels: labels,
		}),
	}
	r.registry.MustRegister(
		r.FeaturesRead,
		r.FeaturesDropped,
		r.Pieces,
		r.ChunksIndexed,
		r.RowsIndexed,
		r.IndexFailures,
		r.PartitionsWritten,
		r.RowsCompactedAway,
	)
	return r
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current values in the node_exporter textfile
// format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
