// Package dggs indexes vector geometry into Discrete Global Grid System
// cells and writes the result as a directory of parquet partitions.
//
// Four grid schemes are supported: H3, S2, rHEALPix and Geohash. Every
// input geometry becomes one row per cell at the target resolution, and
// rows are grouped on disk by their ancestor cell at a coarser parent
// resolution so consumers can prune partitions by name.
//
// # Basic Usage
//
//	opts := dggs.DefaultOptions()
//	opts.Scheme = dggs.H3
//	opts.Resolution = 9
//
//	res, err := dggs.Index(ctx, dggs.NewGeoJSONReader("parks.geojson"), "parks_h3", opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Pipeline
//
// A run moves through five stages:
//
//  1. Read: the Reader returns every feature with its CRS.
//  2. Bisect: geometries larger than the cut threshold are split along
//     their longer axis until every piece fits, then reprojected to
//     EPSG:4326 and exploded into single parts. Empty, unsupported and
//     invalid pieces are dropped and counted.
//  3. Partition: pieces are sorted along a Hilbert or Morton curve, by
//     geohash, or not at all, and cut into chunks of ChunkSize rows.
//  4. Index: a worker pool polyfills each chunk and attaches the parent
//     cell. The first worker failure aborts the run.
//  5. Write: rows are regrouped by parent cell, optionally compacted per
//     feature, and written as <output>/<parent>.parquet/part.0.parquet.
//
// # Output Layout
//
//	parks_h3/
//	  830e05fffffffff.parquet/
//	    part.0.parquet      fid, h3_09
//	  830e0dfffffffff.parquet/
//	    part.0.parquet
//
// The cell column is named <scheme>_<resolution>, zero padded to two
// digits. Without compaction the parent column is dropped because the
// partition name carries it. With compaction it is kept and the cell
// column holds cells of mixed resolution, never coarser than the parent.
//
// # Compaction
//
// Compaction replaces every complete set of sibling cells belonging to one
// feature with their parent, repeatedly. Cells of different features are
// never merged, so compaction requires IDField.
//
//	opts.IDField = "park_id"
//	opts.Compact = true
//
// # Errors
//
// Invalid options return *ErrConfig or *ErrResolution and an existing
// output returns *ErrOutputExists, all before the reader is called. A run
// in which no feature produces a cell returns ErrNothingToWrite. Worker
// failures return *ErrWorker.
package dggs
