package dggs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/beetlebugorg/vector2dggs/internal/indexer"
	"github.com/beetlebugorg/vector2dggs/internal/metrics"
	"github.com/beetlebugorg/vector2dggs/internal/partition"
	"github.com/beetlebugorg/vector2dggs/internal/store"
)

// indexedSchema is the layout of the indexing stage output: id, attributes,
// target cell, parent cell.
func (p *plan) indexedSchema(l partition.Layout) store.Schema {
	s := make(store.Schema, 0, len(l.Attributes)+3)
	s = append(s, l.ID)
	s = append(s, l.Attributes...)
	s = append(s,
		store.Column{Name: p.cellColumn(), Type: store.String},
		store.Column{Name: p.parentColumn(), Type: store.String},
	)
	return s
}

// chunkResult is the outcome of indexing one chunk.
type chunkResult struct {
	index int
	rows  int
	stats indexer.Stats
	err   error
}

// indexChunk polyfills one chunk file, attaches the parent cell and writes
// the rows to outDir under the chunk's file name. A chunk without cells
// writes nothing.
func (p *plan) indexChunk(ctx context.Context, path string, l partition.Layout, outDir string) (int, indexer.Stats, error) {
	features, err := partition.ReadChunk(ctx, path, l)
	if err != nil {
		return 0, indexer.Stats{}, err
	}

	rows, stats := p.ix.Polyfill(features, p.res)
	if len(rows) == 0 {
		return 0, stats, nil
	}
	if err := p.ix.SecondaryIndex(rows, p.parentRes); err != nil {
		return 0, stats, fmt.Errorf("secondary index: %w", err)
	}

	schema := p.indexedSchema(l)
	t := &store.Table{Schema: schema, Rows: make([]store.Row, 0, len(rows))}
	for _, r := range rows {
		f := features[r.Feature]
		row := make(store.Row, 0, len(schema))
		row = append(row, f.ID)
		for _, col := range l.Attributes {
			row = append(row, f.Properties[col.Name])
		}
		row = append(row, r.Cell, r.Parent)
		t.Rows = append(t.Rows, row)
	}

	if err := store.WriteFile(filepath.Join(outDir, filepath.Base(path)), t, p.codec); err != nil {
		return 0, stats, err
	}
	return len(rows), stats, nil
}

// indexChunks runs indexChunk over paths on a bounded worker pool.
//
// Chunks finish in any order. The first failure cancels the remaining
// work and is returned as *ErrWorker; no partial result is reported as a
// success.
func (p *plan) indexChunks(
	ctx context.Context,
	paths []string,
	l partition.Layout,
	outDir string,
	progress func(done, total int),
	rec *metrics.Recorder,
	log *slog.Logger,
) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := min(p.workers, len(paths))

	jobs := make(chan int, len(paths))
	results := make(chan chunkResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				if err := ctx.Err(); err != nil {
					results <- chunkResult{index: index, err: err}
					continue
				}
				rows, stats, err := p.indexChunk(ctx, paths[index], l, outDir)
				results <- chunkResult{index: index, rows: rows, stats: stats, err: err}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		firstErr error
		total    int
		done     int
	)
	for result := range results {
		done++
		if progress != nil {
			progress(done, len(paths))
		}

		if result.err != nil {
			if firstErr == nil && !errors.Is(result.err, context.Canceled) {
				firstErr = &ErrWorker{Chunk: result.index, Err: result.err}
				cancel()
			}
			continue
		}

		rec.ChunksIndexed.Inc()
		rec.RowsIndexed.Add(float64(result.rows))
		total += result.rows
		if result.stats.Failed > 0 {
			rec.IndexFailures.Add(float64(result.stats.Failed))
			log.Warn("geometries failed to index",
				"stage", "index",
				"chunk", result.index,
				"failed", result.stats.Failed,
				"first_error", result.stats.Errors[0])
		}
		if result.stats.Empty > 0 {
			log.Debug("geometries produced no cells", "stage", "index", "chunk", result.index, "count", result.stats.Empty)
		}
	}

	if err := parent.Err(); err != nil {
		return 0, err
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return total, nil
}
