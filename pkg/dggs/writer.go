package dggs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/beetlebugorg/vector2dggs/internal/metrics"
	"github.com/beetlebugorg/vector2dggs/internal/spool"
	"github.com/beetlebugorg/vector2dggs/internal/store"
)

// PartitionFile is the file name inside every partition directory.
const PartitionFile = "part.0.parquet"

// PartitionDir returns the directory of the partition keyed by parent.
func PartitionDir(output, parent string) string {
	return filepath.Join(output, parent+".parquet")
}

// writeStats summarizes the partition writer.
type writeStats struct {
	partitions int
	rows       int
}

// writePartitions regroups the indexing output by parent cell and writes
// one partition per parent into a staging directory next to output. The
// staging directory replaces output only after every partition is written.
func (p *plan) writePartitions(
	ctx context.Context,
	indexedDir, workDir, output string,
	schema store.Schema,
	o Options,
	rec *metrics.Recorder,
	log *slog.Logger,
) (writeStats, error) {
	var ws writeStats

	files, err := store.Files(indexedDir)
	if err != nil {
		return ws, err
	}
	if len(files) == 0 {
		return ws, ErrNothingToWrite
	}

	sp, err := spool.Open(filepath.Join(workDir, "spool"), schema)
	if err != nil {
		return ws, err
	}
	defer sp.Close()

	pi := schema.Index(p.parentColumn())
	for _, path := range files {
		t, err := store.ReadFile(ctx, path)
		if err != nil {
			return ws, err
		}
		if !equalNames(t.Schema, schema) {
			return ws, fmt.Errorf("read %s: unexpected columns %v", path, t.Schema.Names())
		}
		for _, row := range t.Rows {
			key, _ := row[pi].(string)
			if err := sp.Add(key, row); err != nil {
				return ws, err
			}
		}
	}
	log.Debug("repartitioning by parent cell", "stage", "partition", "rows", sp.Len(), "column", p.parentColumn())

	if err := os.MkdirAll(filepath.Dir(filepath.Clean(output)), 0o755); err != nil {
		return ws, fmt.Errorf("create output parent: %w", err)
	}
	staging, err := os.MkdirTemp(filepath.Dir(filepath.Clean(output)), "."+filepath.Base(output)+".staging-")
	if err != nil {
		return ws, fmt.Errorf("create staging directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	type written struct {
		rows      int
		compacted int
	}
	var results []*written

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	iterErr := sp.Partitions(gctx, func(parent string, rows []store.Row) error {
		w := &written{}
		results = append(results, w)
		g.Go(func() error {
			n, compacted, err := p.writePartition(staging, parent, schema, rows, o.Compact, o.IDField)
			w.rows, w.compacted = n, compacted
			return err
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return ws, fmt.Errorf("write partition: %w", err)
	}
	if iterErr != nil {
		return ws, fmt.Errorf("read spool: %w", iterErr)
	}

	for _, w := range results {
		ws.partitions++
		ws.rows += w.rows
		rec.RowsCompactedAway.Add(float64(w.compacted))
	}
	rec.PartitionsWritten.Add(float64(ws.partitions))
	if ws.partitions == 0 {
		return ws, ErrNothingToWrite
	}

	if _, err := os.Stat(output); err == nil {
		if !o.Overwrite {
			return ws, &ErrOutputExists{Path: output}
		}
		log.Warn("overwriting output", "path", output)
		if err := os.RemoveAll(output); err != nil {
			return ws, fmt.Errorf("remove existing output: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return ws, fmt.Errorf("stat output: %w", err)
	}
	if err := os.Rename(staging, output); err != nil {
		return ws, fmt.Errorf("move output into place: %w", err)
	}
	committed = true
	return ws, nil
}

// writePartition writes the rows of one parent cell. Rows repeating a
// (feature, cell) pair are dropped. With compact the rows are compacted and
// the parent column is kept; otherwise the parent column is dropped since
// the partition name carries it.
func (p *plan) writePartition(staging, parent string, schema store.Schema, rows []store.Row, compact bool, idField string) (int, int, error) {
	ci := schema.Index(p.cellColumn())
	ii := 0 // id column

	seen := make(map[string]struct{}, len(rows))
	unique := rows[:0]
	for _, row := range rows {
		k := fmt.Sprintf("%T:%v\x00%v", row[ii], row[ii], row[ci])
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, row)
	}
	t := &store.Table{Schema: schema, Rows: unique}

	compacted := 0
	if compact {
		before := len(t.Rows)
		ct, err := p.ix.Compaction(t, p.res, p.parentRes, p.cellColumn(), idField)
		if err != nil {
			return 0, 0, fmt.Errorf("partition %s: %w", parent, err)
		}
		t = ct
		compacted = before - len(t.Rows)
	} else {
		t = dropColumn(t, p.parentColumn())
	}

	ci = t.Schema.Index(p.cellColumn())
	sort.SliceStable(t.Rows, func(a, b int) bool {
		return t.Rows[a][ci].(string) < t.Rows[b][ci].(string)
	})

	dir := PartitionDir(staging, parent)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("create partition %s: %w", parent, err)
	}
	if err := store.WriteFile(filepath.Join(dir, PartitionFile), t, p.codec); err != nil {
		return 0, 0, err
	}
	return len(t.Rows), compacted, nil
}

func dropColumn(t *store.Table, name string) *store.Table {
	i := t.Schema.Index(name)
	if i < 0 {
		return t
	}
	out := &store.Table{Schema: make(store.Schema, 0, len(t.Schema)-1), Rows: make([]store.Row, len(t.Rows))}
	out.Schema = append(append(out.Schema, t.Schema[:i]...), t.Schema[i+1:]...)
	for r, row := range t.Rows {
		nr := make(store.Row, 0, len(row)-1)
		nr = append(append(nr, row[:i]...), row[i+1:]...)
		out.Rows[r] = nr
	}
	return out
}

func equalNames(a, b store.Schema) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}
