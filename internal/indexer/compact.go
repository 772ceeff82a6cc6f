package indexer

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/beetlebugorg/vector2dggs/internal/store"
)

// ErrMissingColumn indicates a table without a required column.
type ErrMissingColumn struct {
	Column string
}

func (e *ErrMissingColumn) Error() string {
	return fmt.Sprintf("compaction: table has no column %q", e.Column)
}

// compactTable is the scheme-independent half of compaction.
//
// Each feature's cells are compacted on their own. Cells that survive
// compaction unchanged keep their rows. Every merged cell is represented
// by the row of its center child at res, rewritten to the merged cell; the
// rows of its other children are dropped. Column order is preserved.
func compactTable(
	t *store.Table,
	res, minRes int,
	cellCol, idCol string,
	compact func(cells []string, minRes int) []string,
	centerChild func(cell string, res int) string,
) (*store.Table, error) {
	ci := t.Schema.Index(cellCol)
	if ci < 0 {
		return nil, &ErrMissingColumn{Column: cellCol}
	}
	ii := t.Schema.Index(idCol)
	if ii < 0 {
		return nil, &ErrMissingColumn{Column: idCol}
	}

	// Cells per feature, in first-seen feature order.
	var order []string
	byID := make(map[string][]string)
	seen := make(map[xxh3.Uint128]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		id := idKey(row[ii])
		cell, ok := row[ci].(string)
		if !ok {
			return nil, fmt.Errorf("compaction: %w", ErrMissingCell)
		}
		k := pairKey(id, cell)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := byID[id]; !ok {
			order = append(order, id)
		}
		byID[id] = append(byID[id], cell)
	}

	keep := make(map[xxh3.Uint128]struct{})
	rewrite := make(map[xxh3.Uint128]string)
	for _, id := range order {
		original := byID[id]
		inOriginal := make(map[string]struct{}, len(original))
		for _, c := range original {
			inOriginal[c] = struct{}{}
		}
		for _, c := range compact(original, minRes) {
			if _, ok := inOriginal[c]; ok {
				keep[pairKey(id, c)] = struct{}{}
				continue
			}
			rewrite[pairKey(id, centerChild(c, res))] = c
		}
	}

	out := &store.Table{Schema: t.Schema, Rows: make([]store.Row, 0, len(keep)+len(rewrite))}
	emitted := make(map[xxh3.Uint128]struct{}, len(keep)+len(rewrite))
	for _, row := range t.Rows {
		id := idKey(row[ii])
		k := pairKey(id, row[ci].(string))
		if _, done := emitted[k]; done {
			continue
		}
		if _, ok := keep[k]; ok {
			emitted[k] = struct{}{}
			out.Rows = append(out.Rows, row)
			continue
		}
		if merged, ok := rewrite[k]; ok {
			emitted[k] = struct{}{}
			r := make(store.Row, len(row))
			copy(r, row)
			r[ci] = merged
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}

// idKey renders a feature identifier with its type so that 1 and "1" stay
// distinct.
func idKey(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}

func pairKey(id, cell string) xxh3.Uint128 {
	return xxh3.HashString128(id + "\x00" + cell)
}
