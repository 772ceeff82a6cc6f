package partition

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/paulmach/orb/encoding/wkb"

	"github.com/beetlebugorg/vector2dggs/internal/feature"
	"github.com/beetlebugorg/vector2dggs/internal/store"
)

// GeometryColumn holds WKB geometry in chunk files.
const GeometryColumn = "geometry"

// Layout maps features to chunk table rows and back.
type Layout struct {
	ID         store.Column
	Attributes store.Schema
	Method     Method
}

// Schema returns the chunk table schema: id, attributes, geometry, then the
// sort key when the method has one.
func (l Layout) Schema() store.Schema {
	s := make(store.Schema, 0, len(l.Attributes)+3)
	s = append(s, l.ID)
	s = append(s, l.Attributes...)
	s = append(s, store.Column{Name: GeometryColumn, Type: store.Binary})
	if col := l.Method.Column(); col != "" {
		s = append(s, store.Column{Name: col, Type: store.Int64})
	}
	return s
}

// Encode converts a chunk to a table.
func (l Layout) Encode(c Chunk) (*store.Table, error) {
	schema := l.Schema()
	t := &store.Table{Schema: schema, Rows: make([]store.Row, 0, len(c.Features))}
	for i, f := range c.Features {
		row := make(store.Row, len(schema))
		id, err := store.Coerce(l.ID.Type, f.ID)
		if err != nil {
			return nil, fmt.Errorf("feature id %v: %w", f.ID, err)
		}
		row[0] = id
		for j, col := range l.Attributes {
			v, err := store.Coerce(col.Type, f.Properties[col.Name])
			if err != nil {
				return nil, fmt.Errorf("feature %v attribute %q: %w", f.ID, col.Name, err)
			}
			row[1+j] = v
		}
		g, err := wkb.Marshal(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %v geometry: %w", f.ID, err)
		}
		row[1+len(l.Attributes)] = g
		if len(schema) > len(l.Attributes)+2 {
			// Stored as the bit pattern; only the order within a chunk matters.
			row[len(schema)-1] = int64(c.Keys[i])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Decode converts a chunk table back to features. The sort key is dropped.
func (l Layout) Decode(t *store.Table) ([]feature.Feature, error) {
	ii := t.Schema.Index(l.ID.Name)
	gi := t.Schema.Index(GeometryColumn)
	if ii < 0 || gi < 0 {
		return nil, fmt.Errorf("chunk table is missing %q or %q", l.ID.Name, GeometryColumn)
	}
	attrs := make([]int, len(l.Attributes))
	for j, col := range l.Attributes {
		if attrs[j] = t.Schema.Index(col.Name); attrs[j] < 0 {
			return nil, fmt.Errorf("chunk table is missing attribute %q", col.Name)
		}
	}

	out := make([]feature.Feature, 0, len(t.Rows))
	for _, row := range t.Rows {
		data, _ := row[gi].([]byte)
		g, err := wkb.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("feature %v geometry: %w", row[ii], err)
		}
		f := feature.Feature{ID: row[ii], Geometry: g}
		if len(attrs) > 0 {
			f.Properties = make(map[string]any, len(attrs))
			for j, col := range l.Attributes {
				f.Properties[col.Name] = row[attrs[j]]
			}
		}
		out = append(out, f)
	}
	return out, nil
}

// ChunkPath names the file of chunk i under dir.
func ChunkPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("part.%05d.parquet", i))
}

// WriteChunk writes c to its file under dir and returns the path.
func WriteChunk(dir string, c Chunk, l Layout, codec store.Codec) (string, error) {
	t, err := l.Encode(c)
	if err != nil {
		return "", fmt.Errorf("encode chunk %d: %w", c.Index, err)
	}
	path := ChunkPath(dir, c.Index)
	if err := store.WriteFile(path, t, codec); err != nil {
		return "", fmt.Errorf("write chunk %d: %w", c.Index, err)
	}
	return path, nil
}

// ReadChunk loads the features of one chunk file.
func ReadChunk(ctx context.Context, path string, l Layout) ([]feature.Feature, error) {
	t, err := store.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	fs, err := l.Decode(t)
	if err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", path, err)
	}
	return fs, nil
}
