package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/apache/arrow/go/v15/parquet"
	"github.com/apache/arrow/go/v15/parquet/compress"
	"github.com/apache/arrow/go/v15/parquet/file"
	"github.com/apache/arrow/go/v15/parquet/pqarrow"
)

// Codec is a parquet page compression codec.
type Codec = compress.Compression

// Codecs lists the accepted codec names.
var Codecs = map[string]Codec{
	"none":   compress.Codecs.Uncompressed,
	"snappy": compress.Codecs.Snappy,
	"gzip":   compress.Codecs.Gzip,
	"brotli": compress.Codecs.Brotli,
	"zstd":   compress.Codecs.Zstd,
}

// ErrUnknownCodec indicates an unsupported compression name.
type ErrUnknownCodec struct {
	Name string
}

func (e *ErrUnknownCodec) Error() string {
	names := make([]string, 0, len(Codecs))
	for n := range Codecs {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Sprintf("unknown compression %q (want one of %s)", e.Name, strings.Join(names, ", "))
}

// ParseCodec maps a codec name to its parquet codec.
func ParseCodec(name string) (Codec, error) {
	c, ok := Codecs[strings.ToLower(name)]
	if !ok {
		return compress.Codecs.Uncompressed, &ErrUnknownCodec{Name: name}
	}
	return c, nil
}

func arrowType(t Type) arrow.DataType {
	switch t {
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Binary:
		return arrow.BinaryTypes.Binary
	}
	return arrow.BinaryTypes.String
}

func (s Schema) arrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s))
	for i, c := range s {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Type), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteFile writes t to path as a single-row-group parquet file.
func WriteFile(path string, t *Table, codec Codec) error {
	schema := t.Schema.arrow()

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	for _, row := range t.Rows {
		if len(row) != len(t.Schema) {
			return fmt.Errorf("write %s: row has %d values for %d columns", path, len(row), len(t.Schema))
		}
		for i, col := range t.Schema {
			if err := appendValue(b.Field(i), col, row[i]); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	props := parquet.NewWriterProperties(parquet.WithCompression(codec))
	w, err := pqarrow.NewFileWriter(schema, f, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		f.Close()
		return fmt.Errorf("open parquet writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func appendValue(b array.Builder, col Column, v any) error {
	cv, err := Coerce(col.Type, v)
	if err != nil {
		return &ErrColumnType{Column: col.Name, Type: col.Type, Value: v}
	}
	if cv == nil {
		b.AppendNull()
		return nil
	}
	switch bb := b.(type) {
	case *array.StringBuilder:
		bb.Append(cv.(string))
	case *array.Int64Builder:
		bb.Append(cv.(int64))
	case *array.Float64Builder:
		bb.Append(cv.(float64))
	case *array.BooleanBuilder:
		bb.Append(cv.(bool))
	case *array.BinaryBuilder:
		bb.Append(cv.([]byte))
	default:
		return fmt.Errorf("column %q: unsupported builder %T", col.Name, b)
	}
	return nil
}

// ReadFile loads a parquet file written by WriteFile, or any parquet file
// whose columns are strings, integers, floats, booleans or binary.
func ReadFile(ctx context.Context, path string) (*Table, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer tbl.Release()

	out := &Table{Schema: make(Schema, tbl.NumCols())}
	n := int(tbl.NumRows())
	out.Rows = make([]Row, n)
	for i := range out.Rows {
		out.Rows[i] = make(Row, tbl.NumCols())
	}

	for c := 0; c < int(tbl.NumCols()); c++ {
		field := tbl.Schema().Field(c)
		t, err := fromArrow(field.Type)
		if err != nil {
			return nil, fmt.Errorf("read %s column %q: %w", path, field.Name, err)
		}
		out.Schema[c] = Column{Name: field.Name, Type: t}

		row := 0
		for _, chunk := range tbl.Column(c).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				if !chunk.IsNull(i) {
					out.Rows[row][c] = value(chunk, i)
				}
				row++
			}
		}
	}
	return out, nil
}

func fromArrow(dt arrow.DataType) (Type, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return String, nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return Int64, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return Float64, nil
	case arrow.BOOL:
		return Bool, nil
	case arrow.BINARY, arrow.LARGE_BINARY:
		return Binary, nil
	}
	return String, fmt.Errorf("unsupported arrow type %s", dt)
}

func value(a arrow.Array, i int) any {
	switch a := a.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...)
	case *array.LargeBinary:
		return append([]byte(nil), a.Value(i)...)
	}
	return nil
}

// ReadDir loads and concatenates every .parquet file under dir, in path
// order. All files must share one schema.
func ReadDir(ctx context.Context, dir string) (*Table, error) {
	paths, err := Files(dir)
	if err != nil {
		return nil, err
	}
	out := &Table{}
	for _, p := range paths {
		t, err := ReadFile(ctx, p)
		if err != nil {
			return nil, err
		}
		if out.Schema == nil {
			out.Schema = t.Schema
		} else if !sameNames(out.Schema, t.Schema) {
			return nil, fmt.Errorf("read %s: schema %v differs from %v", p, t.Schema.Names(), out.Schema.Names())
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

// Files lists the .parquet files under dir recursively, sorted.
func Files(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".parquet" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func sameNames(a, b Schema) bool {
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
