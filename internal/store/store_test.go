package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleTable() *Table {
	return &Table{
		Schema: Schema{
			{Name: "h3_09", Type: String},
			{Name: "fid", Type: Int64},
			{Name: "depth", Type: Float64},
			{Name: "lit", Type: Bool},
			{Name: "geometry", Type: Binary},
		},
		Rows: []Row{
			{"8928308280fffff", int64(0), 12.5, true, []byte{1, 2, 3}},
			{"8928308280bffff", int64(1), nil, false, nil},
			{"89283082807ffff", 2, float32(0.25), nil, []byte{}},
		},
	}
}

func TestParquetRoundTrip(t *testing.T) {
	for name, codec := range Codecs {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chunk.parquet")
			if err := WriteFile(path, sampleTable(), codec); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := ReadFile(context.Background(), path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !reflect.DeepEqual(got.Schema, sampleTable().Schema) {
				t.Errorf("schema = %v, want %v", got.Schema, sampleTable().Schema)
			}
			if len(got.Rows) != 3 {
				t.Fatalf("got %d rows, want 3", len(got.Rows))
			}
			if got.Rows[0][0] != "8928308280fffff" || got.Rows[2][1] != int64(2) {
				t.Errorf("unexpected values: %v", got.Rows)
			}
			if got.Rows[1][2] != nil || got.Rows[2][3] != nil {
				t.Errorf("nulls not preserved: %v", got.Rows)
			}
			if !reflect.DeepEqual(got.Rows[0][4], []byte{1, 2, 3}) {
				t.Errorf("binary = %v", got.Rows[0][4])
			}
			if got.Rows[2][2] != 0.25 {
				t.Errorf("float32 widened to %v", got.Rows[2][2])
			}
		})
	}
}

func TestWriteFileRejectsBadValue(t *testing.T) {
	tbl := &Table{
		Schema: Schema{{Name: "fid", Type: Int64}},
		Rows:   []Row{{"not a number"}},
	}
	err := WriteFile(filepath.Join(t.TempDir(), "bad.parquet"), tbl, Codecs["none"])
	var colErr *ErrColumnType
	if !errors.As(err, &colErr) {
		t.Fatalf("err = %v, want *ErrColumnType", err)
	}
	if colErr.Column != "fid" {
		t.Errorf("Column = %q, want fid", colErr.Column)
	}
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "8428309ffffffff.parquet")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{filepath.Join(dir, "a.parquet"), filepath.Join(sub, "part.0.parquet")} {
		if err := WriteFile(p, sampleTable(), Codecs["snappy"]); err != nil {
			t.Fatal(err)
		}
	}
	got, err := ReadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(got.Rows) != 6 {
		t.Errorf("got %d rows, want 6", len(got.Rows))
	}
}

func TestParseCodec(t *testing.T) {
	if _, err := ParseCodec("ZSTD"); err != nil {
		t.Errorf("ParseCodec(ZSTD): %v", err)
	}
	var codecErr *ErrUnknownCodec
	for _, name := range []string{"lzo", "lz4"} {
		if _, err := ParseCodec(name); !errors.As(err, &codecErr) {
			t.Errorf("ParseCodec(%s) err = %v, want *ErrUnknownCodec", name, err)
		}
	}
}

func TestRowCodec(t *testing.T) {
	tbl := sampleTable()
	for _, row := range tbl.Rows {
		data, err := EncodeRow(row)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeRow(tbl.Schema, data)
		if err != nil {
			t.Fatalf("DecodeRow: %v", err)
		}
		for i, col := range tbl.Schema {
			want, _ := Coerce(col.Type, row[i])
			if !reflect.DeepEqual(got[i], want) {
				t.Errorf("column %s = %#v, want %#v", col.Name, got[i], want)
			}
		}
	}

	// Large integers survive the JSON trip.
	s := Schema{{Name: "id", Type: Int64}}
	data, _ := EncodeRow(Row{int64(1) << 60})
	got, err := DecodeRow(s, data)
	if err != nil || got[0] != int64(1)<<60 {
		t.Errorf("DecodeRow = %v, %v", got, err)
	}

	// Non-finite floats survive too.
	s = Schema{{Name: "depth", Type: Float64}, {Name: "name", Type: String}}
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		data, err := EncodeRow(Row{f, "NaN"})
		if err != nil {
			t.Fatalf("EncodeRow(%v): %v", f, err)
		}
		got, err := DecodeRow(s, data)
		if err != nil {
			t.Fatalf("DecodeRow(%s): %v", data, err)
		}
		g, ok := got[0].(float64)
		if !ok || (math.IsNaN(f) != math.IsNaN(g)) || (!math.IsNaN(f) && g != f) {
			t.Errorf("depth = %#v, want %v", got[0], f)
		}
		if got[1] != "NaN" {
			t.Errorf("name = %#v, want the string kept", got[1])
		}
	}
}

func TestInferAndMerge(t *testing.T) {
	tests := []struct {
		v    any
		want Type
	}{
		{"x", String},
		{3, Int64},
		{3.5, Float64},
		{true, Bool},
		{[]byte("x"), Binary},
	}
	for _, tt := range tests {
		if got, ok := InferType(tt.v); !ok || got != tt.want {
			t.Errorf("InferType(%#v) = %v, %v", tt.v, got, ok)
		}
	}
	if _, ok := InferType(nil); ok {
		t.Error("InferType(nil) ok = true")
	}
	if Merge(Int64, Float64) != Float64 || Merge(Bool, Int64) != String || Merge(Bool, Bool) != Bool {
		t.Error("Merge widening wrong")
	}
}
