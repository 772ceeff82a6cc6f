// Package store holds row-oriented tables with a typed schema and reads and
// writes them as parquet files.
package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Type is a column value type.
type Type int

const (
	String Type = iota
	Int64
	Float64
	Bool
	Binary
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case Binary:
		return "binary"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Column is one named, typed column.
type Column struct {
	Name string
	Type Type
}

// Schema is an ordered list of columns.
type Schema []Column

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Row holds one value per schema column. Nil is null.
type Row []any

// Table is a schema plus rows.
type Table struct {
	Schema Schema
	Rows   []Row
}

// ErrColumnType indicates a value that cannot be stored in its column.
type ErrColumnType struct {
	Column string
	Type   Type
	Value  any
}

func (e *ErrColumnType) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("cannot store %T as %s", e.Value, e.Type)
	}
	return fmt.Sprintf("column %q: cannot store %T as %s", e.Column, e.Value, e.Type)
}

// InferType returns the column type for a Go value. ok is false for nil.
func InferType(v any) (t Type, ok bool) {
	switch v.(type) {
	case nil:
		return String, false
	case string:
		return String, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Int64, true
	case float32, float64, json.Number:
		return Float64, true
	case bool:
		return Bool, true
	case []byte:
		return Binary, true
	}
	return String, true
}

// Merge widens a column type so it can hold values of both types. Integer
// and float mix to float; anything else mixes to string.
func Merge(a, b Type) Type {
	if a == b {
		return a
	}
	if (a == Int64 && b == Float64) || (a == Float64 && b == Int64) {
		return Float64
	}
	return String
}

// Coerce converts v to the Go representation of t: string, int64, float64,
// bool or []byte.
func Coerce(t Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case String:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		case json.Number:
			return x.String(), nil
		}
		return fmt.Sprint(v), nil
	case Int64:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int8:
			return int64(x), nil
		case int16:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case uint:
			return int64(x), nil
		case uint8:
			return int64(x), nil
		case uint16:
			return int64(x), nil
		case uint32:
			return int64(x), nil
		case uint64:
			return int64(x), nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case json.Number:
			return x.Int64()
		case string:
			return strconv.ParseInt(x, 10, 64)
		}
	case Float64:
		switch x := v.(type) {
		case float32:
			return float64(x), nil
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case json.Number:
			return x.Float64()
		case string:
			return strconv.ParseFloat(x, 64)
		}
	case Bool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(x)
		}
	case Binary:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return base64.StdEncoding.DecodeString(x)
		}
	}
	return nil, &ErrColumnType{Type: t, Value: v}
}

// EncodeRow serializes a row as a JSON array. NaN and infinities are
// written as the strings "NaN", "+Inf" and "-Inf".
func EncodeRow(r Row) ([]byte, error) {
	return json.Marshal(jsonSafe(r))
}

// DecodeRow parses a row written by EncodeRow, restoring column types.
func DecodeRow(s Schema, data []byte) (Row, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	if len(raw) != len(s) {
		return nil, fmt.Errorf("decode row: %d values for %d columns", len(raw), len(s))
	}
	row := make(Row, len(s))
	for i, col := range s {
		var v any
		if err := unmarshalNumber(raw[i], &v); err != nil {
			return nil, fmt.Errorf("decode column %q: %w", col.Name, err)
		}
		cv, err := Coerce(col.Type, v)
		if err != nil {
			return nil, fmt.Errorf("decode column %q: %w", col.Name, err)
		}
		row[i] = cv
	}
	return row, nil
}
