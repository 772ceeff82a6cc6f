package store

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

func unmarshalNumber(data []byte, v *any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// jsonSafe replaces non-finite floats, which JSON cannot carry, with their
// strconv spelling. Coerce parses them back for Float64 columns.
func jsonSafe(r Row) []any {
	out := make([]any, len(r))
	for i, v := range r {
		switch x := v.(type) {
		case float64:
			if math.IsNaN(x) || math.IsInf(x, 0) {
				v = strconv.FormatFloat(x, 'g', -1, 64)
			}
		case float32:
			if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
				v = strconv.FormatFloat(f, 'g', -1, 64)
			}
		}
		out[i] = v
	}
	return out
}
