package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/beetlebugorg/vector2dggs/internal/feature"
)

const (
	wkbAlias  = "__v2d_wkb"
	sridAlias = "__v2d_srid"
)

// PostGIS reads every row of one table.
type PostGIS struct {
	DSN        string
	Table      string // optionally schema-qualified
	GeomColumn string // defaults to "geom"

	// Columns limits the attributes read. Nil reads every column; an empty
	// slice reads geometry only.
	Columns []string
}

// ErrMixedSRID indicates geometries with more than one SRID in one table.
type ErrMixedSRID struct {
	Table     string
	Got, Want int
}

func (e *ErrMixedSRID) Error() string {
	return fmt.Sprintf("table %s mixes SRID %d and %d", e.Table, e.Want, e.Got)
}

func (p *PostGIS) geomColumn() string {
	if p.GeomColumn == "" {
		return "geom"
	}
	return p.GeomColumn
}

func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

func (p *PostGIS) query() string {
	geom := pq.QuoteIdentifier(p.geomColumn())
	var cols []string
	switch {
	case p.Columns == nil:
		cols = append(cols, "*")
	default:
		for _, c := range p.Columns {
			if c != p.geomColumn() {
				cols = append(cols, pq.QuoteIdentifier(c))
			}
		}
	}
	cols = append(cols,
		fmt.Sprintf("ST_AsBinary(%s) AS %s", geom, wkbAlias),
		fmt.Sprintf("ST_SRID(%s) AS %s", geom, sridAlias),
	)
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteTable(p.Table))
}

func (p *PostGIS) Read(ctx context.Context) (*feature.Collection, error) {
	db, err := sql.Open("postgres", p.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, p.query())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.Table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.Table, err)
	}

	c := &feature.Collection{}
	for _, t := range types {
		switch t.Name() {
		case p.geomColumn(), wkbAlias, sridAlias:
			continue
		}
		c.Columns = append(c.Columns, t.Name())
	}

	vals := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", p.Table, err)
		}
		f := feature.Feature{Properties: make(map[string]any, len(c.Columns))}
		for i, t := range types {
			switch t.Name() {
			case p.geomColumn():
			case wkbAlias:
				if data, ok := vals[i].([]byte); ok && len(data) > 0 {
					g, err := wkb.Unmarshal(data)
					if err != nil {
						return nil, fmt.Errorf("decode geometry: %w", err)
					}
					f.Geometry = g
				}
			case sridAlias:
				srid, _ := vals[i].(int64)
				if srid == 0 {
					continue
				}
				if c.EPSG == 0 {
					c.EPSG = int(srid)
				} else if c.EPSG != int(srid) {
					return nil, &ErrMixedSRID{Table: p.Table, Got: int(srid), Want: c.EPSG}
				}
			default:
				f.Properties[t.Name()] = columnValue(t.DatabaseTypeName(), vals[i])
			}
		}
		c.Features = append(c.Features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", p.Table, err)
	}
	return c, nil
}

// columnValue maps a driver value to an attribute value. The driver hands
// back text-like and numeric types as bytes.
func columnValue(dbType string, v any) any {
	switch x := v.(type) {
	case []byte:
		if dbType == "BYTEA" {
			return append([]byte(nil), x...)
		}
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return v
}
