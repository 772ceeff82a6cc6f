package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

const sample = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "a", "pop": 10, "area": 1.5},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}},
    {"type": "Feature", "properties": {"name": "b", "pop": 20, "area": 2},
     "geometry": {"type": "Point", "coordinates": [5, 6]}},
    {"type": "Feature", "properties": {"name": "c"},
     "geometry": null}
  ]
}`

func TestGeoJSONRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.geojson")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := (&GeoJSON{Path: path}).Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(c.Features) != 3 {
		t.Fatalf("got %d features, want 3", len(c.Features))
	}
	if c.CRS() != 4326 {
		t.Errorf("CRS = %d, want 4326", c.CRS())
	}
	if _, ok := c.Features[0].Geometry.(orb.Polygon); !ok {
		t.Errorf("geometry 0 = %T, want orb.Polygon", c.Features[0].Geometry)
	}
	if c.Features[2].Geometry != nil {
		t.Errorf("geometry 2 = %v, want nil", c.Features[2].Geometry)
	}
	if got := c.Features[1].Properties["pop"]; got != int64(20) {
		t.Errorf("pop = %#v, want int64(20)", got)
	}
	if got := c.Features[1].Properties["area"]; got != float64(2) {
		t.Errorf("area = %#v, want float64(2)", got)
	}
	cols := c.AttributeColumns()
	if len(cols) != 3 || cols[0] != "area" || cols[1] != "name" || cols[2] != "pop" {
		t.Errorf("columns = %v", cols)
	}
}

func TestGeoJSONReadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.geojson")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := (&GeoJSON{Path: empty}).Read(context.Background())
	var emptyErr *ErrEmptyFile
	if !errors.As(err, &emptyErr) {
		t.Errorf("empty file error = %v, want ErrEmptyFile", err)
	}

	if _, err := (&GeoJSON{Path: filepath.Join(dir, "missing")}).Read(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.geojson")
	if err := os.WriteFile(bad, []byte(`{"type": "FeatureCollection", "features": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&GeoJSON{Path: bad}).Read(context.Background()); err == nil {
		t.Error("malformed file: expected error")
	}
}

func TestCRSMember(t *testing.T) {
	tests := []struct {
		name string
		crs  string
		want int
	}{
		{"none", ``, 0},
		{"urn", `,"crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}}`, 3857},
		{"versioned urn", `,"crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG:6.6:6933"}}`, 6933},
		{"short", `,"crs":{"type":"name","properties":{"name":"EPSG:4326"}}`, 4326},
		{"crs84", `,"crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:OGC:1.3:CRS84"}}`, 4326},
		{"unknown", `,"crs":{"type":"name","properties":{"name":"local"}}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"type":"FeatureCollection","features":[]` + tt.crs + `}`
			c, err := DecodeGeoJSON([]byte(doc))
			if err != nil {
				t.Fatal(err)
			}
			if c.EPSG != tt.want {
				t.Errorf("EPSG = %d, want %d", c.EPSG, tt.want)
			}
		})
	}
}

func TestPostGISQuery(t *testing.T) {
	tests := []struct {
		name string
		src  PostGIS
		want string
	}{
		{
			name: "all columns",
			src:  PostGIS{Table: "public.parcels"},
			want: `SELECT *, ST_AsBinary("geom") AS __v2d_wkb, ST_SRID("geom") AS __v2d_srid FROM "public"."parcels"`,
		},
		{
			name: "id only",
			src:  PostGIS{Table: "parcels", GeomColumn: "shape", Columns: []string{"parcel_id"}},
			want: `SELECT "parcel_id", ST_AsBinary("shape") AS __v2d_wkb, ST_SRID("shape") AS __v2d_srid FROM "parcels"`,
		},
		{
			name: "geometry only",
			src:  PostGIS{Table: "parcels", Columns: []string{}},
			want: `SELECT ST_AsBinary("geom") AS __v2d_wkb, ST_SRID("geom") AS __v2d_srid FROM "parcels"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.src.query(); got != tt.want {
				t.Errorf("query() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestColumnValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := columnValue("NUMERIC", []byte("1.25")); got != "1.25" {
		t.Errorf("numeric = %#v", got)
	}
	if got, ok := columnValue("BYTEA", []byte{1, 2}).([]byte); !ok || len(got) != 2 {
		t.Errorf("bytea = %#v", got)
	}
	if got := columnValue("TIMESTAMPTZ", ts); got != "2024-03-01T12:00:00Z" {
		t.Errorf("timestamp = %#v", got)
	}
	if got := columnValue("INT8", int64(7)); got != int64(7) {
		t.Errorf("int8 = %#v", got)
	}
}
