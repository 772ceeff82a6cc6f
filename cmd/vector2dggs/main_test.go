package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beetlebugorg/vector2dggs/internal/config"
	"github.com/beetlebugorg/vector2dggs/internal/source"
	"github.com/beetlebugorg/vector2dggs/pkg/dggs"
)

func TestParseArgsPositional(t *testing.T) {
	job, err := parseArgs([]string{"-r", "9", "-parent-res", "4", "-compact", "-id-field", "osm_id", "h3", "in.geojson", "out"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if job.DGGS != "h3" || job.Input != "in.geojson" || job.Output != "out" {
		t.Errorf("positional = %q %q %q", job.DGGS, job.Input, job.Output)
	}
	if job.Resolution == nil || *job.Resolution != 9 {
		t.Errorf("Resolution = %v, want 9", job.Resolution)
	}
	if job.ParentResolution == nil || *job.ParentResolution != 4 {
		t.Errorf("ParentResolution = %v, want 4", job.ParentResolution)
	}
	if !job.Compact || job.IDField != "osm_id" {
		t.Errorf("Compact = %v IDField = %q", job.Compact, job.IDField)
	}
	if job.ChunkSize != 50 || job.SpatialSorting != "hilbert" || job.GeomColumn != "geom" {
		t.Errorf("defaults = %d %q %q", job.ChunkSize, job.SpatialSorting, job.GeomColumn)
	}
	if job.CutThreshold != nil {
		t.Errorf("CutThreshold = %v, want unset", *job.CutThreshold)
	}
}

func TestParseArgsConfigOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.json")
	body := `{"dggs": "s2", "input": "a.geojson", "output": "a-out", "resolution": 12, "chunksize": 10, "spatial_sorting": "morton"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	job, err := parseArgs([]string{"-config", path, "-chunksize", "20"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if job.DGGS != "s2" || job.Output != "a-out" || *job.Resolution != 12 {
		t.Errorf("job file values lost: %+v", job)
	}
	if job.ChunkSize != 20 {
		t.Errorf("ChunkSize = %d, want flag value 20", job.ChunkSize)
	}
	if job.SpatialSorting != "morton" {
		t.Errorf("SpatialSorting = %q, want job file value", job.SpatialSorting)
	}

	job, err = parseArgs([]string{"-config", path, "geohash", "b.geojson", "b-out"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if job.DGGS != "geohash" || job.Input != "b.geojson" || job.Output != "b-out" {
		t.Errorf("positional arguments should override the job file: %+v", job)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"missing output", []string{"-r", "5", "h3", "in.geojson"}},
		{"missing resolution", []string{"h3", "in.geojson", "out"}},
		{"postgres without layer", []string{"-r", "5", "h3", "postgres://localhost/db", "out"}},
		{"unknown flag", []string{"-nope", "h3", "in.geojson", "out"}},
		{"missing config", []string{"-config", "/nonexistent/job.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args, io.Discard); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestJobOptions(t *testing.T) {
	res, parent, cut := 9, 5, 0.0
	job := &config.Job{
		DGGS:             "H3",
		Resolution:       &res,
		ParentResolution: &parent,
		ChunkSize:        25,
		SpatialSorting:   "geohash",
		CutThreshold:     &cut,
		Threads:          3,
		Compression:      "snappy",
		Overwrite:        true,
	}
	opts, err := jobOptions(job)
	if err != nil {
		t.Fatalf("jobOptions: %v", err)
	}
	if opts.Scheme != dggs.H3 || opts.Resolution != 9 || opts.ParentResolution != 5 {
		t.Errorf("scheme/res = %q %d %d", opts.Scheme, opts.Resolution, opts.ParentResolution)
	}
	if opts.ChunkSize != 25 || opts.SpatialSort != "geohash" || opts.CutThreshold != 0 {
		t.Errorf("chunking = %d %q %v", opts.ChunkSize, opts.SpatialSort, opts.CutThreshold)
	}
	if opts.Workers != 3 || opts.Compression != "snappy" || !opts.Overwrite {
		t.Errorf("run = %d %q %v", opts.Workers, opts.Compression, opts.Overwrite)
	}

	bad := 99
	job.Resolution = &bad
	_, err = jobOptions(job)
	var resErr *dggs.ErrResolution
	if !errors.As(err, &resErr) {
		t.Errorf("err = %v, want *ErrResolution", err)
	}
}

func TestReaderSelection(t *testing.T) {
	if _, ok := reader(&config.Job{Input: "in.geojson"}).(*source.GeoJSON); !ok {
		t.Error("file input should use the GeoJSON reader")
	}

	tests := []struct {
		name string
		job  config.Job
		want []string
	}{
		{"keep attributes", config.Job{KeepAttributes: true, IDField: "id"}, nil},
		{"id only", config.Job{IDField: "id"}, []string{"id"}},
		{"geometry only", config.Job{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.job.Input = "postgres://localhost/gis"
			tt.job.Table = "public.roads"
			tt.job.GeomColumn = "wkb_geometry"
			pg, ok := reader(&tt.job).(*source.PostGIS)
			if !ok {
				t.Fatal("postgres input should use the PostGIS reader")
			}
			if pg.Table != "public.roads" || pg.GeomColumn != "wkb_geometry" {
				t.Errorf("table/geom = %q %q", pg.Table, pg.GeomColumn)
			}
			if (pg.Columns == nil) != (tt.want == nil) || len(pg.Columns) != len(tt.want) {
				t.Fatalf("Columns = %#v, want %#v", pg.Columns, tt.want)
			}
			for i := range tt.want {
				if pg.Columns[i] != tt.want[i] {
					t.Errorf("Columns[%d] = %q, want %q", i, pg.Columns[i], tt.want[i])
				}
			}
		})
	}
}

const squareGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "a"},
     "geometry": {"type": "Polygon", "coordinates": [[[10, 10], [10.2, 10], [10.2, 10.2], [10, 10.2], [10, 10]]]}},
    {"type": "Feature", "properties": {"name": "b"},
     "geometry": {"type": "Point", "coordinates": [11, 11]}}
  ]
}`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.geojson")
	if err := os.WriteFile(input, []byte(squareGeoJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out")
	metricsFile := filepath.Join(dir, "run.prom")

	var stdout bytes.Buffer
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	args := []string{"-r", "6", "-threads", "2", "-tempdir", dir, "-metrics-file", metricsFile, "h3", input, output}
	if err := run(context.Background(), args, &stdout, io.Discard, quiet); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(stdout.String(), "2 features") {
		t.Errorf("summary = %q", stdout.String())
	}
	parts, err := filepath.Glob(filepath.Join(output, "*.parquet", "part.0.parquet"))
	if err != nil || len(parts) == 0 {
		t.Fatalf("no partitions written (err %v)", err)
	}
	prom, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(prom), "features_read") {
		t.Errorf("metrics file has no features_read counter:\n%s", prom)
	}

	// Second run without -overwrite must refuse the existing output.
	err = run(context.Background(), args, io.Discard, io.Discard, quiet)
	var exists *dggs.ErrOutputExists
	if !errors.As(err, &exists) {
		t.Errorf("rerun err = %v, want *ErrOutputExists", err)
	}
}
