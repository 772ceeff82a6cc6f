// Package config loads indexing jobs from JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Job describes one indexing run. Pointer fields distinguish "unset" from
// zero so that command-line flags can fill them in.
type Job struct {
	DGGS             string   `json:"dggs"`
	Input            string   `json:"input"`
	Output           string   `json:"output"`
	Resolution       *int     `json:"resolution"`
	ParentResolution *int     `json:"parent_res,omitempty"`
	IDField          string   `json:"id_field,omitempty"`
	KeepAttributes   bool     `json:"keep_attributes"`
	ChunkSize        int      `json:"chunksize"`
	SpatialSorting   string   `json:"spatial_sorting"`
	CutThreshold     *float64 `json:"cut_threshold,omitempty"`
	CutCRS           int      `json:"cut_crs,omitempty"`
	Threads          int      `json:"threads,omitempty"`
	Compression      string   `json:"compression"`
	Overwrite        bool     `json:"overwrite"`
	Compact          bool     `json:"compact"`
	TempDir          string   `json:"tempdir,omitempty"`

	// PostGIS input
	Table      string `json:"table,omitempty"`
	GeomColumn string `json:"geom_col,omitempty"`

	MetricsFile string `json:"metrics_file,omitempty"`
}

// Load reads and validates a job from a JSON file.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := job.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &job, nil
}

func (j *Job) validate() error {
	if j.ChunkSize < 0 {
		return fmt.Errorf("chunksize must not be negative")
	}
	if j.ChunkSize == 0 {
		j.ChunkSize = 50
	}
	if j.SpatialSorting == "" {
		j.SpatialSorting = "hilbert"
	}
	if j.Compression == "" {
		j.Compression = "zstd"
	}
	if j.Threads < 0 {
		return fmt.Errorf("threads must not be negative")
	}
	if j.Resolution != nil && *j.Resolution < 0 {
		return fmt.Errorf("resolution must not be negative")
	}
	if j.ParentResolution != nil && *j.ParentResolution < 0 {
		return fmt.Errorf("parent_res must not be negative")
	}
	if j.Compact && j.IDField == "" {
		return fmt.Errorf("compact requires id_field")
	}
	if j.GeomColumn == "" {
		j.GeomColumn = "geom"
	}
	return nil
}
