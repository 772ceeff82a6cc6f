package dggs

import (
	"errors"
	"fmt"
)

// ErrConfig indicates an invalid option. It is always returned before any
// input is read or any directory is created.
type ErrConfig struct {
	Field  string
	Reason string
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrResolution indicates a resolution outside the range of its scheme.
type ErrResolution struct {
	Scheme     string
	Field      string
	Resolution int
	Min, Max   int
}

func (e *ErrResolution) Error() string {
	return fmt.Sprintf("%s %d is outside the %s range [%d, %d]", e.Field, e.Resolution, e.Scheme, e.Min, e.Max)
}

// ErrOutputExists indicates that the output path exists and Overwrite was
// not set.
type ErrOutputExists struct {
	Path string
}

func (e *ErrOutputExists) Error() string {
	return fmt.Sprintf("%s already exists; set Overwrite to replace it", e.Path)
}

// ErrNothingToWrite is returned when no feature produced any cell.
var ErrNothingToWrite = errors.New("nothing to write: no feature produced any cell")

// ErrWorker wraps the first failure of an indexing worker.
type ErrWorker struct {
	Chunk int
	Err   error
}

func (e *ErrWorker) Error() string {
	return fmt.Sprintf("indexing chunk %d: %v", e.Chunk, e.Err)
}

func (e *ErrWorker) Unwrap() error {
	return e.Err
}
