package source

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/edsrzf/mmap-go"
	"github.com/paulmach/orb/geojson"

	"github.com/beetlebugorg/vector2dggs/internal/feature"
)

// GeoJSON reads a FeatureCollection file. Coordinates are EPSG:4326 unless
// the legacy "crs" member names another EPSG code.
type GeoJSON struct {
	Path string
}

// ErrEmptyFile indicates a zero-length input file.
type ErrEmptyFile struct {
	Path string
}

func (e *ErrEmptyFile) Error() string {
	return fmt.Sprintf("%s: empty file", e.Path)
}

func (g *GeoJSON) Read(ctx context.Context) (*feature.Collection, error) {
	f, err := os.Open(g.Path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.Size() == 0 {
		return nil, &ErrEmptyFile{Path: g.Path}
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("map input: %w", err)
	}
	defer data.Unmap()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeGeoJSON(data)
}

// DecodeGeoJSON parses a FeatureCollection document.
func DecodeGeoJSON(data []byte) (*feature.Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	c := &feature.Collection{
		Features: make([]feature.Feature, 0, len(fc.Features)),
		EPSG:     crsMember(fc.ExtraMembers),
	}
	for _, gf := range fc.Features {
		props := make(map[string]any, len(gf.Properties))
		for k, v := range gf.Properties {
			props[k] = v
		}
		c.Features = append(c.Features, feature.Feature{
			Geometry:   gf.Geometry,
			Properties: props,
		})
	}
	integralColumns(c)
	return c, nil
}

var epsgName = regexp.MustCompile(`EPSG:{1,2}(?:[\d.]*:)?(\d+)$`)

// crsMember extracts the EPSG code of a named "crs" member, or 0.
func crsMember(m geojson.Properties) int {
	crs, ok := m["crs"].(map[string]any)
	if !ok {
		return 0
	}
	props, ok := crs["properties"].(map[string]any)
	if !ok {
		return 0
	}
	name, _ := props["name"].(string)
	match := epsgName.FindStringSubmatch(name)
	if match == nil {
		if name == "urn:ogc:def:crs:OGC:1.3:CRS84" || name == "urn:ogc:def:crs:OGC::CRS84" {
			return 4326
		}
		return 0
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return code
}
