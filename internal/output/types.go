// internal/output/types.go - Tile feature output types
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/valpere/wfs_dump/internal/tile"
	"github.com/valpere/wfs_dump/pkg/feature"
)

// Format is the document layout written by the fetch command
type Format string

const (
	// FormatGeoJSON writes a plain FeatureCollection
	FormatGeoJSON Format = "geojson"
	// FormatJSON wraps each tile's collection with its fetch metadata
	FormatJSON Format = "json"
)

// Extension returns the file suffix used for per-tile files
func (f Format) Extension() string {
	if f == FormatGeoJSON {
		return ".geojson"
	}
	return ".json"
}

// Valid reports whether f is a known format
func (f Format) Valid() bool {
	return f == FormatGeoJSON || f == FormatJSON
}

// TileFeatures is the owned feature set of one fetched tile
type TileFeatures struct {
	Tile      tile.Tile         `json:"tile"`
	Extent    tile.BoundingBox  `json:"extent"`
	Features  []feature.Feature `json:"-"`
	Received  int               `json:"received"`
	Skipped   int               `json:"skipped"`
	Size      int               `json:"size_bytes"`
	FetchTime time.Duration     `json:"fetch_time"`
}

// Writer persists fetched tiles
type Writer interface {
	Write(t *TileFeatures) error
	WriteBatch(tiles []*TileFeatures) error
	Close() error
}

// Formatter renders fetched tiles as a document
type Formatter interface {
	Format(t *TileFeatures) ([]byte, error)
	FormatBatch(tiles []*TileFeatures) ([]byte, error)
	ContentType() string
}

// Destination is a named byte sink that tracks how much was written to it
type Destination interface {
	io.WriteCloser
	Name() string
	Size() int64
}

// Options controls how the fetch command renders and stores tiles
type Options struct {
	Format   Format
	Pretty   bool
	Gzip     bool
	Metadata bool
}

// Validate checks the options before any file is created
func (o Options) Validate() error {
	if !o.Format.Valid() {
		return fmt.Errorf("invalid output format %q (use geojson or json)", o.Format)
	}
	return nil
}
