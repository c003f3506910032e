// internal/tile/grid.go - Tile grid generation
package tile

import (
	"fmt"
	"math"

	"github.com/valpere/wfs_dump/internal"
)

// maxMercatorLat is the latitude at which the web mercator square ends
const maxMercatorLat = 85.0511287798066

// Grid is the inclusive column/row rectangle of tiles covering an extent at one zoom
type Grid struct {
	Zoom int `json:"zoom"`
	MinX int `json:"min_x"`
	MaxX int `json:"max_x"`
	MinY int `json:"min_y"`
	MaxY int `json:"max_y"`
}

// GenerateGrid computes the tiles at zoom whose footprints cover bbox.
// bbox must be geographic with MinX < MaxX; a box crossing the antimeridian
// has to be split by the caller.
func GenerateGrid(bbox BoundingBox, zoom int) (*Grid, error) {
	if zoom < 0 || zoom > MaxZoom {
		return nil, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("invalid zoom level %d: must be between 0 and %d", zoom, MaxZoom), nil)
	}
	if bbox.CRS != 0 && bbox.CRS != CRSGeographic {
		return nil, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("grid extent must be in %s, got %s", CRSGeographic, bbox.CRS), nil)
	}
	if _, err := NewBoundingBox(bbox.MinX, bbox.MinY, bbox.MaxX, bbox.MaxY, CRSGeographic); err != nil {
		return nil, err
	}

	// Top-left tile comes from the north-west corner, bottom-right from the south-east.
	minX, minY := deg2tile(bbox.MinX, bbox.MaxY, zoom)
	maxX, maxY := deg2tile(bbox.MaxX, bbox.MinY, zoom)

	return NewGrid(zoom, minX, maxX, minY, maxY), nil
}

// NewGrid creates a grid from explicit index ranges
func NewGrid(zoom, minX, maxX, minY, maxY int) *Grid {
	return &Grid{
		Zoom: zoom,
		MinX: minX,
		MaxX: maxX,
		MinY: minY,
		MaxY: maxY,
	}
}

// Count returns the total number of tiles in the grid
func (g *Grid) Count() int64 {
	xRange := int64(g.MaxX - g.MinX + 1)
	yRange := int64(g.MaxY - g.MinY + 1)
	return xRange * yRange
}

// Each calls fn for every tile, column by column, until fn returns false
func (g *Grid) Each(fn func(Tile) bool) {
	for x := g.MinX; x <= g.MaxX; x++ {
		for y := g.MinY; y <= g.MaxY; y++ {
			if !fn(NewTile(g.Zoom, x, y)) {
				return
			}
		}
	}
}

// Tiles materialises the grid in Each order
func (g *Grid) Tiles() []Tile {
	tiles := make([]Tile, 0, g.Count())
	g.Each(func(t Tile) bool {
		tiles = append(tiles, t)
		return true
	})
	return tiles
}

// Extent returns the union of all tile footprints
func (g *Grid) Extent() BoundingBox {
	nw := NewTile(g.Zoom, g.MinX, g.MinY).Bound()
	se := NewTile(g.Zoom, g.MaxX, g.MaxY).Bound()
	return BoundingBox{MinX: nw.MinX, MinY: se.MinY, MaxX: se.MaxX, MaxY: nw.MaxY, CRS: CRSGeographic}
}

// Validate checks that every index of the grid lies inside the lattice
func (g *Grid) Validate() error {
	if g.MinX > g.MaxX {
		return fmt.Errorf("min X (%d) cannot be greater than max X (%d)", g.MinX, g.MaxX)
	}
	if g.MinY > g.MaxY {
		return fmt.Errorf("min Y (%d) cannot be greater than max Y (%d)", g.MinY, g.MaxY)
	}
	if err := NewTile(g.Zoom, g.MinX, g.MinY).Validate(); err != nil {
		return err
	}
	return NewTile(g.Zoom, g.MaxX, g.MaxY).Validate()
}

// deg2tile converts geographic coordinates to tile coordinates, clamped to the lattice
func deg2tile(lon, lat float64, z int) (int, int) {
	n := 1 << uint(z)
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	x := int(math.Floor((lon + 180.0) / 360.0 * float64(n)))
	latRad := lat * math.Pi / 180.0
	y := int(math.Floor((1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * float64(n)))
	return clamp(x, 0, n-1), clamp(y, 0, n-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
