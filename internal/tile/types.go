// internal/tile/types.go - Tile grid types
package tile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/valpere/wfs_dump/internal"
)

// CRS is a coordinate reference system identified by its EPSG code
type CRS int

// CRSGeographic is the canonical geographic CRS tiles are defined in
const CRSGeographic CRS = 4326

// MaxZoom is the deepest zoom level the grid generator accepts
const MaxZoom = 30

// String returns the CRS in EPSG:<code> form
func (c CRS) String() string {
	return fmt.Sprintf("EPSG:%d", int(c))
}

// BoundingBox is an axis-aligned extent in a stated CRS
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	CRS  CRS     `json:"crs"`
}

// NewBoundingBox creates a bounding box, rejecting empty or inverted extents
func NewBoundingBox(minX, minY, maxX, maxY float64, crs CRS) (BoundingBox, error) {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, internal.NewError(internal.ErrorCodeConfig,
				"bounding box coordinates must be finite", nil)
		}
	}
	if minX >= maxX || minY >= maxY {
		return BoundingBox{}, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("invalid bounding box %g,%g,%g,%g: min must be less than max", minX, minY, maxX, maxY), nil)
	}
	return BoundingBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY, CRS: crs}, nil
}

// FromBound converts an orb.Bound into a bounding box in the given CRS
func FromBound(b orb.Bound, crs CRS) BoundingBox {
	return BoundingBox{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1], CRS: crs}
}

// Bound returns the box as an orb.Bound
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

// String returns "minX,minY,maxX,maxY"
func (b BoundingBox) String() string {
	return strings.Join([]string{
		formatCoord(b.MinX), formatCoord(b.MinY), formatCoord(b.MaxX), formatCoord(b.MaxY),
	}, ",")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Tile identifies one cell of the slippy-tile lattice
type Tile struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// NewTile creates a new tile
func NewTile(z, x, y int) Tile {
	return Tile{Z: z, X: x, Y: y}
}

// String returns a string representation of the tile
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Validate ensures tile coordinates are within valid bounds
func (t Tile) Validate() error {
	if t.Z < 0 || t.Z > MaxZoom {
		return fmt.Errorf("invalid zoom level %d: must be between 0 and %d", t.Z, MaxZoom)
	}

	maxTile := 1 << uint(t.Z)
	if t.X < 0 || t.X >= maxTile {
		return fmt.Errorf("invalid x coordinate %d for zoom %d: must be between 0 and %d", t.X, t.Z, maxTile-1)
	}

	if t.Y < 0 || t.Y >= maxTile {
		return fmt.Errorf("invalid y coordinate %d for zoom %d: must be between 0 and %d", t.Y, t.Z, maxTile-1)
	}

	return nil
}

// Bound returns the tile footprint in EPSG:4326
func (t Tile) Bound() BoundingBox {
	mt := maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z))
	return FromBound(mt.Bound(), CRSGeographic)
}

// ParseTile parses a "z/x/y" tile reference
func ParseTile(s string) (Tile, error) {
	coords := strings.Split(strings.TrimSpace(s), "/")
	if len(coords) != 3 {
		return Tile{}, fmt.Errorf("invalid tile format: %s (expected z/x/y)", s)
	}

	z, err := strconv.Atoi(coords[0])
	if err != nil {
		return Tile{}, fmt.Errorf("invalid zoom level: %s", coords[0])
	}

	x, err := strconv.Atoi(coords[1])
	if err != nil {
		return Tile{}, fmt.Errorf("invalid x coordinate: %s", coords[1])
	}

	y, err := strconv.Atoi(coords[2])
	if err != nil {
		return Tile{}, fmt.Errorf("invalid y coordinate: %s", coords[2])
	}

	t := NewTile(z, x, y)
	if err := t.Validate(); err != nil {
		return Tile{}, err
	}
	return t, nil
}
