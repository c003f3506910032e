// pkg/feature/ownership.go - Centroid-based tile ownership
package feature

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Extent is the tile box a feature's centroid is tested against
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Centroid returns the planar centroid of geom. Geometries without
// coordinates have no centroid.
func Centroid(geom orb.Geometry) (orb.Point, bool) {
	if pointCount(geom) == 0 {
		return orb.Point{}, false
	}
	c, _ := planar.CentroidArea(geom)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return orb.Point{}, false
	}
	return c, true
}

// OwnedBy reports whether the tile with the given extent owns f: its centroid
// must lie strictly inside the extent on all four sides. A centroid on a shared
// edge belongs to neither neighbour.
func OwnedBy(f Feature, extent Extent) bool {
	c, ok := Centroid(f.Geometry)
	if !ok {
		return false
	}
	return extent.MinX < c[0] &&
		extent.MinY < c[1] &&
		extent.MaxX > c[0] &&
		extent.MaxY > c[1]
}

// Filter keeps the features owned by extent and counts the rest
func Filter(features []Feature, extent Extent) ([]Feature, int) {
	owned := make([]Feature, 0, len(features))
	for _, f := range features {
		if OwnedBy(f, extent) {
			owned = append(owned, f)
		}
	}
	return owned, len(features) - len(owned)
}
