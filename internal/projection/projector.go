// internal/projection/projector.go - Tile extent reprojection
package projection

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/tile"
)

// CRSWebMercator is the spherical pseudo-mercator used by most web maps
const CRSWebMercator tile.CRS = 3857

// system converts between one CRS and geographic lon/lat
type system struct {
	name           string
	toGeographic   orb.Projection
	fromGeographic orb.Projection
}

func identity(p orb.Point) orb.Point { return p }

var webMercator = system{
	name:           "WGS 84 / Pseudo-Mercator",
	toGeographic:   project.Mercator.ToWGS84,
	fromGeographic: project.WGS84.ToMercator,
}

// Projector maps extents between the coordinate systems it knows about
type Projector struct {
	systems map[tile.CRS]system
}

// NewProjector creates a projector with geographic and web mercator support.
// 900913, 102100 and 102113 are legacy codes for EPSG:3857.
func NewProjector() *Projector {
	return &Projector{
		systems: map[tile.CRS]system{
			tile.CRSGeographic: {name: "WGS 84", toGeographic: identity, fromGeographic: identity},
			CRSWebMercator:     webMercator,
			900913:             webMercator,
			102100:             webMercator,
			102113:             webMercator,
		},
	}
}

// Supported returns the known EPSG codes in ascending order
func (p *Projector) Supported() []tile.CRS {
	codes := make([]tile.CRS, 0, len(p.systems))
	for c := range p.systems {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Validate reports a projection error for unknown CRS codes
func (p *Projector) Validate(crs tile.CRS) error {
	if _, ok := p.systems[crs]; !ok {
		return internal.NewError(internal.ErrorCodeProjection,
			fmt.Sprintf("unsupported CRS %s (supported: %v)", crs, p.Supported()), nil)
	}
	return nil
}

// Project maps bbox from one CRS to another. Only the two diagonal corners are
// transformed and the result is their axis-aligned box, so under transforms with
// shear or rotation the returned extent can clip or over-include near the edges.
func (p *Projector) Project(bbox tile.BoundingBox, from, to tile.CRS) (tile.BoundingBox, error) {
	if from == to {
		bbox.CRS = to
		return bbox, nil
	}

	src, ok := p.systems[from]
	if !ok {
		return tile.BoundingBox{}, p.Validate(from)
	}
	dst, ok := p.systems[to]
	if !ok {
		return tile.BoundingBox{}, p.Validate(to)
	}

	transform := func(pt orb.Point) orb.Point {
		return dst.fromGeographic(src.toGeographic(pt))
	}

	min := transform(orb.Point{bbox.MinX, bbox.MinY})
	max := transform(orb.Point{bbox.MaxX, bbox.MaxY})
	for _, v := range []float64{min[0], min[1], max[0], max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return tile.BoundingBox{}, internal.NewError(internal.ErrorCodeProjection,
				fmt.Sprintf("transform of %s from %s to %s is not finite", bbox, from, to), nil)
		}
	}

	return tile.BoundingBox{
		MinX: math.Min(min[0], max[0]),
		MinY: math.Min(min[1], max[1]),
		MaxX: math.Max(min[0], max[0]),
		MaxY: math.Max(min[1], max[1]),
		CRS:  to,
	}, nil
}
