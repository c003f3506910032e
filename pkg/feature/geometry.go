// pkg/feature/geometry.go - Shared geometry utilities
package feature

import "github.com/paulmach/orb"

// applyGeometryTransform applies a transformation function to all coordinates in a geometry
func applyGeometryTransform(geom orb.Geometry, transform func(orb.Point) orb.Point) orb.Geometry {
	switch g := geom.(type) {
	case orb.Point:
		return transform(g)
	case orb.MultiPoint:
		result := make(orb.MultiPoint, len(g))
		for i, point := range g {
			result[i] = transform(point)
		}
		return result
	case orb.LineString:
		result := make(orb.LineString, len(g))
		for i, point := range g {
			result[i] = transform(point)
		}
		return result
	case orb.MultiLineString:
		result := make(orb.MultiLineString, len(g))
		for i, lineString := range g {
			result[i] = applyGeometryTransform(lineString, transform).(orb.LineString)
		}
		return result
	case orb.Ring:
		result := make(orb.Ring, len(g))
		for i, point := range g {
			result[i] = transform(point)
		}
		return result
	case orb.Polygon:
		result := make(orb.Polygon, len(g))
		for i, ring := range g {
			result[i] = applyGeometryTransform(ring, transform).(orb.Ring)
		}
		return result
	case orb.MultiPolygon:
		result := make(orb.MultiPolygon, len(g))
		for i, polygon := range g {
			result[i] = applyGeometryTransform(polygon, transform).(orb.Polygon)
		}
		return result
	case orb.Collection:
		result := make(orb.Collection, len(g))
		for i, member := range g {
			result[i] = applyGeometryTransform(member, transform)
		}
		return result
	default:
		return geom
	}
}

// SwapAxes returns a copy of geom with x and y exchanged, for servers that
// answer EPSG:4326 requests in latitude/longitude order
func SwapAxes(geom orb.Geometry) orb.Geometry {
	if geom == nil {
		return nil
	}
	return applyGeometryTransform(geom, func(p orb.Point) orb.Point {
		return orb.Point{p[1], p[0]}
	})
}

// pointCount returns the number of coordinates in geom
func pointCount(geom orb.Geometry) int {
	switch g := geom.(type) {
	case nil:
		return 0
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(g)
	case orb.LineString:
		return len(g)
	case orb.Ring:
		return len(g)
	case orb.MultiLineString:
		n := 0
		for _, ls := range g {
			n += len(ls)
		}
		return n
	case orb.Polygon:
		n := 0
		for _, r := range g {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range g {
			n += pointCount(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, m := range g {
			n += pointCount(m)
		}
		return n
	default:
		return 0
	}
}

// supported reports whether geom has a WKB representation the destination accepts
func supported(geom orb.Geometry) bool {
	switch geom.(type) {
	case orb.Point, orb.MultiPoint, orb.LineString, orb.MultiLineString,
		orb.Polygon, orb.MultiPolygon, orb.Collection:
		return true
	default:
		return false
	}
}
