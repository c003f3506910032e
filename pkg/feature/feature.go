// pkg/feature/feature.go - In-memory feature model
package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is one source record: a geometry plus its attribute bag
type Feature struct {
	ID         interface{}            `json:"id,omitempty"`
	Geometry   orb.Geometry           `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FromGeoJSON converts a decoded GeoJSON feature
func FromGeoJSON(f *geojson.Feature) Feature {
	return Feature{
		ID:         f.ID,
		Geometry:   f.Geometry,
		Properties: map[string]interface{}(f.Properties),
	}
}

// ToGeoJSON converts the feature back into a GeoJSON feature
func (f Feature) ToGeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.ID
	if f.Properties != nil {
		gf.Properties = geojson.Properties(f.Properties)
	}
	return gf
}

// FromCollection converts every feature of a collection, preserving order
func FromCollection(fc *geojson.FeatureCollection) []Feature {
	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		features = append(features, FromGeoJSON(f))
	}
	return features
}
