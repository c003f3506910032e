// internal/output/formatter.go - GeoJSON and JSON rendering of owned features
package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
)

// NewFormatter returns the formatter for format. With metadata, documents
// carry the tile's fetch statistics.
func NewFormatter(format Format, pretty, metadata bool) (Formatter, error) {
	switch format {
	case FormatGeoJSON:
		return &GeoJSONFormatter{pretty: pretty, metadata: metadata}, nil
	case FormatJSON:
		return &JSONFormatter{pretty: pretty, metadata: metadata}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// GeoJSONFormatter renders owned features as a FeatureCollection
type GeoJSONFormatter struct {
	pretty   bool
	metadata bool
}

// Format renders one tile. Metadata goes into a foreign "_metadata" member and
// a "_tile" property on every feature.
func (f *GeoJSONFormatter) Format(t *TileFeatures) ([]byte, error) {
	fc := collect(t, f.metadata)
	if f.metadata {
		fc.ExtraMembers = geojson.Properties{"_metadata": tileSummary(t)}
	}
	return encode(fc, f.pretty)
}

// FormatBatch merges the tiles into one FeatureCollection, in tile order
func (f *GeoJSONFormatter) FormatBatch(tiles []*TileFeatures) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, t := range tiles {
		fc.Features = append(fc.Features, collect(t, f.metadata).Features...)
	}
	if f.metadata {
		fc.ExtraMembers = geojson.Properties{"_metadata": batchSummary(tiles)}
	}
	return encode(fc, f.pretty)
}

// ContentType returns the GeoJSON media type
func (f *GeoJSONFormatter) ContentType() string {
	return "application/geo+json"
}

// JSONFormatter renders {"tile", "features", "metadata"} objects
type JSONFormatter struct {
	pretty   bool
	metadata bool
}

// Format renders one tile object
func (f *JSONFormatter) Format(t *TileFeatures) ([]byte, error) {
	return encode(f.object(t), f.pretty)
}

// FormatBatch renders {"tiles": [...]} with an optional summary
func (f *JSONFormatter) FormatBatch(tiles []*TileFeatures) ([]byte, error) {
	objects := make([]map[string]interface{}, 0, len(tiles))
	for _, t := range tiles {
		objects = append(objects, f.object(t))
	}

	doc := map[string]interface{}{"tiles": objects}
	if f.metadata {
		doc["summary"] = batchSummary(tiles)
	}
	return encode(doc, f.pretty)
}

// ContentType returns the JSON media type
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

func (f *JSONFormatter) object(t *TileFeatures) map[string]interface{} {
	obj := map[string]interface{}{
		"tile":     t.Tile.String(),
		"features": collect(t, false),
	}
	if f.metadata {
		obj["metadata"] = t
	}
	return obj
}

// collect converts the owned features, optionally tagging each with its tile
func collect(t *TileFeatures, tag bool) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, feat := range t.Features {
		gf := feat.ToGeoJSON()
		if tag {
			props := make(geojson.Properties, len(gf.Properties)+1)
			for k, v := range gf.Properties {
				props[k] = v
			}
			props["_tile"] = t.Tile.String()
			gf.Properties = props
		}
		fc.Append(gf)
	}
	return fc
}

func tileSummary(t *TileFeatures) map[string]interface{} {
	return map[string]interface{}{
		"tile":          t.Tile.String(),
		"extent":        t.Extent,
		"feature_count": len(t.Features),
		"received":      t.Received,
		"skipped":       t.Skipped,
		"size_bytes":    t.Size,
		"fetch_time":    t.FetchTime.String(),
	}
}

func batchSummary(tiles []*TileFeatures) map[string]interface{} {
	var owned, received int
	for _, t := range tiles {
		owned += len(t.Features)
		received += t.Received
	}
	return map[string]interface{}{
		"total_tiles":    len(tiles),
		"total_features": owned,
		"received":       received,
		"generated_at":   time.Now().UTC(),
	}
}

func encode(v interface{}, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
