// internal/wfs/decoder.go - GeoJSON response decoding
package wfs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb/geojson"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/pkg/feature"
)

func init() {
	geojson.CustomJSONUnmarshaler = numberJSON{}
}

// numberJSON decodes JSON numbers as json.Number so attribute values and
// ids keep their exact digits when they are encoded again
type numberJSON struct{}

// Unmarshal decodes exactly one JSON value from data into v
func (numberJSON) Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}

// Decode parses a GetFeature response body into features, preserving
// source order. Exception reports and other non-JSON bodies are decode errors.
func Decode(data []byte, swapAxes bool) ([]feature.Feature, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, internal.NewError(internal.ErrorCodeDecode, "empty response body", nil)
	}
	if trimmed[0] == '<' {
		return nil, internal.NewError(internal.ErrorCodeDecode,
			fmt.Sprintf("expected GeoJSON, got XML: %s", truncate(trimmed, 200)), nil)
	}

	fc, err := geojson.UnmarshalFeatureCollection(trimmed)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeDecode, "invalid GeoJSON feature collection", err)
	}

	features := feature.FromCollection(fc)
	if swapAxes {
		for i := range features {
			features[i].Geometry = feature.SwapAxes(features[i].Geometry)
		}
	}

	return features, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
