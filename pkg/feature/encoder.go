// pkg/feature/encoder.go - Geometry and attribute encoding for loading
package feature

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb/encoding/wkb"
)

// EncodedRow is a feature ready for insertion
type EncodedRow struct {
	WKB        []byte `json:"wkb"`
	Attributes []byte `json:"attributes"`
	SRID       int    `json:"srid"`
}

// EncodingError reports a single feature that could not be encoded
type EncodingError struct {
	Index int
	Cause error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("feature %d: %v", e.Index, e.Cause)
}

// Unwrap returns the underlying cause
func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// Encode serializes the geometry to WKB and the properties to a JSON document.
// The feature id is stored under "id" unless the properties already have one.
func Encode(f Feature, srid int) (EncodedRow, error) {
	if f.Geometry == nil {
		return EncodedRow{}, fmt.Errorf("feature has no geometry")
	}
	if !supported(f.Geometry) {
		return EncodedRow{}, fmt.Errorf("unsupported geometry type %s", f.Geometry.GeoJSONType())
	}

	geom, err := wkb.Marshal(f.Geometry, binary.LittleEndian)
	if err != nil {
		return EncodedRow{}, fmt.Errorf("failed to encode geometry: %w", err)
	}

	attrs, err := EncodeAttributes(withID(f.Properties, f.ID))
	if err != nil {
		return EncodedRow{}, err
	}

	return EncodedRow{WKB: geom, Attributes: attrs, SRID: srid}, nil
}

// EncodeAll encodes every feature, skipping the ones that fail. The returned
// errors are one *EncodingError per skipped feature.
func EncodeAll(features []Feature, srid int) ([]EncodedRow, []error) {
	rows := make([]EncodedRow, 0, len(features))
	var errs []error
	for i, f := range features {
		row, err := Encode(f, srid)
		if err != nil {
			errs = append(errs, &EncodingError{Index: i, Cause: err})
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

// EncodeAttributes writes properties as a JSON object. Nested objects and
// arrays are kept as-is; HTML characters are not escaped.
func EncodeAttributes(props map[string]interface{}) ([]byte, error) {
	if props == nil {
		props = map[string]interface{}{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(props); err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// withID returns props with id added under "id", copying rather than
// mutating the caller's map
func withID(props map[string]interface{}, id interface{}) map[string]interface{} {
	if id == nil {
		return props
	}
	if _, ok := props["id"]; ok {
		return props
	}
	out := make(map[string]interface{}, len(props)+1)
	for k, v := range props {
		out[k] = v
	}
	out["id"] = id
	return out
}

// HexWKB returns the geometry as a \x-prefixed hex bytea literal
func (r EncodedRow) HexWKB() string {
	return `\x` + hex.EncodeToString(r.WKB)
}

// EscapeLiteral doubles single quotes so s can sit inside a quoted SQL literal
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
