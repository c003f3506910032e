// internal/wfs/request.go - WFS GetFeature request construction
package wfs

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/valpere/wfs_dump/internal/tile"
)

// Protocol constants for GetFeature requests
const (
	ServiceName  = "WFS"
	Version      = "2.0.0"
	OutputFormat = "application/json"
)

// BuildGetFeatureParams returns the query parameters for one tile request
func BuildGetFeatureParams(layer string, extent tile.BoundingBox, crs tile.CRS, includeSRSName bool) url.Values {
	params := url.Values{}
	params.Set("SERVICE", ServiceName)
	params.Set("VERSION", Version)
	params.Set("REQUEST", "GetFeature")
	params.Set("TYPENAME", layer)
	params.Set("OUTPUTFORMAT", OutputFormat)
	params.Set("BBOX", formatBBox(extent, crs))
	if includeSRSName {
		params.Set("SRSNAME", crs.String())
	}
	return params
}

// BuildGetFeatureURL merges the GetFeature parameters into the service base URL.
// Parameters already present on the base URL (map, vendor keys) are kept unless
// they collide with a GetFeature parameter.
func BuildGetFeatureURL(baseURL, layer string, extent tile.BoundingBox, crs tile.CRS, includeSRSName bool) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid WFS URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid WFS URL %q: scheme and host are required", baseURL)
	}

	query := u.Query()
	for key := range query {
		if isReservedParam(key) {
			query.Del(key)
		}
	}
	for key, values := range BuildGetFeatureParams(layer, extent, crs, includeSRSName) {
		query[key] = values
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// formatBBox renders minX,minY,maxX,maxY,EPSG:code
func formatBBox(b tile.BoundingBox, crs tile.CRS) string {
	return strings.Join([]string{
		strconv.FormatFloat(b.MinX, 'f', -1, 64),
		strconv.FormatFloat(b.MinY, 'f', -1, 64),
		strconv.FormatFloat(b.MaxX, 'f', -1, 64),
		strconv.FormatFloat(b.MaxY, 'f', -1, 64),
		crs.String(),
	}, ",")
}

func isReservedParam(key string) bool {
	switch strings.ToUpper(key) {
	case "SERVICE", "VERSION", "REQUEST", "TYPENAME", "TYPENAMES", "OUTPUTFORMAT", "BBOX", "SRSNAME":
		return true
	default:
		return false
	}
}
