// internal/wfs/types.go - WFS fetch types
package wfs

import (
	"context"
	"net/http"
	"time"

	"github.com/valpere/wfs_dump/internal/tile"
)

// Request is a GetFeature request for one tile
type Request struct {
	Tile    tile.Tile         `json:"tile"`
	Extent  tile.BoundingBox  `json:"extent"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Response is the raw answer of the WFS server for one tile
type Response struct {
	Request    *Request      `json:"request"`
	Data       []byte        `json:"data"`
	Headers    http.Header   `json:"headers"`
	StatusCode int           `json:"status_code"`
	Size       int           `json:"size"`
	FetchTime  time.Duration `json:"fetch_time"`
}

// Fetcher retrieves the raw feature payload of one tile
type Fetcher interface {
	Fetch(ctx context.Context, request *Request) (*Response, error)
}
