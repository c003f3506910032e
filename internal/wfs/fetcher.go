// internal/wfs/fetcher.go - GetFeature fetching implementation
package wfs

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/config"
)

// HTTPFetcher implements the Fetcher interface using HTTP requests.
// Each request uses a fresh connection which is closed once the body is read.
type HTTPFetcher struct {
	client    *http.Client
	headers   map[string]string
	userAgent string
}

// NewHTTPFetcher creates a new HTTP-based feature fetcher
func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	transport := &http.Transport{
		DisableKeepAlives:   true,
		TLSHandshakeTimeout: cfg.Network.TLSHandshakeTimeout,
		MaxConnsPerHost:     cfg.Batch.Jobs,
	}

	// Configure proxy if specified, falling back to the environment
	transport.Proxy = http.ProxyFromEnvironment
	if cfg.Network.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.Network.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{
		Timeout:   cfg.WFS.Timeout,
		Transport: transport,
	}

	return NewHTTPFetcherWithClient(client, cfg.WFS.Headers, cfg.Network.UserAgent)
}

// NewHTTPFetcherWithClient creates a fetcher around an existing client
func NewHTTPFetcherWithClient(client *http.Client, headers map[string]string, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = "wfs-dump/1.0"
	}
	return &HTTPFetcher{
		client:    client,
		headers:   headers,
		userAgent: userAgent,
	}
}

// Fetch retrieves the features of a single tile. Any non-2xx status is
// returned as a fetch error carrying the status code; there is no retry.
func (f *HTTPFetcher) Fetch(ctx context.Context, request *Request) (*Response, error) {
	start := time.Now()

	req, err := f.buildHTTPRequest(ctx, request)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeFetch, "failed to build HTTP request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, internal.NewError(internal.ErrorCodeCanceled, "request canceled", ctxErr)
		}
		return nil, internal.NewError(internal.ErrorCodeFetch, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	response := &Response{
		Request:    request,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body so the failure message is useful in logs
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		response.FetchTime = time.Since(start)
		return response, internal.NewStatusError(resp.StatusCode,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	// Handle compressed responses
	var reader io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return response, internal.NewError(internal.ErrorCodeFetch, "failed to create gzip reader", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return response, internal.NewError(internal.ErrorCodeCanceled, "request canceled", err)
		}
		return response, internal.NewError(internal.ErrorCodeFetch, "failed to read response body", err)
	}

	response.Data = data
	response.Size = len(data)
	response.FetchTime = time.Since(start)

	return response, nil
}

// buildHTTPRequest constructs an HTTP request from a tile request
func (f *HTTPFetcher) buildHTTPRequest(ctx context.Context, wfsReq *Request) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wfsReq.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Close = true

	// Set default headers
	req.Header.Set("Accept", OutputFormat)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Connection", "close")
	req.Header.Set("User-Agent", f.userAgent)

	// Add service-level headers from configuration
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	// Add request-specific headers
	for key, value := range wfsReq.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}
