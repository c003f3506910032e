// internal/wfs/fetcher_test.go - Unit tests for the HTTP fetcher
package wfs

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/config"
)

const sampleCollection = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":1,"geometry":{"type":"Point","coordinates":[10,20]},"properties":{"name":"a"}},
{"type":"Feature","id":2,"geometry":{"type":"Point","coordinates":[11,21]},"properties":{"name":"b"}}]}`

func testConfig() *config.Config {
	return &config.Config{
		WFS:     config.WFSConfig{Timeout: 5 * time.Second, Headers: map[string]string{"X-Api-Key": "secret"}},
		Batch:   config.BatchConfig{Jobs: 2},
		Network: config.NetworkConfig{UserAgent: "wfs-dump-test", TLSHandshakeTimeout: time.Second},
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotHeaders http.Header
	var gotClose bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotClose = r.Close
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleCollection))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(testConfig())
	resp, err := fetcher.Fetch(context.Background(), &Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Size != len(sampleCollection) {
		t.Errorf("Expected size %d, got %d", len(sampleCollection), resp.Size)
	}
	if !gotClose {
		t.Error("Expected the request to ask for connection close")
	}
	if gotHeaders.Get("User-Agent") != "wfs-dump-test" {
		t.Errorf("Unexpected User-Agent %q", gotHeaders.Get("User-Agent"))
	}
	if gotHeaders.Get("X-Api-Key") != "secret" {
		t.Errorf("Expected configured header to be sent, got %q", gotHeaders.Get("X-Api-Key"))
	}
	if gotHeaders.Get("Accept") != OutputFormat {
		t.Errorf("Unexpected Accept %q", gotHeaders.Get("Accept"))
	}
}

func TestHTTPFetcher_Gzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(sampleCollection))
		_ = gz.Close()
	}))
	defer server.Close()

	resp, err := NewHTTPFetcher(testConfig()).Fetch(context.Background(), &Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(resp.Data) != sampleCollection {
		t.Errorf("Expected decompressed body, got %q", resp.Data)
	}
}

func TestHTTPFetcher_StatusError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", status)
			}))
			defer server.Close()

			resp, err := NewHTTPFetcher(testConfig()).Fetch(context.Background(), &Request{URL: server.URL})
			if err == nil {
				t.Fatal("Expected error")
			}
			if internal.CodeOf(err) != internal.ErrorCodeFetch {
				t.Errorf("Expected %s, got %s", internal.ErrorCodeFetch, internal.CodeOf(err))
			}
			if internal.StatusCodeOf(err) != status {
				t.Errorf("Expected status %d, got %d", status, internal.StatusCodeOf(err))
			}
			if !strings.Contains(err.Error(), "boom") {
				t.Errorf("Expected the response body in the error, got %v", err)
			}
			if resp == nil || resp.StatusCode != status {
				t.Errorf("Expected response with status %d, got %+v", status, resp)
			}
		})
	}
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	_, err := NewHTTPFetcher(testConfig()).Fetch(context.Background(), &Request{URL: serverURL})
	if internal.CodeOf(err) != internal.ErrorCodeFetch {
		t.Errorf("Expected %s, got %v", internal.ErrorCodeFetch, err)
	}
	if internal.StatusCodeOf(err) != 0 {
		t.Errorf("Expected no status code, got %d", internal.StatusCodeOf(err))
	}
}

func TestHTTPFetcher_Canceled(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := NewHTTPFetcher(testConfig()).Fetch(ctx, &Request{URL: server.URL})
	if internal.CodeOf(err) != internal.ErrorCodeCanceled {
		t.Errorf("Expected %s, got %v", internal.ErrorCodeCanceled, err)
	}
}
