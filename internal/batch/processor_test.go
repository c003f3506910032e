// internal/batch/processor_test.go - Unit tests for run orchestration
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/projection"
	"github.com/valpere/wfs_dump/internal/tile"
	"github.com/valpere/wfs_dump/internal/wfs"
	"github.com/valpere/wfs_dump/pkg/feature"
)

// fakeFetcher answers every tile through a callback
type fakeFetcher struct {
	respond func(ctx context.Context, req *wfs.Request) ([]byte, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *wfs.Request) (*wfs.Response, error) {
	data, err := f.respond(ctx, req)
	if err != nil {
		return nil, err
	}
	return &wfs.Response{Request: req, Data: data, StatusCode: http.StatusOK, Size: len(data)}, nil
}

// fakeLoader records every tile it is asked to load
type fakeLoader struct {
	mu    sync.Mutex
	tiles map[tile.Tile]int
	calls int
	err   error
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{tiles: make(map[tile.Tile]int)}
}

func (l *fakeLoader) LoadTile(ctx context.Context, t tile.Tile, rows []feature.EncodedRow) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return 0, l.err
	}
	l.tiles[t] += len(rows)
	return len(rows), nil
}

func (l *fakeLoader) Ping(ctx context.Context) error { return nil }
func (l *fakeLoader) Close() error                   { return nil }

func (l *fakeLoader) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, c := range l.tiles {
		n += c
	}
	return n
}

// pointCollection returns a FeatureCollection of points
func pointCollection(points ...[2]float64) []byte {
	var parts []string
	for i, p := range points {
		parts = append(parts, fmt.Sprintf(
			`{"type":"Feature","id":%d,"geometry":{"type":"Point","coordinates":[%g,%g]},"properties":{"n":%d}}`,
			i, p[0], p[1], i))
	}
	return []byte(`{"type":"FeatureCollection","features":[` + strings.Join(parts, ",") + `]}`)
}

// center returns the midpoint of a tile's footprint
func center(t tile.Tile) [2]float64 {
	b := t.Bound()
	return [2]float64{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}
}

func newTestProcessor(fetcher wfs.Fetcher, ld *fakeLoader) *Processor {
	return NewProcessor(fetcher, projection.NewProjector(), ld, Options{
		BaseURL: "http://wfs.example.com/wfs",
		Layer:   "test:layer",
		Logger:  zerolog.New(io.Discard),
	})
}

func TestProcessor_HTTPFailureIsIsolated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bbox := r.URL.Query().Get("BBOX")
		// the north-west tile of the z1 grid fails
		if strings.HasPrefix(bbox, "-180,0,") {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		var minX, minY, maxX, maxY float64
		fmt.Sscanf(bbox, "%g,%g,%g,%g", &minX, &minY, &maxX, &maxY)
		_, _ = w.Write(pointCollection([2]float64{(minX + maxX) / 2, (minY + maxY) / 2}))
	}))
	defer server.Close()

	ld := newFakeLoader()
	fetcher := wfs.NewHTTPFetcherWithClient(server.Client(), nil, "test")
	p := NewProcessor(fetcher, projection.NewProjector(), ld, Options{
		BaseURL: server.URL,
		Layer:   "test:layer",
		Logger:  zerolog.New(io.Discard),
	})

	report, err := p.Run(context.Background(), tile.NewGrid(1, 0, 1, 0, 1), 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.TotalTiles != 4 || report.ProcessedTiles != 4 {
		t.Errorf("Expected 4 tiles processed, got %d/%d", report.ProcessedTiles, report.TotalTiles)
	}
	if report.FailedTiles != 1 {
		t.Fatalf("Expected 1 failed tile, got %d: %+v", report.FailedTiles, report.Failures)
	}
	failure := report.Failures[0]
	if failure.Kind != internal.ErrorCodeFetch || failure.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected FETCH_ERROR/500, got %s/%d", failure.Kind, failure.StatusCode)
	}
	if failure.Tile != (tile.Tile{Z: 1, X: 0, Y: 0}) {
		t.Errorf("Expected tile 1/0/0 to fail, got %s", failure.Tile)
	}
	if got := report.StatusCodes(); len(got) != 1 || got[0] != 500 {
		t.Errorf("Expected status codes [500], got %v", got)
	}
	if report.FeaturesLoaded != 3 || ld.total() != 3 {
		t.Errorf("Expected 3 features loaded, got report=%d loader=%d", report.FeaturesLoaded, ld.total())
	}
	if !report.HasFailures() {
		t.Error("Expected report to have failures")
	}
}

func TestProcessor_SharedFeatureLoadedOnce(t *testing.T) {
	// every tile query returns the same feature, as a WFS does for a feature
	// whose footprint crosses tile boundaries
	shared := [2]float64{10, 10}
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		return pointCollection(shared), nil
	}}
	ld := newFakeLoader()

	report, err := newTestProcessor(fetcher, ld).Run(context.Background(), tile.NewGrid(1, 0, 1, 0, 1), 4)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.FeaturesLoaded != 1 || ld.total() != 1 {
		t.Errorf("Expected the shared feature loaded once, got %d", ld.total())
	}
	if ld.tiles[tile.Tile{Z: 1, X: 1, Y: 0}] != 1 {
		t.Errorf("Expected tile 1/1/0 to own the feature, got %v", ld.tiles)
	}
	if report.FeaturesSkipped != 3 {
		t.Errorf("Expected 3 skipped copies, got %d", report.FeaturesSkipped)
	}
}

func TestProcessor_Extract(t *testing.T) {
	target := tile.Tile{Z: 1, X: 0, Y: 1}
	var requested string
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		requested = req.URL
		return pointCollection(center(target), [2]float64{90, 45}), nil
	}}

	ex, err := NewProcessor(fetcher, projection.NewProjector(), nil, Options{
		BaseURL: "http://wfs.example.com/wfs",
		Layer:   "test:layer",
		Logger:  zerolog.New(io.Discard),
	}).Extract(context.Background(), target)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if ex.Tile != target {
		t.Errorf("Expected tile %s, got %s", target, ex.Tile)
	}
	if ex.Received != 2 || len(ex.Owned) != 1 || ex.Skipped != 1 {
		t.Errorf("Expected 2 received, 1 owned, 1 skipped, got %d, %d, %d",
			ex.Received, len(ex.Owned), ex.Skipped)
	}
	if !strings.Contains(requested, "TYPENAME=test%3Alayer") {
		t.Errorf("Expected the layer in the request URL, got %s", requested)
	}
}

func TestProcessor_SingleWorker(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		if req.Tile.X == 3 {
			return nil, internal.NewStatusError(http.StatusBadGateway, "bad gateway")
		}
		return pointCollection(center(req.Tile)), nil
	}}
	ld := newFakeLoader()

	grid := tile.NewGrid(7, 0, 9, 0, 9)
	report, err := newTestProcessor(fetcher, ld).Run(context.Background(), grid, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if report.TotalTiles != 100 || report.ProcessedTiles != 100 {
		t.Errorf("Expected 100 tiles processed, got %d/%d", report.ProcessedTiles, report.TotalTiles)
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("Expected one tile at a time, saw %d", maxInFlight.Load())
	}
	if report.FailedTiles != 10 || report.FeaturesLoaded != 90 {
		t.Errorf("Expected 10 failures and 90 features, got %d and %d", report.FailedTiles, report.FeaturesLoaded)
	}
}

func TestProcessor_EmptyTilesSkipLoader(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		if req.Tile.X == 0 && req.Tile.Y == 0 {
			return pointCollection(center(req.Tile)), nil
		}
		// features returned by the query but centred elsewhere
		return pointCollection([2]float64{-170, 80}), nil
	}}
	ld := newFakeLoader()

	report, err := newTestProcessor(fetcher, ld).Run(context.Background(), tile.NewGrid(2, 0, 1, 0, 1), 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if ld.calls != 1 {
		t.Errorf("Expected only the owning tile to reach the loader, got %d calls", ld.calls)
	}
	if report.EmptyTiles != 3 {
		t.Errorf("Expected 3 empty tiles, got %d", report.EmptyTiles)
	}
}

func TestProcessor_FailureKinds(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		switch req.Tile.X {
		case 0:
			return []byte(`<ows:ExceptionReport/>`), nil
		case 1:
			panic("unexpected payload")
		default:
			return pointCollection(center(req.Tile)), nil
		}
	}}
	ld := newFakeLoader()
	ld.err = internal.NewError(internal.ErrorCodeLoad, "relation does not exist", nil)

	report, err := newTestProcessor(fetcher, ld).Run(context.Background(), tile.NewGrid(2, 0, 2, 0, 0), 3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	groups := report.ByKind()
	for _, kind := range []string{internal.ErrorCodeDecode, internal.ErrorCodeInternal, internal.ErrorCodeLoad} {
		if len(groups[kind]) != 1 {
			t.Errorf("Expected one %s failure, got %v", kind, groups)
		}
	}
	if got := report.Classes(); len(got) != 3 {
		t.Errorf("Expected 3 classes, got %v", got)
	}
}

func TestProcessor_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int32
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		if started.Add(1) == 2 {
			cancel()
		}
		<-ctx.Done()
		return nil, internal.NewError(internal.ErrorCodeCanceled, "request canceled", ctx.Err())
	}}
	ld := newFakeLoader()

	report, err := newTestProcessor(fetcher, ld).Run(ctx, tile.NewGrid(6, 0, 9, 0, 9), 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !report.Canceled {
		t.Error("Expected run to be marked canceled")
	}
	if report.ProcessedTiles >= report.TotalTiles {
		t.Errorf("Expected dispatch to stop early, processed %d of %d", report.ProcessedTiles, report.TotalTiles)
	}
	for _, f := range report.Failures {
		if f.Kind != internal.ErrorCodeCanceled {
			t.Errorf("Expected only canceled failures, got %s", f.Kind)
		}
	}
	if ld.calls != 0 {
		t.Errorf("Expected no loads, got %d", ld.calls)
	}
}

// cancelAfter cancels the run context once n tiles have completed
type cancelAfter struct {
	n      int64
	done   atomic.Int64
	cancel context.CancelFunc
}

func (r *cancelAfter) Start(int64) {}
func (r *cancelAfter) TileComplete(*TileOutcome) {
	if r.done.Add(1) == r.n {
		r.cancel()
	}
}
func (r *cancelAfter) Finish(*RunReport) {}

func TestProcessor_CancelAfterLastTileIsComplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grid := tile.NewGrid(1, 0, 1, 0, 1)
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		return pointCollection(), nil
	}}
	p := NewProcessor(fetcher, projection.NewProjector(), newFakeLoader(), Options{
		BaseURL:  "http://wfs.example.com/wfs",
		Layer:    "test:layer",
		Logger:   zerolog.New(io.Discard),
		Reporter: &cancelAfter{n: grid.Count(), cancel: cancel},
	})

	report, err := p.Run(ctx, grid, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("Expected the context to be canceled by the reporter")
	}
	if report.Canceled {
		t.Error("Expected a run that processed every tile not to be marked canceled")
	}
	if report.ProcessedTiles != grid.Count() || report.HasFailures() {
		t.Errorf("Expected %d clean tiles, got %d processed and %d failed",
			grid.Count(), report.ProcessedTiles, report.FailedTiles)
	}
}

func TestProcessor_ConfigErrors(t *testing.T) {
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		return nil, errors.New("must not be called")
	}}

	p := newTestProcessor(fetcher, newFakeLoader())
	if _, err := p.Run(context.Background(), tile.NewGrid(1, 0, 1, 0, 1), 0); !internal.IsConfigError(err) {
		t.Errorf("Expected configuration error for zero concurrency, got %v", err)
	}
	if _, err := p.Run(context.Background(), tile.NewGrid(1, 0, 2, 0, 1), 1); !internal.IsConfigError(err) {
		t.Errorf("Expected configuration error for out-of-lattice grid, got %v", err)
	}

	p = NewProcessor(fetcher, projection.NewProjector(), newFakeLoader(), Options{TargetCRS: 2154, Logger: zerolog.New(io.Discard)})
	if _, err := p.Run(context.Background(), tile.NewGrid(1, 0, 1, 0, 1), 1); internal.CodeOf(err) != internal.ErrorCodeProjection {
		t.Errorf("Expected projection error for unsupported CRS, got %v", err)
	}
}

func TestProcessor_Reprojected(t *testing.T) {
	var bbox atomic.Value
	fetcher := &fakeFetcher{respond: func(ctx context.Context, req *wfs.Request) ([]byte, error) {
		bbox.Store(req.Extent)
		b := req.Extent
		return pointCollection([2]float64{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}), nil
	}}
	ld := newFakeLoader()

	p := NewProcessor(fetcher, projection.NewProjector(), ld, Options{
		BaseURL:   "http://wfs.example.com/wfs",
		Layer:     "l",
		TargetCRS: projection.CRSWebMercator,
		Logger:    zerolog.New(io.Discard),
	})
	report, err := p.Run(context.Background(), tile.NewGrid(0, 0, 0, 0, 0), 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	extent := bbox.Load().(tile.BoundingBox)
	if extent.CRS != projection.CRSWebMercator || extent.MaxX < 2e7 {
		t.Errorf("Expected a web mercator extent, got %s", extent)
	}
	if report.FeaturesLoaded != 1 {
		t.Errorf("Expected 1 feature loaded in projected space, got %d", report.FeaturesLoaded)
	}
}

func TestRunReport(t *testing.T) {
	report := &RunReport{
		Failures: []TileFailure{
			{Kind: internal.ErrorCodeFetch, StatusCode: 503},
			{Kind: internal.ErrorCodeFetch, StatusCode: 500},
			{Kind: internal.ErrorCodeFetch, StatusCode: 503},
			{Kind: internal.ErrorCodeLoad},
		},
		FailedTiles:    4,
		ProcessedTiles: 10,
		Duration:       2 * time.Second,
	}

	if got := report.StatusCodes(); len(got) != 2 || got[0] != 500 || got[1] != 503 {
		t.Errorf("Expected [500 503], got %v", got)
	}
	if got := report.Classes(); len(got) != 2 || got[0] != internal.ErrorCodeFetch || got[1] != internal.ErrorCodeLoad {
		t.Errorf("Unexpected classes %v", got)
	}
	if got := report.Throughput(); got != 5 {
		t.Errorf("Expected 5 tiles/s, got %v", got)
	}
}
