// internal/batch/processor.go - Tile pipeline orchestration
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/loader"
	"github.com/valpere/wfs_dump/internal/logger"
	"github.com/valpere/wfs_dump/internal/projection"
	"github.com/valpere/wfs_dump/internal/tile"
	"github.com/valpere/wfs_dump/internal/wfs"
	"github.com/valpere/wfs_dump/pkg/feature"
)

// Outcome labels for tiles that did not fail
const (
	OutcomeLoaded = "loaded"
	OutcomeEmpty  = "empty"
)

// Options configures what is requested for every tile
type Options struct {
	BaseURL          string
	Layer            string
	TargetCRS        tile.CRS
	SRSName          bool
	SwapAxes         bool
	LargeTileWarning int
	Logger           zerolog.Logger
	Reporter         ProgressReporter
	Recorder         Recorder
}

// Processor drives project, fetch, decode, filter, encode and load for every
// tile of a grid under a fixed concurrency limit
type Processor struct {
	fetcher   wfs.Fetcher
	projector *projection.Projector
	loader    loader.Loader
	opts      Options
}

// NewProcessor creates a processor with the specified components
func NewProcessor(fetcher wfs.Fetcher, projector *projection.Projector, ld loader.Loader, opts Options) *Processor {
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.TargetCRS == 0 {
		opts.TargetCRS = tile.CRSGeographic
	}
	return &Processor{
		fetcher:   fetcher,
		projector: projector,
		loader:    ld,
		opts:      opts,
	}
}

// runState is the state shared between workers of one run
type runState struct {
	mu       sync.Mutex
	failures []TileFailure

	processed atomic.Int64
	loaded    atomic.Int64
	skipped   atomic.Int64
	empty     atomic.Int64
	canceled  atomic.Int64
}

func (s *runState) fail(f TileFailure) {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
}

// Run processes every tile of grid with at most concurrency tiles in flight.
// Only configuration problems found before the first tile is dispatched are
// returned as errors; tile failures end up in the report. Once ctx is
// cancelled no further tiles are dispatched. The report is marked canceled
// only when tiles were left undispatched or a tile was interrupted.
func (p *Processor) Run(ctx context.Context, grid *tile.Grid, concurrency int) (*RunReport, error) {
	if concurrency < 1 {
		return nil, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("concurrency must be positive, got %d", concurrency), nil)
	}
	if grid == nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "tile grid is required", nil)
	}
	if err := grid.Validate(); err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "invalid tile grid", err)
	}
	if err := p.projector.Validate(p.opts.TargetCRS); err != nil {
		return nil, err
	}

	start := time.Now()
	total := grid.Count()
	state := &runState{}
	log := p.opts.Logger

	log.Info().
		Int64("tiles", total).
		Int("zoom", grid.Zoom).
		Int("jobs", concurrency).
		Str("layer", p.opts.Layer).
		Str("crs", p.opts.TargetCRS.String()).
		Msg("starting run")
	p.opts.Reporter.Start(total)

	workers := pool.New().WithMaxGoroutines(concurrency)
	dispatched := int64(0)
	stopped := false
	grid.Each(func(t tile.Tile) bool {
		if ctx.Err() != nil {
			stopped = true
			return false
		}
		dispatched++
		workers.Go(func() {
			outcome := p.processTile(ctx, t)
			p.record(state, outcome)
		})
		return true
	})
	workers.Wait()

	report := &RunReport{
		TotalTiles:      total,
		ProcessedTiles:  state.processed.Load(),
		FailedTiles:     int64(len(state.failures)),
		EmptyTiles:      state.empty.Load(),
		FeaturesLoaded:  state.loaded.Load(),
		FeaturesSkipped: state.skipped.Load(),
		Failures:        state.failures,
		Canceled:        stopped || state.canceled.Load() > 0,
		Duration:        time.Since(start),
	}

	event := log.Info()
	if report.HasFailures() {
		event = log.Warn()
	}
	event.
		Int64("tiles", report.TotalTiles).
		Int64("dispatched", dispatched).
		Int64("processed", report.ProcessedTiles).
		Int64("failed", report.FailedTiles).
		Int64("features", report.FeaturesLoaded).
		Bool("canceled", report.Canceled).
		Dur("duration", report.Duration).
		Msg("run finished")
	p.opts.Reporter.Finish(report)

	return report, nil
}

// record folds one tile outcome into the shared run state
func (p *Processor) record(state *runState, outcome *TileOutcome) {
	state.processed.Add(1)
	state.skipped.Add(int64(outcome.Skipped))

	switch {
	case outcome.Failed():
		state.fail(*outcome.Failure)
		if outcome.Failure.Kind == internal.ErrorCodeCanceled {
			state.canceled.Add(1)
		}
		p.opts.Recorder.ObserveTile(outcome.Failure.Kind, outcome.Duration)
	case outcome.Loaded == 0:
		state.empty.Add(1)
		p.opts.Recorder.ObserveTile(OutcomeEmpty, outcome.Duration)
	default:
		state.loaded.Add(int64(outcome.Loaded))
		p.opts.Recorder.ObserveTile(OutcomeLoaded, outcome.Duration)
	}
	p.opts.Recorder.AddFeatures("loaded", outcome.Loaded)
	p.opts.Recorder.AddFeatures("skipped", outcome.Skipped)
	p.opts.Recorder.AddFeatures("rejected", outcome.Rejected)

	p.opts.Reporter.TileComplete(outcome)
}

// processTile runs the pipeline of one tile. It never panics and never
// returns an error; every failure is folded into the outcome.
func (p *Processor) processTile(ctx context.Context, t tile.Tile) (outcome *TileOutcome) {
	start := time.Now()
	log := logger.ForTile(p.opts.Logger, t)
	outcome = &TileOutcome{Tile: t}

	defer func() {
		if r := recover(); r != nil {
			outcome.Failure = &TileFailure{
				Tile:   t,
				Kind:   internal.ErrorCodeInternal,
				Detail: fmt.Sprintf("panic: %v", r),
			}
		}
		outcome.Duration = time.Since(start)
		if outcome.Failure != nil {
			log.Error().
				Str("kind", outcome.Failure.Kind).
				Int("status", outcome.Failure.StatusCode).
				Str("detail", outcome.Failure.Detail).
				Msg("tile failed")
		}
	}()

	if err := p.runTile(ctx, t, outcome, log); err != nil {
		outcome.Failure = failureOf(t, err)
	}
	return outcome
}

// Extraction is the owned feature set of one tile, before encoding
type Extraction struct {
	Tile      tile.Tile
	Extent    tile.BoundingBox
	Owned     []feature.Feature
	Received  int
	Skipped   int
	Size      int
	FetchTime time.Duration
}

// Extract projects, fetches, decodes and filters one tile
func (p *Processor) Extract(ctx context.Context, t tile.Tile) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extent, err := p.projector.Project(t.Bound(), tile.CRSGeographic, p.opts.TargetCRS)
	if err != nil {
		return nil, err
	}

	requestURL, err := wfs.BuildGetFeatureURL(p.opts.BaseURL, p.opts.Layer, extent, p.opts.TargetCRS, p.opts.SRSName)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "cannot build GetFeature URL", err)
	}

	resp, err := p.fetcher.Fetch(ctx, &wfs.Request{Tile: t, Extent: extent, URL: requestURL})
	if resp != nil {
		p.opts.Recorder.ObserveFetch(resp.FetchTime)
	}
	if err != nil {
		return nil, err
	}

	features, err := wfs.Decode(resp.Data, p.opts.SwapAxes)
	if err != nil {
		return nil, err
	}

	owned, skipped := feature.Filter(features, feature.Extent{
		MinX: extent.MinX, MinY: extent.MinY, MaxX: extent.MaxX, MaxY: extent.MaxY,
	})

	return &Extraction{
		Tile:      t,
		Extent:    extent,
		Owned:     owned,
		Received:  len(features),
		Skipped:   skipped,
		Size:      resp.Size,
		FetchTime: resp.FetchTime,
	}, nil
}

func (p *Processor) runTile(ctx context.Context, t tile.Tile, outcome *TileOutcome, log zerolog.Logger) error {
	ex, err := p.Extract(ctx, t)
	if err != nil {
		return err
	}
	outcome.Received = ex.Received
	outcome.Skipped = ex.Skipped

	log.Debug().
		Int("received", ex.Received).
		Int("owned", len(ex.Owned)).
		Int("bytes", ex.Size).
		Dur("fetch", ex.FetchTime).
		Msg("tile fetched")

	if len(ex.Owned) == 0 {
		return nil
	}
	if p.opts.LargeTileWarning > 0 && len(ex.Owned) > p.opts.LargeTileWarning {
		log.Warn().Int("features", len(ex.Owned)).Msg("tile has many features, consider a higher zoom")
	}

	rows, encErrs := feature.EncodeAll(ex.Owned, int(p.opts.TargetCRS))
	outcome.Rejected = len(encErrs)
	for _, encErr := range encErrs {
		log.Warn().Err(encErr).Msg("feature skipped")
	}
	if len(rows) == 0 {
		return internal.NewError(internal.ErrorCodeEncoding,
			fmt.Sprintf("all %d owned features failed to encode", len(ex.Owned)), multierr.Combine(encErrs...))
	}

	loaded, err := p.loader.LoadTile(ctx, t, rows)
	if err != nil {
		return err
	}
	outcome.Loaded = loaded

	return nil
}

// failureOf classifies err into a failure record
func failureOf(t tile.Tile, err error) *TileFailure {
	return &TileFailure{
		Tile:       t,
		Kind:       internal.CodeOf(err),
		StatusCode: internal.StatusCodeOf(err),
		Detail:     err.Error(),
	}
}
