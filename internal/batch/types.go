// internal/batch/types.go - Run orchestration types
package batch

import (
	"sort"
	"time"

	"github.com/valpere/wfs_dump/internal/tile"
)

// TileFailure records why one tile could not be loaded
type TileFailure struct {
	Tile       tile.Tile `json:"tile"`
	Kind       string    `json:"kind"`
	StatusCode int       `json:"status_code,omitempty"`
	Detail     string    `json:"detail"`
}

// TileOutcome is the result of processing one tile
type TileOutcome struct {
	Tile     tile.Tile     `json:"tile"`
	Received int           `json:"received"`
	Loaded   int           `json:"loaded"`
	Skipped  int           `json:"skipped"`
	Rejected int           `json:"rejected"`
	Duration time.Duration `json:"duration"`
	Failure  *TileFailure  `json:"failure,omitempty"`
}

// Failed reports whether the tile ended in a failure
func (o *TileOutcome) Failed() bool {
	return o.Failure != nil
}

// RunReport summarises a whole run
type RunReport struct {
	TotalTiles      int64         `json:"total_tiles"`
	ProcessedTiles  int64         `json:"processed_tiles"`
	FailedTiles     int64         `json:"failed_tiles"`
	EmptyTiles      int64         `json:"empty_tiles"`
	FeaturesLoaded  int64         `json:"features_loaded"`
	FeaturesSkipped int64         `json:"features_skipped"`
	Failures        []TileFailure `json:"failures"`
	Canceled        bool          `json:"canceled"`
	Duration        time.Duration `json:"duration"`
}

// ByKind groups failures by their classification
func (r *RunReport) ByKind() map[string][]TileFailure {
	groups := make(map[string][]TileFailure)
	for _, f := range r.Failures {
		groups[f.Kind] = append(groups[f.Kind], f)
	}
	return groups
}

// StatusCodes returns the distinct HTTP status codes among failures, sorted
func (r *RunReport) StatusCodes() []int {
	seen := make(map[int]bool)
	var codes []int
	for _, f := range r.Failures {
		if f.StatusCode == 0 || seen[f.StatusCode] {
			continue
		}
		seen[f.StatusCode] = true
		codes = append(codes, f.StatusCode)
	}
	sort.Ints(codes)
	return codes
}

// Classes returns the distinct failure kinds, sorted
func (r *RunReport) Classes() []string {
	groups := r.ByKind()
	classes := make([]string, 0, len(groups))
	for kind := range groups {
		classes = append(classes, kind)
	}
	sort.Strings(classes)
	return classes
}

// HasFailures reports whether any tile failed or the run was cut short
func (r *RunReport) HasFailures() bool {
	return r.FailedTiles > 0 || r.Canceled
}

// Throughput returns processed tiles per second
func (r *RunReport) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.ProcessedTiles) / r.Duration.Seconds()
}

// ProgressReporter receives run progress; calls may come from several workers
type ProgressReporter interface {
	Start(total int64)
	TileComplete(outcome *TileOutcome)
	Finish(report *RunReport)
}

// Recorder receives per-tile measurements
type Recorder interface {
	ObserveTile(outcome string, duration time.Duration)
	ObserveFetch(duration time.Duration)
	AddFeatures(result string, n int)
}

type nopReporter struct{}

func (nopReporter) Start(int64)               {}
func (nopReporter) TileComplete(*TileOutcome) {}
func (nopReporter) Finish(*RunReport)         {}

type nopRecorder struct{}

func (nopRecorder) ObserveTile(string, time.Duration) {}
func (nopRecorder) ObserveFetch(time.Duration)        {}
func (nopRecorder) AddFeatures(string, int)           {}
