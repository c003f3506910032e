// cmd/progress.go - Console progress reporting
package cmd

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/valpere/wfs_dump/internal/batch"
)

// BarProgressReporter draws a progress bar of completed tiles
type BarProgressReporter struct {
	out    io.Writer
	bar    *progressbar.ProgressBar
	failed atomic.Int64
}

// NewBarProgressReporter creates a reporter writing to out
func NewBarProgressReporter(out io.Writer) *BarProgressReporter {
	return &BarProgressReporter{out: out}
}

// Start creates the bar once the tile count is known
func (r *BarProgressReporter) Start(total int64) {
	r.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetWidth(25),
		progressbar.OptionSetDescription("tiles"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("tiles"),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionSetPredictTime(true),
	)
}

// TileComplete advances the bar; failed tiles are counted in the description
func (r *BarProgressReporter) TileComplete(outcome *batch.TileOutcome) {
	if r.bar == nil {
		return
	}
	if outcome.Failed() {
		n := r.failed.Add(1)
		r.bar.Describe(fmt.Sprintf("tiles (%d failed)", n))
	}
	_ = r.bar.Add(1)
}

// Finish completes the bar
func (r *BarProgressReporter) Finish(report *batch.RunReport) {
	if r.bar == nil {
		return
	}
	if !report.Canceled {
		_ = r.bar.Finish()
	}
	fmt.Fprintln(r.out)
}
