// cmd/dump.go - Full extraction command
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/batch"
	"github.com/valpere/wfs_dump/internal/config"
	"github.com/valpere/wfs_dump/internal/loader"
	"github.com/valpere/wfs_dump/internal/logger"
	"github.com/valpere/wfs_dump/internal/metrics"
	"github.com/valpere/wfs_dump/internal/output"
	"github.com/valpere/wfs_dump/internal/projection"
	"github.com/valpere/wfs_dump/internal/tile"
	"github.com/valpere/wfs_dump/internal/wfs"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <wfs-url> <layer>",
	Short: "Load every feature of a WFS layer into PostGIS",
	Long: `Load every feature of a WFS layer into a PostGIS table.

The extent given by --bbox is split into tiles at zoom --z. Each tile is fetched
with one GetFeature request and the features whose centroid lies strictly
inside the tile are inserted in one transaction. Tiles that fail are listed at
the end; the command exits with a non-zero status when any tile failed.

The destination table must exist and have a geometry column and a jsonb
attributes column, for example:

  CREATE TABLE public.wfs_dump (geom geometry, attributes jsonb);

Drivers:
  pgx     native protocol, one batched transaction per tile (default)
  pq      database/sql with lib/pq, one prepared statement per tile
  script  write BEGIN/INSERT/COMMIT blocks to --script instead of connecting`,
	Args: cobra.ExactArgs(2),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	// Destination flags
	dumpCmd.Flags().String("connection", config.DefaultConnection, "database connection string")
	dumpCmd.Flags().String("output", config.DefaultTable, "destination table, [schema.]table")
	dumpCmd.Flags().String("columns", config.DefaultColumns, "geometry and attributes columns: 'geometry,attributes'")
	dumpCmd.Flags().String("driver", string(internal.DriverPgx), "destination driver (pgx, pq, script)")
	dumpCmd.Flags().String("script", "-", "script path for the script driver ('-' for stdout)")
	dumpCmd.Flags().Bool("compression", false, "gzip the script output")

	// Processing flags
	dumpCmd.Flags().Int("jobs", config.DefaultJobs, "number of tiles processed in parallel")
	dumpCmd.Flags().Int("large-tile-warning", 5000, "warn when a tile owns more features than this (0 disables)")
	dumpCmd.Flags().String("failed-tiles", "", "write the failed tiles, one z/x/y per line, to this file")

	// Progress and metrics flags
	dumpCmd.Flags().Bool("progress", true, "show progress bar")
	dumpCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address during the run, e.g. :9102")

	viper.BindPFlag("destination.connection", dumpCmd.Flags().Lookup("connection"))
	viper.BindPFlag("destination.table", dumpCmd.Flags().Lookup("output"))
	viper.BindPFlag("destination.columns", dumpCmd.Flags().Lookup("columns"))
	viper.BindPFlag("destination.driver", dumpCmd.Flags().Lookup("driver"))
	viper.BindPFlag("destination.script_path", dumpCmd.Flags().Lookup("script"))
	viper.BindPFlag("destination.compression", dumpCmd.Flags().Lookup("compression"))
	viper.BindPFlag("batch.jobs", dumpCmd.Flags().Lookup("jobs"))
	viper.BindPFlag("batch.large_tile_warning", dumpCmd.Flags().Lookup("large-tile-warning"))
	viper.BindPFlag("logging.progress", dumpCmd.Flags().Lookup("progress"))
	viper.BindPFlag("metrics.addr", dumpCmd.Flags().Lookup("metrics-addr"))
}

func runDump(cmd *cobra.Command, args []string) error {
	setSource(args)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cmd.SilenceUsage = true

	log := logger.Build(logger.FromConfig(cfg.Logging, "dump"), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bbox, err := cfg.BoundingBox()
	if err != nil {
		return err
	}
	grid, err := tile.GenerateGrid(bbox, cfg.Grid.Zoom)
	if err != nil {
		return fmt.Errorf("failed to generate tile grid: %w", err)
	}

	projector := projection.NewProjector()
	if err := projector.Validate(cfg.TargetCRS()); err != nil {
		return err
	}

	ld, err := loader.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create loader: %w", err)
	}
	defer func() {
		if err := ld.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close destination")
		}
	}()

	if err := ld.Ping(ctx); err != nil {
		return err
	}

	// Metrics are optional and only live as long as the run
	var recorder batch.Recorder
	if cfg.Metrics.Addr != "" {
		provider := metrics.New()
		recorder = provider
		go func() {
			if err := provider.Serve(ctx, cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				log.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics server failed")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Str("path", cfg.Metrics.Path).Msg("serving metrics")
	}

	var reporter batch.ProgressReporter
	if cfg.Logging.Progress {
		reporter = NewBarProgressReporter(os.Stderr)
	}

	processor := batch.NewProcessor(wfs.NewHTTPFetcher(cfg), projector, ld, batch.Options{
		BaseURL:          cfg.WFS.URL,
		Layer:            cfg.WFS.Layer,
		TargetCRS:        cfg.TargetCRS(),
		SRSName:          cfg.WFS.SRSName,
		SwapAxes:         cfg.WFS.SwapAxes,
		LargeTileWarning: cfg.Batch.LargeTileWarning,
		Logger:           log,
		Reporter:         reporter,
		Recorder:         recorder,
	})

	report, err := processor.Run(ctx, grid, cfg.Batch.Jobs)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	printSummary(os.Stdout, report)

	if path, _ := cmd.Flags().GetString("failed-tiles"); path != "" && len(report.Failures) > 0 {
		if err := writeFailedTiles(path, report); err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to write failed tiles")
		}
	}

	if report.Canceled {
		return fmt.Errorf("run canceled after %d of %d tiles", report.ProcessedTiles, report.TotalTiles)
	}
	if report.FailedTiles > 0 {
		return fmt.Errorf("%d of %d tiles failed", report.FailedTiles, report.TotalTiles)
	}

	return nil
}

// printSummary writes the final run report for the operator
func printSummary(w io.Writer, report *batch.RunReport) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tiles: %d (processed %d, empty %d)\n", report.TotalTiles, report.ProcessedTiles, report.EmptyTiles)
	fmt.Fprintf(w, "Features loaded: %d (skipped %d owned by other tiles)\n", report.FeaturesLoaded, report.FeaturesSkipped)
	fmt.Fprintf(w, "Tiles with errors: %d\n", report.FailedTiles)

	if len(report.Failures) > 0 {
		codes := report.StatusCodes()
		if len(codes) > 0 {
			parts := make([]string, len(codes))
			for i, c := range codes {
				parts[i] = strconv.Itoa(c)
			}
			fmt.Fprintf(w, "Status codes: %s\n", strings.Join(parts, ","))
		}

		groups := report.ByKind()
		for _, kind := range report.Classes() {
			fmt.Fprintf(w, "  %s: %d\n", kind, len(groups[kind]))
		}
	}

	fmt.Fprintf(w, "Duration: %v (%.2f tiles/second)\n", report.Duration.Round(time.Millisecond), report.Throughput())
	if report.Canceled {
		fmt.Fprintln(w, "Run was canceled before all tiles were dispatched")
	}
}

// writeFailedTiles lists failed tiles so they can be re-fetched with the fetch command
func writeFailedTiles(path string, report *batch.RunReport) error {
	dest, err := output.OpenDestination(path, false)
	if err != nil {
		return err
	}
	for _, f := range report.Failures {
		if _, err := fmt.Fprintf(dest, "%s\t%s\t%d\n", f.Tile, f.Kind, f.StatusCode); err != nil {
			dest.Close()
			return err
		}
	}
	return dest.Close()
}
