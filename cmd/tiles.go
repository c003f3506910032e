// cmd/tiles.go - Tile grid listing command
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/wfs_dump/internal/config"
	"github.com/valpere/wfs_dump/internal/projection"
	"github.com/valpere/wfs_dump/internal/tile"
)

// tilesCmd represents the tiles command
var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Show the tile grid of a run without fetching anything",
	Long: `Show the tile grid that dump would process for --bbox and --z.

By default only the tile count and the grid extent are printed. With --list
every tile is printed as z/x/y followed by its request extent in the --epsg CRS.`,
	Args: cobra.NoArgs,
	RunE: runTiles,
}

func init() {
	rootCmd.AddCommand(tilesCmd)

	tilesCmd.Flags().Bool("list", false, "print every tile with its request extent")
}

func runTiles(cmd *cobra.Command, args []string) error {
	bbox, err := config.ParseBBox(viper.GetString("grid.bbox"))
	if err != nil {
		return err
	}

	grid, err := tile.GenerateGrid(bbox, viper.GetInt("grid.zoom"))
	if err != nil {
		return err
	}

	crs := tile.CRS(viper.GetInt("grid.epsg"))
	projector := projection.NewProjector()
	if err := projector.Validate(crs); err != nil {
		return err
	}

	list, _ := cmd.Flags().GetBool("list")
	out := cmd.OutOrStdout()

	if !list {
		fmt.Fprintf(out, "Zoom: %d\n", grid.Zoom)
		fmt.Fprintf(out, "Columns: %d-%d, rows: %d-%d\n", grid.MinX, grid.MaxX, grid.MinY, grid.MaxY)
		fmt.Fprintf(out, "Tiles: %d\n", grid.Count())
		fmt.Fprintf(out, "Extent: %s\n", grid.Extent())
		return nil
	}

	var listErr error
	grid.Each(func(t tile.Tile) bool {
		extent, err := projector.Project(t.Bound(), tile.CRSGeographic, crs)
		if err != nil {
			listErr = fmt.Errorf("tile %s: %w", t, err)
			return false
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\n", t, extent); err != nil {
			listErr = err
			return false
		}
		return true
	})
	return listErr
}
