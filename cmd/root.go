// cmd/root.go - Root command implementation
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/wfs_dump/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wfs-dump",
	Short: "Extract a WFS layer into a PostGIS table, tile by tile",
	Long: `wfs-dump copies every feature of one WFS layer into a PostGIS table.

The requested extent is split into a grid of web mercator tiles. Every tile is
queried with its own GetFeature request, and a feature is loaded only by the
tile that contains its centroid, so features returned by several overlapping
queries are still loaded exactly once. Each tile is loaded in its own
transaction; a failing tile is reported and never stops the others.

Examples:
  # Dump a layer into the default table public.wfs_dump
  wfs-dump dump "https://example.com/geoserver/wfs" topp:states \
    --connection "Host=localhost;Username=postgres;Password=postgres;Database=gis"

  # Limit the extent, use a coarser grid and four parallel jobs
  wfs-dump dump "https://example.com/geoserver/wfs" topp:roads --bbox "5,45,10,48" --z 10 --jobs 4

  # Request and load in web mercator
  wfs-dump dump "https://example.com/geoserver/wfs" topp:roads --epsg 3857

  # Write a SQL script instead of connecting to a database
  wfs-dump dump "https://example.com/geoserver/wfs" topp:roads --driver script --script roads.sql --compression

  # Count the tiles of a run without any I/O
  wfs-dump tiles --bbox "5,45,10,48" --z 12

  # Look at what a single tile owns
  wfs-dump fetch "https://example.com/geoserver/wfs" topp:roads --tile 12/2128/1459`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wfs-dump.yaml)")

	// Grid flags
	rootCmd.PersistentFlags().String("bbox", config.DefaultBBox, "extent in EPSG:4326: 'min_x,min_y,max_x,max_y' (commas or spaces)")
	rootCmd.PersistentFlags().Int("z", config.DefaultZoom, "tile zoom level")
	rootCmd.PersistentFlags().Int("epsg", 4326, "CRS code used for requests and loaded geometries")

	// WFS flags
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Minute, "GetFeature request timeout")
	rootCmd.PersistentFlags().Bool("srsname", false, "send SRSNAME with every request")
	rootCmd.PersistentFlags().Bool("swap-axes", false, "swap x/y of decoded coordinates (lat/lon servers)")
	rootCmd.PersistentFlags().StringToString("header", nil, "extra HTTP header sent with every request (key=value)")

	// Logging flags
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	// Bind flags to viper
	viper.BindPFlag("grid.bbox", rootCmd.PersistentFlags().Lookup("bbox"))
	viper.BindPFlag("grid.zoom", rootCmd.PersistentFlags().Lookup("z"))
	viper.BindPFlag("grid.epsg", rootCmd.PersistentFlags().Lookup("epsg"))
	viper.BindPFlag("wfs.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("wfs.srs_name", rootCmd.PersistentFlags().Lookup("srsname"))
	viper.BindPFlag("wfs.swap_axes", rootCmd.PersistentFlags().Lookup("swap-axes"))
	viper.BindPFlag("wfs.headers", rootCmd.PersistentFlags().Lookup("header"))
	viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".wfs-dump" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wfs-dump")
	}

	// Environment variables
	viper.SetEnvPrefix("WFS_DUMP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// setSource stores the positional WFS URL and layer arguments
func setSource(args []string) {
	viper.Set("wfs.url", args[0])
	viper.Set("wfs.layer", args[1])
}
