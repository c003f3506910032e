// internal/config/config.go - Configuration management
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/tile"
)

// Config represents the complete application configuration
type Config struct {
	WFS         WFSConfig         `mapstructure:"wfs"`
	Destination DestinationConfig `mapstructure:"destination"`
	Grid        GridConfig        `mapstructure:"grid"`
	Batch       BatchConfig       `mapstructure:"batch"`
	Network     NetworkConfig     `mapstructure:"network"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// WFSConfig describes the feature service and the layer to extract
type WFSConfig struct {
	URL      string            `mapstructure:"url"`
	Layer    string            `mapstructure:"layer"`
	Headers  map[string]string `mapstructure:"headers"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	SRSName  bool              `mapstructure:"srs_name"`
	SwapAxes bool              `mapstructure:"swap_axes"`
}

// DestinationConfig describes where encoded rows are loaded
type DestinationConfig struct {
	Driver         string        `mapstructure:"driver"`
	Connection     string        `mapstructure:"connection"`
	Table          string        `mapstructure:"table"`
	Columns        string        `mapstructure:"columns"`
	ScriptPath     string        `mapstructure:"script_path"`
	Compression    bool          `mapstructure:"compression"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// GridConfig describes the extent, tile zoom and target CRS
type GridConfig struct {
	BBox string `mapstructure:"bbox"`
	Zoom int    `mapstructure:"zoom"`
	EPSG int    `mapstructure:"epsg"`
}

// BatchConfig contains batch processing configuration
type BatchConfig struct {
	Jobs             int `mapstructure:"jobs"`
	LargeTileWarning int `mapstructure:"large_tile_warning"`
}

// NetworkConfig contains network-related configuration
type NetworkConfig struct {
	ProxyURL            string        `mapstructure:"proxy_url"`
	UserAgent           string        `mapstructure:"user_agent"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Verbose  bool   `mapstructure:"verbose"`
	Progress bool   `mapstructure:"progress"`
}

// MetricsConfig controls the optional Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// Defaults taken over from the original command line tool
const (
	DefaultConnection = "Host=localhost;Username=postgres;Password=postgres;Database=postgres"
	DefaultTable      = "public.wfs_dump"
	DefaultColumns    = "geom,attributes"
	DefaultBBox       = "-179,-85,179,85"
	DefaultZoom       = 14
	DefaultJobs       = 2
)

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Set default values
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "failed to unmarshal configuration", err)
	}

	if err := Validate(&config); err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "configuration validation failed", err)
	}

	return &config, nil
}

// setDefaults configures default values for all configuration options
func setDefaults() {
	// WFS defaults
	viper.SetDefault("wfs.timeout", 5*time.Minute)
	viper.SetDefault("wfs.srs_name", false)
	viper.SetDefault("wfs.swap_axes", false)

	// Destination defaults
	viper.SetDefault("destination.driver", string(internal.DriverPgx))
	viper.SetDefault("destination.connection", DefaultConnection)
	viper.SetDefault("destination.table", DefaultTable)
	viper.SetDefault("destination.columns", DefaultColumns)
	viper.SetDefault("destination.script_path", "-")
	viper.SetDefault("destination.compression", false)
	viper.SetDefault("destination.connect_timeout", 30*time.Second)

	// Grid defaults
	viper.SetDefault("grid.bbox", DefaultBBox)
	viper.SetDefault("grid.zoom", DefaultZoom)
	viper.SetDefault("grid.epsg", int(tile.CRSGeographic))

	// Batch defaults
	viper.SetDefault("batch.jobs", DefaultJobs)
	viper.SetDefault("batch.large_tile_warning", 5000)

	// Network defaults
	viper.SetDefault("network.user_agent", "wfs-dump/1.0")
	viper.SetDefault("network.tls_handshake_timeout", 10*time.Second)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.verbose", false)
	viper.SetDefault("logging.progress", true)

	// Metrics defaults
	viper.SetDefault("metrics.path", "/metrics")
}

// BoundingBox returns the configured extent in the canonical geographic CRS
func (c *Config) BoundingBox() (tile.BoundingBox, error) {
	return ParseBBox(c.Grid.BBox)
}

// TargetCRS returns the CRS tiles are requested and loaded in
func (c *Config) TargetCRS() tile.CRS {
	return tile.CRS(c.Grid.EPSG)
}

// Driver returns the destination driver type
func (c *Config) Driver() internal.DriverType {
	return internal.DriverType(strings.ToLower(c.Destination.Driver))
}

// ParseBBox parses "minX,minY,maxX,maxY"; whitespace works as a separator too
func ParseBBox(s string) (tile.BoundingBox, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(parts) != 4 {
		return tile.BoundingBox{}, internal.NewError(internal.ErrorCodeConfig,
			"bounding box must have 4 values: min_x,min_y,max_x,max_y", nil)
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return tile.BoundingBox{}, internal.NewError(internal.ErrorCodeConfig,
				fmt.Sprintf("invalid coordinate value: %s", part), err)
		}
		coords[i] = val
	}

	return tile.NewBoundingBox(coords[0], coords[1], coords[2], coords[3], tile.CRSGeographic)
}

// ParseColumns splits "geometry,attributes" into its two column names
func ParseColumns(s string) (geometry, attributes string, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return "", "", internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("columns must be 'geometry,attributes', got %q", s), nil)
	}
	geometry = strings.TrimSpace(parts[0])
	attributes = strings.TrimSpace(parts[1])
	if geometry == "" || attributes == "" {
		return "", "", internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("column names cannot be empty in %q", s), nil)
	}
	if geometry == attributes {
		return "", "", internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("geometry and attributes columns must differ, got %q twice", geometry), nil)
	}
	return geometry, attributes, nil
}
