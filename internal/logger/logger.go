// internal/logger/logger.go - Structured logging setup
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/wfs_dump/internal/config"
	"github.com/valpere/wfs_dump/internal/tile"
)

// Config selects level and output style of the logger
type Config struct {
	Level     string
	Console   bool
	Component string
}

// FromConfig derives the logger configuration from the application config
func FromConfig(cfg config.LoggingConfig, component string) Config {
	level := cfg.Level
	if cfg.Verbose {
		level = "debug"
	}
	return Config{
		Level:     level,
		Console:   !strings.EqualFold(cfg.Format, "json"),
		Component: component,
	}
}

// Build creates the root logger writing to out, or stderr when out is nil
func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	base := zerolog.New(out).Level(ParseLevel(cfg.Level))

	ctx := base.With().Timestamp()
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	return ctx.Logger()
}

// ParseLevel maps a configured level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ForTile returns a child logger tagged with the tile coordinate
func ForTile(parent zerolog.Logger, t tile.Tile) zerolog.Logger {
	return parent.With().Str("tile", t.String()).Logger()
}
