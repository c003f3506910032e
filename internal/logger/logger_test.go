// internal/logger/logger_test.go - Unit tests for logging setup
package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/valpere/wfs_dump/internal/config"
	"github.com/valpere/wfs_dump/internal/tile"
)

func TestBuild_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := Build(Config{Level: "info", Component: "dump"}, &buf)

	tileLog := ForTile(log, tile.Tile{Z: 3, X: 2, Y: 1})
	tileLog.Info().Int("features", 7).Msg("tile loaded")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}

	expected := map[string]interface{}{
		"level":     "info",
		"msg":       "tile loaded",
		"component": "dump",
		"tile":      "3/2/1",
		"features":  float64(7),
	}
	for key, want := range expected {
		if entry[key] != want {
			t.Errorf("Expected %s=%v, got %v", key, want, entry[key])
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("Expected timestamp field")
	}
}

func TestBuild_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := Build(Config{Level: "warn"}, &buf)

	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered, got %q", buf.String())
	}

	log.Warn().Msg("shown")
	if buf.Len() == 0 {
		t.Error("Expected warn to be written")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"unknown": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.LoggingConfig{Level: "info", Format: "json", Verbose: true}, "dump")
	if cfg.Level != "debug" {
		t.Errorf("Expected verbose to force debug, got %s", cfg.Level)
	}
	if cfg.Console {
		t.Error("Expected JSON output")
	}
}
