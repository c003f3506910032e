// internal/loader/factory.go - Loader construction from configuration
package loader

import (
	"fmt"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/config"
	"github.com/valpere/wfs_dump/internal/output"
)

// New creates the loader selected by the destination driver
func New(cfg *config.Config) (Loader, error) {
	target, err := NewTarget(cfg.Destination.Table, cfg.Destination.Columns)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver() {
	case internal.DriverPgx:
		return NewPgxLoader(cfg.Destination.Connection, target, cfg.Destination.ConnectTimeout), nil
	case internal.DriverPQ:
		return NewSQLXLoader(cfg.Destination.Connection, target, cfg.Destination.ConnectTimeout), nil
	case internal.DriverScript:
		dest, err := output.OpenDestination(cfg.Destination.ScriptPath, cfg.Destination.Compression)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeConfig, "failed to open script destination", err)
		}
		return NewScriptLoader(dest, target), nil
	default:
		return nil, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("unsupported driver: %s", cfg.Destination.Driver), nil)
	}
}
