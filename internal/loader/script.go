// internal/loader/script.go - SQL script loader
package loader

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/valpere/wfs_dump/internal/output"
	"github.com/valpere/wfs_dump/internal/tile"
	"github.com/valpere/wfs_dump/pkg/feature"
)

// ScriptLoader writes every tile as a BEGIN/COMMIT block of literal inserts
// instead of talking to a database. Blocks from concurrent tiles never interleave.
type ScriptLoader struct {
	mu     sync.Mutex
	dest   output.Destination
	target Target
}

// NewScriptLoader creates a loader writing to dest
func NewScriptLoader(dest output.Destination, target Target) *ScriptLoader {
	return &ScriptLoader{
		dest:   dest,
		target: target,
	}
}

// LoadTile appends the tile's transaction block to the script
func (l *ScriptLoader) LoadTile(ctx context.Context, t tile.Tile, rows []feature.EncodedRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, loadError(t, "canceled", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "-- tile %s\nBEGIN;\n", t)
	for _, row := range rows {
		buf.WriteString(l.target.LiteralSQL(row))
		buf.WriteByte('\n')
	}
	buf.WriteString("COMMIT;\n")

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.dest.Write(buf.Bytes()); err != nil {
		return 0, loadError(t, "script write failed", err)
	}
	return len(rows), nil
}

// Ping always succeeds once the destination is open
func (l *ScriptLoader) Ping(ctx context.Context) error {
	return nil
}

// Close flushes and closes the script destination
func (l *ScriptLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dest.Close()
}
