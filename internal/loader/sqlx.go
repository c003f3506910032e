// internal/loader/sqlx.go - database/sql loader using lib/pq
package loader

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // register the postgres driver
	"go.uber.org/multierr"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/tile"
	"github.com/valpere/wfs_dump/pkg/feature"
)

const pqDriverName = "postgres"

// SQLXLoader loads tiles through database/sql with a prepared statement per tile
type SQLXLoader struct {
	connString     string
	target         Target
	connectTimeout time.Duration
	connect        func(ctx context.Context, driverName, dataSourceName string) (*sqlx.DB, error)
}

// NewSQLXLoader creates a loader for the given connection string and target
func NewSQLXLoader(connString string, target Target, connectTimeout time.Duration) *SQLXLoader {
	return &SQLXLoader{
		connString:     NormalizeConnection(connString),
		target:         target,
		connectTimeout: connectTimeout,
		connect:        sqlx.ConnectContext,
	}
}

// LoadTile inserts rows inside one transaction. Any failure rolls back the
// whole tile.
func (l *SQLXLoader) LoadTile(ctx context.Context, t tile.Tile, rows []feature.EncodedRow) (n int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	db, err := l.open(ctx)
	if err != nil {
		return 0, loadError(t, "connect failed", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			err = multierr.Append(err, loadError(t, "close failed", cerr))
		}
	}()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, loadError(t, "begin failed", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = multierr.Append(err, loadError(t, "rollback failed", rerr))
		}
	}()

	stmt, err := tx.PreparexContext(ctx, l.target.InsertSQL())
	if err != nil {
		return 0, loadError(t, "prepare failed", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.WKB, row.SRID, string(row.Attributes)); err != nil {
			return 0, loadError(t, "insert failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, loadError(t, "commit failed", err)
	}
	committed = true

	return len(rows), nil
}

// Ping connects once to check the destination
func (l *SQLXLoader) Ping(ctx context.Context) error {
	db, err := l.open(ctx)
	if err != nil {
		return internal.NewError(internal.ErrorCodeConfig, "cannot connect to destination database", err)
	}
	return db.Close()
}

// Close is a no-op; connections never outlive a tile
func (l *SQLXLoader) Close() error {
	return nil
}

func (l *SQLXLoader) open(ctx context.Context) (*sqlx.DB, error) {
	if l.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.connectTimeout)
		defer cancel()
	}
	return l.connect(ctx, pqDriverName, l.connString)
}
