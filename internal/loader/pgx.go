// internal/loader/pgx.go - Native PostgreSQL loader
package loader

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/multierr"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/tile"
	"github.com/valpere/wfs_dump/pkg/feature"
)

// pgxConn is the subset of *pgx.Conn the loader needs
type pgxConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// connectFunc opens one connection
type connectFunc func(ctx context.Context, connString string) (pgxConn, error)

func pgxConnect(ctx context.Context, connString string) (pgxConn, error) {
	return pgx.Connect(ctx, connString)
}

// PgxLoader opens one connection and one transaction per tile and sends all
// inserts of the tile as a single batch
type PgxLoader struct {
	connString     string
	target         Target
	connectTimeout time.Duration
	connect        connectFunc
}

// NewPgxLoader creates a loader for the given connection string and target
func NewPgxLoader(connString string, target Target, connectTimeout time.Duration) *PgxLoader {
	return &PgxLoader{
		connString:     NormalizeConnection(connString),
		target:         target,
		connectTimeout: connectTimeout,
		connect:        pgxConnect,
	}
}

// LoadTile inserts rows inside one transaction. Any failure rolls back the
// whole tile.
func (l *PgxLoader) LoadTile(ctx context.Context, t tile.Tile, rows []feature.EncodedRow) (n int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	conn, err := l.open(ctx)
	if err != nil {
		return 0, loadError(t, "connect failed", err)
	}
	defer func() {
		if cerr := conn.Close(context.Background()); cerr != nil {
			err = multierr.Append(err, loadError(t, "close failed", cerr))
		}
	}()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, loadError(t, "begin failed", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := tx.Rollback(context.Background()); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) {
			err = multierr.Append(err, loadError(t, "rollback failed", rerr))
		}
	}()

	insert := l.target.InsertSQL()
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insert, row.WKB, row.SRID, string(row.Attributes))
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, execErr := results.Exec(); execErr != nil {
			_ = results.Close()
			return 0, loadError(t, "insert failed", execErr)
		}
	}
	if err := results.Close(); err != nil {
		return 0, loadError(t, "batch failed", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, loadError(t, "commit failed", err)
	}
	committed = true

	return len(rows), nil
}

// Ping opens a connection and checks it
func (l *PgxLoader) Ping(ctx context.Context) error {
	conn, err := l.open(ctx)
	if err != nil {
		return internal.NewError(internal.ErrorCodeConfig, "cannot connect to destination database", err)
	}
	defer conn.Close(context.Background())

	if err := conn.Ping(ctx); err != nil {
		return internal.NewError(internal.ErrorCodeConfig, "destination database did not answer ping", err)
	}
	return nil
}

// Close is a no-op; connections never outlive a tile
func (l *PgxLoader) Close() error {
	return nil
}

func (l *PgxLoader) open(ctx context.Context) (pgxConn, error) {
	if l.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.connectTimeout)
		defer cancel()
	}
	return l.connect(ctx, l.connString)
}
