// internal/loader/types.go - Destination loader types
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/valpere/wfs_dump/internal"
	"github.com/valpere/wfs_dump/internal/config"
	"github.com/valpere/wfs_dump/internal/tile"
	"github.com/valpere/wfs_dump/pkg/feature"
)

// Loader writes the encoded rows of one tile as a single atomic unit
type Loader interface {
	// LoadTile inserts rows and returns how many were written. An empty slice
	// performs no I/O at all.
	LoadTile(ctx context.Context, t tile.Tile, rows []feature.EncodedRow) (int, error)
	// Ping checks that the destination is reachable before any tile runs
	Ping(ctx context.Context) error
	Close() error
}

// Target is the destination table and its two columns
type Target struct {
	Schema           string `json:"schema,omitempty"`
	Table            string `json:"table"`
	GeometryColumn   string `json:"geometry_column"`
	AttributesColumn string `json:"attributes_column"`
}

// NewTarget parses "[schema.]table" and the "geometry,attributes" column pair
func NewTarget(table, columns string) (Target, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return Target{}, internal.NewError(internal.ErrorCodeConfig, "table name cannot be empty", nil)
	}

	var target Target
	parts := strings.Split(table, ".")
	switch len(parts) {
	case 1:
		target.Table = parts[0]
	case 2:
		target.Schema, target.Table = parts[0], parts[1]
	default:
		return Target{}, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("invalid table name %q, expected [schema.]table", table), nil)
	}
	if target.Table == "" || (len(parts) == 2 && target.Schema == "") {
		return Target{}, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("invalid table name %q, expected [schema.]table", table), nil)
	}

	geom, attrs, err := config.ParseColumns(columns)
	if err != nil {
		return Target{}, err
	}
	target.GeometryColumn = geom
	target.AttributesColumn = attrs

	return target, nil
}

// QualifiedTable returns the quoted, schema-qualified table name
func (t Target) QualifiedTable() string {
	if t.Schema == "" {
		return pgx.Identifier{t.Table}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Table}.Sanitize()
}

// InsertSQL returns the parameterised insert statement: $1 WKB, $2 SRID, $3 attributes
func (t Target) InsertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (ST_GeomFromWKB($1, $2), $3::jsonb)",
		t.QualifiedTable(),
		pgx.Identifier{t.GeometryColumn}.Sanitize(),
		pgx.Identifier{t.AttributesColumn}.Sanitize())
}

// LiteralSQL returns the insert statement for one row with every value inlined
func (t Target) LiteralSQL(row feature.EncodedRow) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (ST_GeomFromWKB('%s'::bytea, %d), '%s'::jsonb);",
		t.QualifiedTable(),
		pgx.Identifier{t.GeometryColumn}.Sanitize(),
		pgx.Identifier{t.AttributesColumn}.Sanitize(),
		row.HexWKB(),
		row.SRID,
		feature.EscapeLiteral(string(row.Attributes)))
}

// String returns the unquoted table name
func (t Target) String() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}

// loadError wraps a database failure for one tile
func loadError(t tile.Tile, stage string, err error) error {
	return internal.NewError(internal.ErrorCodeLoad, fmt.Sprintf("tile %s: %s", t, stage), err)
}
