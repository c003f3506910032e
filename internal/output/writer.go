// internal/output/writer.go - Single-document and per-tile file writers
package output

import (
	"fmt"
	"path/filepath"
	"strconv"

	"go.uber.org/multierr"
)

// DocumentWriter writes every tile into one destination, one document per call
type DocumentWriter struct {
	formatter Formatter
	dest      Destination
}

// NewDocumentWriter opens path (stdout for "" or "-") for formatted tiles
func NewDocumentWriter(opts Options, path string) (*DocumentWriter, error) {
	formatter, err := NewFormatter(opts.Format, opts.Pretty, opts.Metadata)
	if err != nil {
		return nil, err
	}
	dest, err := OpenDestination(path, opts.Gzip)
	if err != nil {
		return nil, err
	}
	return &DocumentWriter{formatter: formatter, dest: dest}, nil
}

// Write writes one tile as a document
func (w *DocumentWriter) Write(t *TileFeatures) error {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("tile %s: %w", t.Tile, err)
	}
	return w.emit(data)
}

// WriteBatch writes all tiles as a single merged document
func (w *DocumentWriter) WriteBatch(tiles []*TileFeatures) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("%d tiles: %w", len(tiles), err)
	}
	return w.emit(data)
}

func (w *DocumentWriter) emit(data []byte) error {
	if _, err := w.dest.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write to %s failed: %w", w.dest.Name(), err)
	}
	return nil
}

// Close closes the destination
func (w *DocumentWriter) Close() error {
	return w.dest.Close()
}

// TileFileWriter writes each tile to <dir>/z/x/y.<ext>
type TileFileWriter struct {
	formatter Formatter
	dir       string
	opts      Options
}

// NewTileFileWriter creates a writer rooted at dir
func NewTileFileWriter(opts Options, dir string) (*TileFileWriter, error) {
	formatter, err := NewFormatter(opts.Format, opts.Pretty, opts.Metadata)
	if err != nil {
		return nil, err
	}
	return &TileFileWriter{formatter: formatter, dir: dir, opts: opts}, nil
}

// Path returns the file a tile is written to, without the .gz suffix
func (w *TileFileWriter) Path(t *TileFeatures) string {
	return filepath.Join(w.dir,
		strconv.Itoa(t.Tile.Z),
		strconv.Itoa(t.Tile.X),
		strconv.Itoa(t.Tile.Y)+w.opts.Format.Extension())
}

// Write formats the tile and stores it in its own file
func (w *TileFileWriter) Write(t *TileFeatures) (err error) {
	data, err := w.formatter.Format(t)
	if err != nil {
		return fmt.Errorf("tile %s: %w", t.Tile, err)
	}

	dest, err := OpenDestination(w.Path(t), w.opts.Gzip)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dest.Close()) }()

	if _, err := dest.Write(data); err != nil {
		return fmt.Errorf("write to %s failed: %w", dest.Name(), err)
	}
	return nil
}

// WriteBatch writes every tile, continuing past failures
func (w *TileFileWriter) WriteBatch(tiles []*TileFeatures) error {
	var err error
	for _, t := range tiles {
		err = multierr.Append(err, w.Write(t))
	}
	return err
}

// Close is a no-op; each file is closed after its write
func (w *TileFileWriter) Close() error {
	return nil
}

// NewWriter returns a TileFileWriter when split is set and path names a
// directory, otherwise a DocumentWriter
func NewWriter(opts Options, path string, split bool) (Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if split && path != "" && path != Stdout {
		return NewTileFileWriter(opts, path)
	}
	return NewDocumentWriter(opts, path)
}
