// internal/output/destination.go - Stdout and file sinks with optional gzip
package output

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// Stdout is the path that selects standard output
const Stdout = "-"

// sink counts bytes before compression and closes its layers outermost first
type sink struct {
	name   string
	w      io.Writer
	gz     *gzip.Writer
	closer io.Closer
	n      int64
}

// OpenDestination opens path for writing; "" and "-" mean standard output,
// which is never closed. With gz the stream is compressed and file paths get
// a .gz suffix.
func OpenDestination(path string, gz bool) (Destination, error) {
	s := &sink{}

	if path == "" || path == Stdout {
		s.name = "stdout"
		s.w = os.Stdout
	} else {
		if gz && !strings.HasSuffix(path, ".gz") {
			path += ".gz"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
		s.name = path
		s.w = f
		s.closer = f
	}

	if gz {
		s.gz = gzip.NewWriter(s.w)
		s.w = s.gz
	}
	return s, nil
}

// Write implements io.Writer
func (s *sink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.n += int64(n)
	return n, err
}

// Close flushes the gzip trailer and closes the file, reporting both failures
func (s *sink) Close() error {
	var err error
	if s.gz != nil {
		err = multierr.Append(err, s.gz.Close())
	}
	if s.closer != nil {
		err = multierr.Append(err, s.closer.Close())
	}
	return err
}

// Name returns the file path or "stdout"
func (s *sink) Name() string { return s.name }

// Size returns the number of bytes written before compression
func (s *sink) Size() int64 { return s.n }
