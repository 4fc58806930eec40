package collection

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// compressionSuffix returns ".gz", ".zst" or "" for path.
func compressionSuffix(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return ".gz"
	case strings.HasSuffix(lower, ".zst"):
		return ".zst"
	}
	return ""
}

// stripCompression removes a trailing compression suffix from name.
func stripCompression(name string) string {
	return name[:len(name)-len(compressionSuffix(name))]
}

type stackedReader struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReader) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openInput opens path, layering a decompressor when the name asks for one.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch compressionSuffix(path) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		return &stackedReader{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case ".zst":
		dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		release := closerFunc(func() error {
			dec.Close()
			return nil
		})
		return &stackedReader{Reader: dec, closers: []io.Closer{release, f}}, nil
	}
	return f, nil
}

// lineReader yields lines without their terminator. Unlike bufio.Scanner it
// has no line length limit.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line, or io.EOF after the last one.
func (l *lineReader) next() ([]byte, error) {
	line, err := l.r.ReadBytes('\n')
	if len(line) > 0 {
		return bytes.TrimRight(line, "\r\n"), nil
	}
	return nil, err
}
