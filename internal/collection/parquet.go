package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parquetBatch is how many rows a parquet segment decodes at a time.
const parquetBatch = 256

// ParquetRow is the row shape of the parquet collection.
type ParquetRow struct {
	ID       string `parquet:"id" json:"id"`
	Contents string `parquet:"contents" json:"contents"`
}

// Parquet reads .parquet files with string "id" and "contents" columns.
func Parquet() Collection {
	return &fileCollection{
		name: "parquet",
		filter: Filter{
			AllowedSuffixes: []string{".parquet"},
		},
		open: openParquetSegment,
	}
}

type parquetSegment struct {
	segmentState
	file   *os.File
	reader *parquet.GenericReader[ParquetRow]
	buf    []ParquetRow
	pos    int
	n      int
	eof    bool
}

func openParquetSegment(path string) (seg Segment, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	// The reader panics on files whose schema cannot map onto ParquetRow.
	defer func() {
		if r := recover(); r != nil {
			_ = f.Close()
			seg, err = nil, fmt.Errorf("open parquet %s: %v", path, r)
		}
	}()

	return &parquetSegment{
		file:   f,
		reader: parquet.NewGenericReader[ParquetRow](f),
		buf:    make([]ParquetRow, parquetBatch),
	}, nil
}

func (s *parquetSegment) Next(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.pos >= s.n {
		if s.eof {
			return nil, io.EOF
		}
		n, err := s.reader.Read(s.buf)
		s.pos, s.n = 0, n
		if err != nil {
			s.eof = true
			if err != io.EOF {
				s.failed = true
			}
		}
		if n == 0 {
			s.eof = true
			return nil, io.EOF
		}
	}

	row := s.buf[s.pos]
	s.pos++
	raw, _ := json.Marshal(row)
	return &Record{
		ID:        row.ID,
		Contents:  row.Contents,
		Raw:       string(raw),
		Indexable: true,
	}, nil
}

func (s *parquetSegment) Close() error {
	rerr := s.reader.Close()
	ferr := s.file.Close()
	if rerr != nil {
		return rerr
	}
	return ferr
}
