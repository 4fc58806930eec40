package collection

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// JSON reads .json and .jsonl files.
//
// A .jsonl file holds one object per line; a line that fails to parse is
// counted as skipped. A .json file holds a single object, a sequence of
// objects, or an array of objects; a syntax error there ends the segment with
// the error flag set. In every shape "id" and "contents" map to the record
// and all other keys land in Fields.
func JSON() Collection {
	return &fileCollection{
		name: "json",
		filter: Filter{
			AllowedSuffixes: []string{".json", ".jsonl"},
		},
		open: openJSONSegment,
	}
}

type jsonMode int

const (
	jsonLines jsonMode = iota
	jsonStream
	jsonArray
)

type jsonSegment struct {
	segmentState
	rc    io.ReadCloser
	mode  jsonMode
	lines *lineReader
	dec   *json.Decoder
	done  bool
}

func openJSONSegment(path string) (Segment, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, err
	}

	s := &jsonSegment{rc: rc}
	if strings.HasSuffix(strings.ToLower(stripCompression(path)), ".jsonl") {
		s.mode = jsonLines
		s.lines = newLineReader(rc)
		return s, nil
	}

	br := bufio.NewReader(rc)
	first, err := peekNonSpace(br)
	if err != nil {
		if err == io.EOF {
			s.done = true
			return s, nil
		}
		_ = rc.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	s.dec = json.NewDecoder(br)
	s.mode = jsonStream
	if first == '[' {
		s.mode = jsonArray
		if _, err := s.dec.Token(); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return s, nil
}

// peekNonSpace returns the first non-whitespace byte without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func (s *jsonSegment) Next(ctx context.Context) (*Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.done {
			return nil, io.EOF
		}

		raw, err := s.nextValue()
		if err != nil {
			s.done = true
			if err != io.EOF {
				s.failed = true
			}
			return nil, io.EOF
		}

		rec, ok := recordFromJSON(raw)
		if !ok {
			s.skipped++
			continue
		}
		return rec, nil
	}
}

// nextValue returns the next raw JSON value, io.EOF when there are no more,
// or an error the segment cannot recover from.
func (s *jsonSegment) nextValue() ([]byte, error) {
	switch s.mode {
	case jsonLines:
		for {
			line, err := s.lines.next()
			if err != nil {
				return nil, err
			}
			if len(bytes.TrimSpace(line)) > 0 {
				return line, nil
			}
		}
	case jsonArray:
		if !s.dec.More() {
			if _, err := s.dec.Token(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
	}

	var raw json.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *jsonSegment) Close() error {
	return s.rc.Close()
}

// recordFromJSON builds a record from one JSON object. It returns false when
// raw is not a well-formed object.
func recordFromJSON(raw []byte) (*Record, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}

	rec := &Record{
		Raw:       string(bytes.TrimSpace(raw)),
		Indexable: true,
		Fields:    make(map[string]string, len(obj)),
	}
	for k, v := range obj {
		switch k {
		case "id":
			rec.ID = stringify(v)
		case "contents":
			rec.Contents = stringify(v)
		default:
			rec.Fields[k] = stringify(v)
		}
	}
	return rec, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
