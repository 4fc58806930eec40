package collection

import (
	"context"
	"io"
	"strings"
)

// TREC reads SGML files of <DOC> blocks:
//
//	<DOC>
//	<DOCNO> FT911-1 </DOCNO>
//	<TEXT> ... </TEXT>
//	</DOC>
//
// The document id is the trimmed DOCNO text; contents is the body after
// </DOCNO> with markup removed. A block cut off by end of file is counted as
// skipped.
func TREC() Collection {
	return &fileCollection{
		name: "trec",
		filter: Filter{
			SkippedPrefixes: []string{"readme"},
			SkippedDirs:     []string{"cr", "dtd", "dtds"},
		},
		open: openTRECSegment,
	}
}

const (
	trecDoc      = "<DOC>"
	trecDocEnd   = "</DOC>"
	trecDocNo    = "<DOCNO>"
	trecDocNoEnd = "</DOCNO>"
)

type trecSegment struct {
	segmentState
	rc    io.ReadCloser
	lines *lineReader
	done  bool
}

func openTRECSegment(path string) (Segment, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, err
	}
	return &trecSegment{rc: rc, lines: newLineReader(rc)}, nil
}

func (s *trecSegment) Next(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}

	rec, err := s.readDoc()
	if err != nil {
		s.done = true
		if err != io.EOF {
			s.failed = true
		}
		return nil, io.EOF
	}
	return rec, nil
}

func (s *trecSegment) Close() error {
	return s.rc.Close()
}

func (s *trecSegment) readDoc() (*Record, error) {
	var raw, header, body strings.Builder
	inDoc, haveID := false, false

	for {
		line, err := s.lines.next()
		if err != nil {
			if err == io.EOF && inDoc {
				s.skipped++
			}
			return nil, err
		}
		text := string(line)
		trimmed := strings.TrimSpace(text)

		if !inDoc {
			if strings.HasPrefix(trimmed, trecDoc) || strings.HasPrefix(trimmed, "<DOC ") {
				inDoc = true
				raw.WriteString(text)
				raw.WriteByte('\n')
			}
			continue
		}

		raw.WriteString(text)
		raw.WriteByte('\n')

		if strings.HasPrefix(trimmed, trecDocEnd) {
			id := ""
			if haveID {
				id = docNo(header.String())
			}
			return &Record{
				ID:        id,
				Contents:  stripMarkup(body.String()),
				Raw:       raw.String(),
				Indexable: true,
			}, nil
		}

		if !haveID {
			// DOCNO may span lines; collect until its end tag shows up.
			header.WriteString(text)
			header.WriteByte(' ')
			if strings.Contains(header.String(), trecDocNoEnd) {
				haveID = true
				rest := header.String()
				rest = rest[strings.Index(rest, trecDocNoEnd)+len(trecDocNoEnd):]
				body.WriteString(rest)
				body.WriteByte('\n')
			}
			continue
		}

		body.WriteString(text)
		body.WriteByte('\n')
	}
}

func docNo(header string) string {
	start := strings.Index(header, trecDocNo)
	end := strings.Index(header, trecDocNoEnd)
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(header[start+len(trecDocNo) : end])
}

// stripMarkup drops SGML tags and collapses the remaining whitespace.
func stripMarkup(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
