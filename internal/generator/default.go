package generator

import (
	"sort"

	"github.com/Aman-CERP/corpusidx/internal/collection"
)

// Field names shared by the built-in generators.
const (
	FieldID       = "id"
	FieldContents = "contents"
	FieldRaw      = "raw"
)

type defaultGenerator struct {
	opts      Options
	stopwords map[string]struct{}
	fields    []string
}

// NewDefault builds the general-purpose generator: id, contents, optional
// raw, plus the record's extra fields as text.
func NewDefault(opts Options) (Generator, error) {
	g := &defaultGenerator{opts: opts}
	if !opts.KeepStopwords {
		g.stopwords = opts.stopwords()
	}
	if len(opts.Fields) > 0 {
		g.fields = append([]string(nil), opts.Fields...)
	}
	return g, nil
}

// DefaultSchema is the field layout of NewDefault.
func DefaultSchema(opts Options) Schema {
	s := Schema{
		Fields: []FieldSpec{
			{Name: FieldID, Kind: Keyword, Store: true},
			{Name: FieldContents, Kind: Text, Store: opts.StoreContents},
		},
		Dynamic: true,
	}
	if opts.StoreRaw {
		s.Fields = append(s.Fields, FieldSpec{Name: FieldRaw, Kind: StoredOnly, Store: true})
	}
	return s
}

func (g *defaultGenerator) Generate(rec *collection.Record) Result {
	if rec.ID == "" {
		return InvalidResult("record has no id")
	}
	if !HasContent(rec.Contents, g.stopwords) {
		return EmptyResult("no indexable terms")
	}

	doc := NewDocument(rec.ID).
		Add(FieldID, Keyword, rec.ID).
		Add(FieldContents, Text, rec.Contents)
	if g.opts.StoreRaw {
		doc.Add(FieldRaw, StoredOnly, rec.Raw)
	}

	for _, name := range g.extraFields(rec) {
		if v, ok := rec.Fields[name]; ok {
			doc.Add(name, Text, v)
		}
	}
	return Produced(doc)
}

func (g *defaultGenerator) extraFields(rec *collection.Record) []string {
	if g.fields != nil {
		return g.fields
	}
	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		switch name {
		case FieldID, FieldContents, FieldRaw:
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
