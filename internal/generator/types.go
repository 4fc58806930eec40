package generator

import (
	"github.com/Aman-CERP/corpusidx/internal/collection"
)

// Outcome classifies what happened to one record.
type Outcome int

const (
	// OK means a document was produced.
	OK Outcome = iota
	// Empty means the record has no indexable content.
	Empty
	// Skipped means policy excluded the record.
	Skipped
	// Invalid means the record is malformed.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Empty:
		return "empty"
	case Skipped:
		return "skipped"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Result is the outcome of generating one record. Doc is set only for OK.
type Result struct {
	Outcome Outcome
	Doc     *Document
	Reason  string
}

// Produced wraps a document in an OK result.
func Produced(doc *Document) Result {
	return Result{Outcome: OK, Doc: doc}
}

// EmptyResult reports a record without content.
func EmptyResult(reason string) Result {
	return Result{Outcome: Empty, Reason: reason}
}

// SkipResult reports a record excluded by policy.
func SkipResult(reason string) Result {
	return Result{Outcome: Skipped, Reason: reason}
}

// InvalidResult reports a malformed record.
func InvalidResult(reason string) Result {
	return Result{Outcome: Invalid, Reason: reason}
}

// Generator converts records into documents.
type Generator interface {
	Generate(rec *collection.Record) Result
}

// Factory builds a generator for one partition.
type Factory func(opts Options) (Generator, error)

// FieldKind says how the engine treats a field.
type FieldKind int

const (
	// Keyword fields are indexed verbatim as a single term.
	Keyword FieldKind = iota
	// Text fields are analyzed into terms.
	Text
	// Numeric fields hold int64 or float64 values.
	Numeric
	// StoredOnly fields are kept for retrieval but not searchable.
	StoredOnly
)

// Field is one value of a document field. Multi-valued fields repeat the
// name.
type Field struct {
	Name  string
	Kind  FieldKind
	Value any
}

// Document is a structured document ready for the engine.
type Document struct {
	ID     string
	Fields []Field
}

// NewDocument starts a document with the given id.
func NewDocument(id string) *Document {
	return &Document{ID: id}
}

// Add appends a field value and returns d for chaining.
func (d *Document) Add(name string, kind FieldKind, value any) *Document {
	d.Fields = append(d.Fields, Field{Name: name, Kind: kind, Value: value})
	return d
}

// Values returns every value stored under name, in insertion order.
func (d *Document) Values(name string) []any {
	var out []any
	for _, f := range d.Fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

// Value returns the first value under name, or nil.
func (d *Document) Value(name string) any {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// FieldSpec declares one field of a generator's output.
type FieldSpec struct {
	Name  string
	Kind  FieldKind
	Store bool
}

// Schema is the set of fields a generator emits. When Dynamic is set the
// generator may also emit undeclared text fields.
type Schema struct {
	Fields  []FieldSpec
	Dynamic bool
}
