// Package generator converts raw records into index documents.
//
// A Generator never fails by panicking or returning an error: every record
// yields a Result whose Outcome says whether a document was produced (OK) or
// why not (Empty, Skipped, Invalid). Generators are built per partition from
// a Factory looked up by name, so they need not be safe for concurrent use.
package generator
