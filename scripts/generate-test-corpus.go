//go:build ignore

// Package main generates a synthetic corpus for load testing corpusidx.
// Usage: go run scripts/generate-test-corpus.go -format jsonl -files 64 -docs 5000 -output testdata/bench
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	format    = flag.String("format", "jsonl", "Corpus format: jsonl, trec, or tweet")
	numFiles  = flag.Int("files", 64, "Number of partition files")
	docsPer   = flag.Int("docs", 5000, "Documents per file")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	emptyPct  = flag.Int("empty", 1, "Percent of documents with no contents")
	dupPct    = flag.Int("dup", 0, "Percent of documents reusing an earlier id")
)

var vocabulary = strings.Fields(`
	index corpus document partition shard worker thread batch segment merge
	commit record field term token stem analyzer query search engine result
	river mountain forest ocean desert valley island harbor bridge tower
	market policy election budget science health energy climate transport
	quick brown lazy bright quiet ancient modern rapid steady distant
	running walking building reading writing growing falling rising turning
`)

func sentence(r *rand.Rand, words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = vocabulary[r.Intn(len(vocabulary))]
	}
	return strings.Join(parts, " ")
}

type doc struct {
	id       string
	contents string
}

func docsFor(r *rand.Rand, file int) []doc {
	docs := make([]doc, *docsPer)
	for i := range docs {
		id := fmt.Sprintf("doc-%05d-%06d", file, i)
		if *dupPct > 0 && i > 0 && r.Intn(100) < *dupPct {
			id = docs[r.Intn(i)].id
		}
		contents := ""
		if r.Intn(100) >= *emptyPct {
			contents = sentence(r, 20+r.Intn(200))
		}
		docs[i] = doc{id: id, contents: contents}
	}
	return docs
}

func writeJSONL(w *bufio.Writer, r *rand.Rand, docs []doc) error {
	enc := json.NewEncoder(w)
	for _, d := range docs {
		if err := enc.Encode(map[string]any{
			"id":       d.id,
			"contents": d.contents,
			"title":    sentence(r, 3+r.Intn(6)),
			"year":     1990 + r.Intn(35),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeTREC(w *bufio.Writer, r *rand.Rand, docs []doc) error {
	for _, d := range docs {
		if _, err := fmt.Fprintf(w, "<DOC>\n<DOCNO> %s </DOCNO>\n<HEADLINE>%s</HEADLINE>\n<TEXT>\n%s\n</TEXT>\n</DOC>\n",
			d.id, sentence(r, 5), d.contents); err != nil {
			return err
		}
	}
	return nil
}

func writeTweets(w *bufio.Writer, r *rand.Rand, docs []doc) error {
	enc := json.NewEncoder(w)
	base := time.Date(2013, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, d := range docs {
		text := d.contents
		if len(text) > 280 {
			text = text[:280]
		}
		tweet := map[string]any{
			"id_str":     fmt.Sprintf("%d", 300000000000000000+int64(i)*7919+r.Int63n(7919)),
			"text":       text,
			"created_at": base.Add(time.Duration(i) * time.Minute).Format(time.RubyDate),
			"lang":       "en",
			"user":       map[string]any{"screen_name": fmt.Sprintf("user%d", r.Intn(1000))},
		}
		if r.Intn(10) == 0 {
			tweet["retweeted_status"] = map[string]any{"id_str": "1"}
		}
		if err := enc.Encode(tweet); err != nil {
			return err
		}
	}
	return nil
}

func extension() string {
	switch *format {
	case "trec":
		return ".trec"
	case "tweet":
		return ".json"
	default:
		return ".jsonl"
	}
}

func main() {
	flag.Parse()
	r := rand.New(rand.NewSource(*seed))

	writers := map[string]func(*bufio.Writer, *rand.Rand, []doc) error{
		"jsonl": writeJSONL,
		"trec":  writeTREC,
		"tweet": writeTweets,
	}
	write, ok := writers[*format]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown format %q\n", *format)
		os.Exit(1)
	}

	for i := 0; i < *numFiles; i++ {
		dir := filepath.Join(*outputDir, fmt.Sprintf("part-%02d", i%8))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating directory %s: %v\n", dir, err)
			os.Exit(1)
		}

		path := filepath.Join(dir, fmt.Sprintf("segment-%05d%s", i, extension()))
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", path, err)
			os.Exit(1)
		}
		w := bufio.NewWriter(f)
		err = write(w, r, docsFor(r, i))
		if err == nil {
			err = w.Flush()
		}
		_ = f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d %s files with %d documents each in %s\n", *numFiles, *format, *docsPer, *outputDir)
}
