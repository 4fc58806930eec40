package ui

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/Aman-CERP/corpusidx/internal/index"
)

// row is one label/value line of the final report.
type row struct {
	label string
	value string
}

func reportRows(res *index.Result) []row {
	c := res.Counters
	return []row{
		{"indexed", humanize.Comma(c.Indexed)},
		{"unindexable", humanize.Comma(c.Unindexable)},
		{"empty", humanize.Comma(c.Empty)},
		{"skipped", humanize.Comma(c.Skipped)},
		{"errors", humanize.Comma(c.Errors)},
		{"documents", humanize.Comma(int64(res.DocCount))},
		{"partitions", fmt.Sprintf("%d/%d", res.Completed, res.Partitions)},
		{"elapsed", index.FormatElapsed(res.Elapsed)},
	}
}

func headline(res *index.Result) string {
	if res.Interrupted {
		return "Indexing interrupted"
	}
	return "Indexing complete"
}

func mismatchWarning(res *index.Result) string {
	return fmt.Sprintf("index holds %d documents but %d were counted as indexed",
		res.DocCount, res.Counters.Indexed)
}
