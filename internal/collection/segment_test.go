package collection

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSegment_Lines(t *testing.T) {
	// Given: a JSON-lines file with a blank line and a broken line
	path := writeFile(t, filepath.Join(t.TempDir(), "docs.jsonl"),
		`{"id": "d1", "contents": "first doc", "lang": "en"}`+"\n"+
			"\n"+
			`{"id": "d2", "contents": `+"\n"+
			`{"id": 3, "contents": "third", "score": 1.5, "tags": ["a","b"]}`+"\n")

	// When: reading the segment
	seg, err := JSON().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	// Then: good lines become records, the broken one is a skip
	assert.Equal(t, []string{"d1", "3"}, ids(recs))
	assert.Equal(t, 1, seg.Skipped())
	assert.False(t, seg.Err())

	assert.Equal(t, "first doc", recs[0].Contents)
	assert.Equal(t, map[string]string{"lang": "en"}, recs[0].Fields)
	assert.True(t, recs[0].Indexable)
	assert.JSONEq(t, `{"id": "d1", "contents": "first doc", "lang": "en"}`, recs[0].Raw)
	assert.Equal(t, "1.5", recs[1].Fields["score"])
	assert.Equal(t, `["a","b"]`, recs[1].Fields["tags"])
}

func TestJSONSegment_SingleObject(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "one.json"), `
{
  "id": "solo",
  "contents": "pretty printed"
}
`)

	seg, err := JSON().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	require.Len(t, recs, 1)
	assert.Equal(t, "solo", recs[0].ID)
	assert.Equal(t, "pretty printed", recs[0].Contents)
}

func TestJSONSegment_Array(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "many.json"),
		`[{"id":"a","contents":"x"}, 42, {"id":"b","contents":"y"}]`)

	seg, err := JSON().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	assert.Equal(t, []string{"a", "b"}, ids(recs))
	assert.Equal(t, 1, seg.Skipped())
	assert.False(t, seg.Err())
}

func TestJSONSegment_TruncatedArraySetsErrorFlag(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "cut.json"),
		`[{"id":"a","contents":"x"}, {"id":"b","cont`)

	seg, err := JSON().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	assert.Equal(t, []string{"a"}, ids(recs))
	assert.True(t, seg.Err())
}

func TestJSONSegment_EmptyFile(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "empty.json"), "  \n")

	seg, err := JSON().NewSegment(path)
	require.NoError(t, err)

	assert.Empty(t, drain(t, seg))
	assert.False(t, seg.Err())
}

func TestJSONSegment_MissingIDKeepsEmptyID(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "noid.jsonl"), `{"contents":"orphan"}`+"\n")

	seg, err := JSON().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0].ID)
}

func TestJSONSegment_Compressed(t *testing.T) {
	content := `{"id":"z1","contents":"one"}` + "\n" + `{"id":"z2","contents":"two"}` + "\n"
	dir := t.TempDir()

	gzPath := filepath.Join(dir, "docs.jsonl.gz")
	gzFile, err := os.Create(gzPath)
	require.NoError(t, err)
	gw := gzip.NewWriter(gzFile)
	_, err = gw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, gzFile.Close())

	zstPath := filepath.Join(dir, "docs.jsonl.zst")
	zstFile, err := os.Create(zstPath)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(zstFile)
	require.NoError(t, err)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, zstFile.Close())

	for _, path := range []string{gzPath, zstPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			seg, err := JSON().NewSegment(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"z1", "z2"}, ids(drain(t, seg)))
		})
	}
}

func TestJSONSegment_CorruptGzipFailsToOpen(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "bad.jsonl.gz"), "not gzip at all")

	_, err := JSON().NewSegment(path)

	assert.Error(t, err)
}

func TestSegment_ReopenYieldsSameSequence(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "docs.jsonl"),
		`{"id":"a","contents":"1"}`+"\n"+`bad`+"\n"+`{"id":"b","contents":"2"}`+"\n")

	first, err := JSON().NewSegment(path)
	require.NoError(t, err)
	second, err := JSON().NewSegment(path)
	require.NoError(t, err)

	a, b := drain(t, first), drain(t, second)
	assert.Equal(t, a, b)
	assert.Equal(t, first.Skipped(), second.Skipped())
}

func TestSegment_StopsOnCancelledContext(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "docs.jsonl"), `{"id":"a","contents":"1"}`+"\n")
	seg, err := JSON().NewSegment(path)
	require.NoError(t, err)
	defer func() { _ = seg.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = seg.Next(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestTweetSegment(t *testing.T) {
	// Given: a stream with a tweet, a delete notice, garbage, and a retweet
	path := writeFile(t, filepath.Join(t.TempDir(), "statuses.log"),
		`{"id":100,"id_str":"100","text":"hello world","created_at":"Sun Jan 23 00:00:01 +0000 2011","lang":"en","user":{"id":7,"screen_name":"alice","followers_count":3},"in_reply_to_status_id":99,"retweet_count":2}`+"\n"+
			`{"delete":{"status":{"id":55,"id_str":"55"}}}`+"\n"+
			`not json`+"\n"+
			`{"id":101,"text":"RT copy","created_at":"Sun Jan 23 00:00:02 +0000 2011","user":{"screen_name":"bob"},"retweeted_status":{"id":100,"user":{"id":7}}}`+"\n")

	// When: reading it
	seg, err := Tweets().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	// Then: two tweets, two skips
	require.Len(t, recs, 2)
	assert.Equal(t, 2, seg.Skipped())

	first := recs[0]
	assert.Equal(t, "100", first.ID)
	assert.Equal(t, "hello world", first.Contents)
	require.NotNil(t, first.Tweet)
	assert.Equal(t, "alice", first.Tweet.ScreenName)
	assert.Equal(t, "en", first.Tweet.Lang)
	assert.Equal(t, int64(1295740801), first.Tweet.CreatedAt.Unix())
	require.NotNil(t, first.Tweet.InReplyToStatusID)
	assert.Equal(t, int64(99), *first.Tweet.InReplyToStatusID)
	assert.False(t, first.Tweet.IsRetweet())

	second := recs[1]
	assert.Equal(t, "101", second.ID)
	assert.True(t, second.Tweet.IsRetweet())
	assert.Equal(t, int64(100), *second.Tweet.RetweetedStatusID)
}

func TestTRECSegment(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "ft911_1"), `<DOC>
<DOCNO> FT911-1 </DOCNO>
<HEADLINE>Markets rally</HEADLINE>
<TEXT>
Shares rose sharply.
</TEXT>
</DOC>
<DOC>
<DOCNO>
FT911-2
</DOCNO>
<TEXT>Second story.</TEXT>
</DOC>
<DOC>
<DOCNO> FT911-3 </DOCNO>
<TEXT>cut off
`)

	seg, err := TREC().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	assert.Equal(t, []string{"FT911-1", "FT911-2"}, ids(recs))
	assert.Equal(t, "Markets rally Shares rose sharply.", recs[0].Contents)
	assert.Equal(t, "Second story.", recs[1].Contents)
	assert.Contains(t, recs[0].Raw, "<HEADLINE>Markets rally</HEADLINE>")
	assert.Equal(t, 1, seg.Skipped())
	assert.False(t, seg.Err())
}

func TestTRECSegment_MissingDocNo(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "nodocno"), "<DOC>\n<TEXT>anonymous</TEXT>\n</DOC>\n")

	seg, err := TREC().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0].ID)
}

func TestParquetSegment(t *testing.T) {
	// Given: a parquet file with three rows
	path := filepath.Join(t.TempDir(), "part-0.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[ParquetRow](f)
	_, err = w.Write([]ParquetRow{
		{ID: "p1", Contents: "alpha"},
		{ID: "p2", Contents: "beta"},
		{ID: "", Contents: "gamma"},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	// When: reading it back
	seg, err := Parquet().NewSegment(path)
	require.NoError(t, err)
	recs := drain(t, seg)

	// Then: every row is a record in file order
	assert.Equal(t, []string{"p1", "p2", ""}, ids(recs))
	assert.Equal(t, "beta", recs[1].Contents)
	assert.JSONEq(t, `{"id":"p1","contents":"alpha"}`, recs[0].Raw)
	assert.False(t, seg.Err())
}
