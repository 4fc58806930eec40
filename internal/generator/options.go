package generator

import "strings"

// Options configures generators. It is built once per run and shared
// read-only by every partition.
type Options struct {
	// StoreRaw keeps the record's original serialized form in a "raw" field.
	StoreRaw bool
	// StoreContents keeps the analyzed contents retrievable.
	StoreContents bool
	// Fields limits which extra record fields are carried. Empty means all.
	Fields []string
	// Stopwords drive the emptiness check. Nil means DefaultStopwords.
	Stopwords map[string]struct{}
	// KeepStopwords makes any token count as content.
	KeepStopwords bool

	// KeepRetweets indexes retweets instead of skipping them.
	KeepRetweets bool
	// KeepURLs leaves URLs inside tweet text.
	KeepURLs bool
	// MaxID skips tweets with a larger id. Zero disables the check.
	MaxID int64
	// DeletedIDs lists tweet ids that must not be indexed.
	DeletedIDs map[string]struct{}
}

// defaultStopwords is the classic English stop set.
var defaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if", "in",
	"into", "is", "it", "no", "not", "of", "on", "or", "such", "that", "the",
	"their", "then", "there", "these", "they", "this", "to", "was", "will", "with",
}

// DefaultStopwords returns a fresh copy of the English stop list.
func DefaultStopwords() []string {
	out := make([]string, len(defaultStopwords))
	copy(out, defaultStopwords)
	return out
}

// StopwordSet lowercases words into a lookup set.
func StopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}

func (o Options) stopwords() map[string]struct{} {
	if o.Stopwords != nil {
		return o.Stopwords
	}
	return StopwordSet(defaultStopwords)
}
