package store

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
	"github.com/Aman-CERP/corpusidx/internal/generator"
)

const (
	// StopFilterType is the registered type of the configurable stop filter.
	StopFilterType = "corpus_stop"

	// stopFilterName is the instance of StopFilterType inside a mapping.
	stopFilterName = "corpus_stop_words"

	// AnalyzerName is the analyzer applied to every text field.
	AnalyzerName = "corpus_analyzer"
)

// Analyzer chains.
const (
	AnalyzerEnglish  = "en"
	AnalyzerStandard = "standard"
)

func init() {
	registry.RegisterTokenFilter(StopFilterType, stopFilterConstructor)
}

// stopFilterConstructor builds a stop filter from the "words" list in its
// mapping config. The list survives a round trip through index_meta.json,
// so both []string and []interface{} are accepted.
func stopFilterConstructor(config map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	words := map[string]struct{}{}
	switch list := config["words"].(type) {
	case []string:
		for _, w := range list {
			words[strings.ToLower(w)] = struct{}{}
		}
	case []interface{}:
		for _, v := range list {
			w, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("stop word %v is not a string", v)
			}
			words[strings.ToLower(w)] = struct{}{}
		}
	case nil:
	default:
		return nil, fmt.Errorf("stop filter words must be a list, got %T", list)
	}
	return &stopFilter{words: words}, nil
}

type stopFilter struct {
	words map[string]struct{}
}

func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := input[:0]
	for _, tok := range input {
		if _, stop := f.words[string(tok.Term)]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// buildMapping turns a generator schema into a bleve mapping. Every text
// field shares one analyzer: unicode tokenizer, lowercase, the stop filter
// unless stopwords are kept, and Porter stemming for the "en" chain.
func buildMapping(schema generator.Schema, cfg Config) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	filters := []string{lowercase.Name}
	if !cfg.KeepStopwords {
		words := cfg.Stopwords
		if words == nil {
			words = generator.DefaultStopwords()
		}
		list := make([]interface{}, len(words))
		for i, w := range words {
			list[i] = w
		}
		if err := im.AddCustomTokenFilter(stopFilterName, map[string]interface{}{
			"type":  StopFilterType,
			"words": list,
		}); err != nil {
			return nil, fmt.Errorf("failed to add stop filter: %w", err)
		}
		filters = append(filters, stopFilterName)
	}

	switch cfg.Analyzer {
	case "", AnalyzerEnglish:
		filters = append(filters, porter.Name)
	case AnalyzerStandard:
	default:
		return nil, unknownAnalyzer(cfg.Analyzer)
	}

	if err := im.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": filters,
	}); err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}
	im.DefaultAnalyzer = AnalyzerName

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = schema.Dynamic
	for _, spec := range schema.Fields {
		dm.AddFieldMappingsAt(spec.Name, fieldMapping(spec, cfg))
	}
	im.DefaultMapping = dm

	return im, nil
}

func fieldMapping(spec generator.FieldSpec, cfg Config) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch spec.Kind {
	case generator.Keyword:
		fm = bleve.NewKeywordFieldMapping()
	case generator.Numeric:
		fm = bleve.NewNumericFieldMapping()
	case generator.StoredOnly:
		fm = bleve.NewTextFieldMapping()
		fm.Index = false
		fm.IncludeTermVectors = false
		fm.DocValues = false
	default:
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = AnalyzerName
		fm.IncludeTermVectors = cfg.StoreTermVectors
	}
	fm.Store = spec.Store || spec.Kind == generator.StoredOnly
	fm.IncludeInAll = false
	return fm
}

// ValidateAnalyzer reports whether name selects a supported text chain.
func ValidateAnalyzer(name string) error {
	switch name {
	case "", AnalyzerEnglish, AnalyzerStandard:
		return nil
	}
	return unknownAnalyzer(name)
}

func unknownAnalyzer(name string) error {
	return cerrors.ConfigError(fmt.Sprintf("unknown analyzer %q", name), nil).
		WithDetail("analyzer", name).
		WithSuggestion(fmt.Sprintf("Use %q or %q", AnalyzerEnglish, AnalyzerStandard))
}
