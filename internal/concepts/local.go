package concepts

import (
	"context"
	"strings"
)

// defaultMaxConcepts bounds local extraction output.
const defaultMaxConcepts = 8

// stopwords are skipped as concept candidates and break bigram chains.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "can": {}, "do": {}, "for": {}, "from": {},
	"had": {}, "has": {}, "have": {}, "how": {}, "i": {}, "if": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "me": {}, "my": {}, "no": {},
	"not": {}, "of": {}, "on": {}, "or": {}, "our": {}, "so": {},
	"that": {}, "the": {}, "their": {}, "then": {}, "there": {},
	"they": {}, "this": {}, "to": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "which": {}, "who": {}, "why": {}, "will": {},
	"with": {}, "would": {}, "you": {}, "your": {},
}

// LocalExtractor implements Extractor with a deterministic heuristic:
// content words and adjacent content-word bigrams, lowercased.
type LocalExtractor struct {
	maxConcepts int
}

// NewLocalExtractor creates a LocalExtractor from the given Config.
func NewLocalExtractor(cfg Config) *LocalExtractor {
	max := cfg.MaxConcepts
	if max <= 0 {
		max = defaultMaxConcepts
	}
	return &LocalExtractor{maxConcepts: max}
}

// Extract tokenizes text and returns deduped unigram and bigram
// concept phrases in first-seen order. It never fails.
func (e *LocalExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	tokens := tokenize(text)

	var raw []string
	prev := ""
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			prev = ""
			continue
		}
		raw = append(raw, tok)
		if prev != "" {
			raw = append(raw, prev+" "+tok)
		}
		prev = tok
	}
	return normalizeAll(raw, e.maxConcepts), nil
}

// tokenize splits text into lowercase word tokens, keeping unicode
// letters and dropping single-character noise.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '_' || r == '-' ||
			r > 127)
	})
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(f)
		if len(w) > 1 {
			result = append(result, w)
		}
	}
	return result
}
