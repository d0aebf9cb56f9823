// Package concepts extracts normalized concept phrases from raw text.
// The recall subsystem treats extraction as an opaque service; failures
// degrade to "no concepts" rather than surfacing as turn errors.
package concepts

import (
	"context"
	"strings"
)

// maxPhraseWords bounds a normalized concept phrase.
const maxPhraseWords = 4

// Extractor produces normalized concept phrases from text.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// Config holds extractor configuration.
type Config struct {
	Provider    string `json:"provider"` // "api" or "local"
	Endpoint    string `json:"endpoint"`
	Model       string `json:"model"`
	APIKey      string `json:"api_key"`
	MaxConcepts int    `json:"max_concepts"`
}

// Normalize lowercases and whitespace-collapses a phrase, returning
// ("", false) when the result is empty or longer than four words.
func Normalize(phrase string) (string, bool) {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 || len(words) > maxPhraseWords {
		return "", false
	}
	return strings.Join(words, " "), true
}

// normalizeAll filters and dedupes a list of raw phrases, keeping
// first-seen order.
func normalizeAll(raw []string, limit int) []string {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, r := range raw {
		p, ok := Normalize(r)
		if !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
