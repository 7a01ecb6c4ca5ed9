// Package text provides tokenization and sentence splitting shared by
// the fingerprint, essence and search packages.
package text

import (
	"strings"
	"unicode"
)

// stopwords are filtered out of keyword tokenization.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "am": true,
	"i": true, "me": true, "my": true, "you": true, "your": true, "it": true,
	"its": true, "he": true, "she": true, "they": true, "them": true,
	"we": true, "us": true, "our": true, "this": true, "that": true,
	"these": true, "those": true, "and": true, "or": true, "but": true,
	"not": true, "no": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "will": true, "would": true,
	"can": true, "could": true, "should": true, "of": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "with": true,
	"from": true, "by": true, "about": true, "as": true, "so": true,
	"very": true, "really": true, "just": true, "what": true, "which": true,
	"who": true, "when": true, "where": true, "how": true, "why": true,
}

// IsStopword reports whether the lowercase word is a stopword.
func IsStopword(w string) bool { return stopwords[w] }

// Tokenize splits text into lowercase alphanumeric keywords, dropping
// stopwords and de-duplicating while preserving first-seen order.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if f == "" || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// SplitSentences splits text on terminal punctuation boundaries.
// Abutting whitespace is trimmed and empty sentences are dropped.
func SplitSentences(s string) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		t := strings.TrimSpace(b.String())
		if t != "" {
			sentences = append(sentences, t)
		}
		b.Reset()
	}
	for _, r := range s {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			flush()
		}
	}
	flush()
	return sentences
}
