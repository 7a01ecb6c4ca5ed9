// Package fingerprint computes 64-bit SimHash fingerprints for
// near-duplicate detection independent of exact-text matching.
package fingerprint

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"

	"github.com/engramkit/engram/internal/text"
)

// NearDuplicateDistance is the maximum Hamming distance at which two
// fingerprints are considered near-duplicates.
const NearDuplicateDistance = 16

// Hash computes the SimHash of content over its keyword tokens.
// Near-duplicate texts (paraphrases, minor edits) produce fingerprints
// with small Hamming distance.
func Hash(content string) uint64 {
	tokens := text.Tokenize(content)
	if len(tokens) == 0 {
		// All-stopword input: fall back to raw words so the
		// fingerprint is still content-derived.
		tokens = strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	}

	var counts [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				counts[i]++
			} else {
				counts[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if counts[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similarity maps Hamming distance onto [0,1]; 1 means identical.
func Similarity(a, b uint64) float64 {
	return 1 - float64(Distance(a, b))/64
}

// NearDuplicate reports whether two fingerprints are within the
// near-duplicate threshold.
func NearDuplicate(a, b uint64) bool {
	return Distance(a, b) <= NearDuplicateDistance
}
