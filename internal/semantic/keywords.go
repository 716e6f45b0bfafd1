// Package semantic detects topic boundaries between adjacent text units
// using embeddings and keyword overlap.
package semantic

import (
	"sort"
	"strings"
	"unicode"
)

const (
	topKeywords    = 5
	minKeywordRune = 4 // words longer than 3 characters
)

// ExtractKeywords returns the top-n keywords of text by simple frequency
// count. Words are lowercased, stripped of punctuation, and must be longer
// than 3 characters. Ties break by first appearance so output is stable.
func ExtractKeywords(text string, n int) []string {
	if n <= 0 {
		n = topKeywords
	}
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(word)) < minKeywordRune {
			continue
		}
		if _, seen := counts[word]; !seen {
			firstSeen[word] = order
			order++
		}
		counts[word]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// KeywordOverlap returns the fraction of shared keywords between two sets,
// measured against the smaller set. Two empty sets overlap fully.
func KeywordOverlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	shared := 0
	for _, w := range b {
		if set[w] {
			shared++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller)
}
