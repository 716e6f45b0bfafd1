package utils

import (
	"math"
	"strings"
	"unicode"
)

// subwordRunes is the approximate number of runes per subword piece.
const subwordRunes = 4

// CountTokens returns a deterministic subword token estimate for text: each
// word contributes one piece per 4 runes (minimum one). Empty text counts 0.
func CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	total := 0
	for _, word := range strings.Fields(text) {
		runes := 0
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				runes++
			}
		}
		if runes == 0 {
			runes = 1
		}
		pieces := (runes + subwordRunes - 1) / subwordRunes
		if pieces < 1 {
			pieces = 1
		}
		total += pieces
	}
	if total == 0 {
		return FallbackTokenEstimate(text)
	}
	return total
}

// FallbackTokenEstimate is the coarse estimate used when subword counting
// yields nothing: ceil(word count * 0.75).
func FallbackTokenEstimate(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * 0.75))
}

// SplitSentences splits text on sentence-ending punctuation followed by a
// space. Text without terminators comes back as a single sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && runes[i+1] == ' ' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
