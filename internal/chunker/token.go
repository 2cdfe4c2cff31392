package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	tokensPerWord = 1.33
	// Runs longer than this (base64, hashes, minified data) cost one extra
	// token per four runes.
	longWordRunes = 16
)

// EstimateTokens gives a rough token count from whitespace-separated words.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	var extra float64
	fields := strings.Fields(text)
	for _, w := range fields {
		extra += longWordExtra(w)
	}
	tokens := int(float64(len(fields))*tokensPerWord + extra)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

func longWordExtra(w string) float64 {
	n := utf8.RuneCountInString(w)
	if n <= longWordRunes {
		return 0
	}
	return float64(n-longWordRunes) / 4
}
