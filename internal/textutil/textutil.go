// Package textutil provides narration text normalization and subtitle line
// wrapping.
//
// Normalization feeds the TTS cache key: two narration strings that differ
// only in Unicode composition form or whitespace runs synthesize identically,
// so they must fingerprint identically.
package textutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns text in NFC form with surrounding whitespace trimmed and
// interior whitespace runs collapsed to single spaces.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// Wrap inserts newlines so no line exceeds maxWidth display cells. Words wider
// than maxWidth are kept whole on their own line rather than split.
func Wrap(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	var current []string
	width := 0
	for _, word := range words {
		w := runewidth.StringWidth(word)
		if len(current) > 0 && width+1+w > maxWidth {
			lines = append(lines, strings.Join(current, " "))
			current = current[:0]
			width = 0
		}
		if len(current) > 0 {
			width++
		}
		current = append(current, word)
		width += w
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return strings.Join(lines, "\n")
}
