// Package document provides text statistics and snippets for markdown
// documents: plain-text extraction, word counts for run metadata, and short
// previews used in memory entries and run listings.
package document

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
)

// PlainText renders markdown to HTML and strips the tags, leaving the
// readable text content.
func PlainText(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		// goldmark does not fail on any text input; fall back to the raw
		// source so word counts never silently become zero.
		return md
	}
	return stripHTMLTags(buf.String())
}

// WordCount counts whitespace-separated words in the readable text of a
// markdown document.
func WordCount(md string) int {
	return len(strings.Fields(PlainText(md)))
}

// Preview returns at most maxChars runes of text, cut at a sentence or word
// boundary where possible, with an ellipsis appended when truncated.
func Preview(text string, maxChars int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}

	cut := boundary(runes, maxChars)
	return strings.TrimSpace(string(runes[:cut])) + "..."
}

// Bound returns text limited to at most maxChars runes, preserving the
// original layout. The cut is attempted (in order of preference) at a
// paragraph boundary, sentence-ending punctuation followed by a space, a
// whitespace word boundary, then a hard cut. If text fits, or maxChars <= 0,
// it is returned unchanged.
func Bound(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}

	candidate := string(runes[:maxChars])

	if idx := strings.LastIndex(candidate, "\n\n"); idx > 0 {
		return strings.TrimSpace(candidate[:idx])
	}
	if idx := strings.LastIndex(candidate, "\r\n\r\n"); idx > 0 {
		return strings.TrimSpace(candidate[:idx])
	}

	cruns := []rune(candidate)
	for i := len(cruns) - 2; i > 0; i-- {
		r := cruns[i]
		if (r == '.' || r == '!' || r == '?') && unicode.IsSpace(cruns[i+1]) {
			return strings.TrimSpace(string(cruns[:i+1]))
		}
	}
	for i := len(cruns) - 1; i > 0; i-- {
		if unicode.IsSpace(cruns[i]) {
			return strings.TrimSpace(string(cruns[:i]))
		}
	}
	return candidate
}

// boundary searches backwards from maxChars for the best cut point:
// sentence-ending punctuation first, then whitespace, then a hard cut.
// At least half the budget is kept so a single long token cannot collapse
// the preview to nothing.
func boundary(runes []rune, maxChars int) int {
	minCut := maxChars / 2

	for i := maxChars - 1; i > minCut; i-- {
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			return i + 1
		}
	}
	for i := maxChars - 1; i > minCut; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return maxChars
}

func stripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return result.String()
}
