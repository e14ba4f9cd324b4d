package bot

import (
	"regexp"
	"strings"
)

// maxTextLength is the truncation guard: longer descriptions are rejected
// before any network call.
const maxTextLength = 1000

var (
	lineBreaks = regexp.MustCompile(`\n+`)
	bullets    = regexp.MustCompile(`(?m)^\s*-\s*`)
	whitespace = regexp.MustCompile(`\s+`)
)

// normalizeText flattens repeated line breaks, strips leading bullet
// dashes and collapses excessive whitespace before the description is
// sent for analysis.
func normalizeText(text string) string {
	text = lineBreaks.ReplaceAllString(text, "\n")
	text = bullets.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
