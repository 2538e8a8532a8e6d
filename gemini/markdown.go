package gemini

import (
	"regexp"
	"strings"
)

var (
	fencePattern   = regexp.MustCompile("(?s)```.*?```")
	boldPattern    = regexp.MustCompile(`\*{1,2}(.*?)\*{1,2}`)
	italicPattern  = regexp.MustCompile(`\b_(.*?)_\b`)
	headingPattern = regexp.MustCompile(`(?m)^#+\s*`)
	bulletPattern  = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
)

// CleanMarkdown strips formatting so generated text reads naturally when spoken.
func CleanMarkdown(text string) string {
	text = fencePattern.ReplaceAllString(text, "")
	text = bulletPattern.ReplaceAllString(text, "")
	text = boldPattern.ReplaceAllString(text, "$1")
	text = italicPattern.ReplaceAllString(text, "$1")
	text = headingPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
