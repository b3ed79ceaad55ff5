package extract

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockBreakPattern = regexp.MustCompile(`(?i)<(br|/p|/div|/li|/h[1-6]|/tr)\s*/?>`)
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
)

// StripHTML removes markup from an HTML fragment and unescapes entities,
// leaving readable plain text. Block-ish tags become newlines so that
// adjacent elements do not run together.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	// Breaks and paragraph boundaries become line breaks before the
	// generic tag strip flattens everything else.
	s = blockBreakPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
