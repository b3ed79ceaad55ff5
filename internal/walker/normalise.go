package walker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/m365-crawler/internal/extract"
	"github.com/custodia-labs/m365-crawler/internal/graph"
)

// systemEventBody is the exact body Graph emits for membership changes,
// call events and other non-user messages.
const systemEventBody = "<systemEventMessage/>"

var attachmentTagPattern = regexp.MustCompile(`<attachment[^>]*>|</attachment>`)

// IsSystemEvent reports whether a message is a Teams system event rather
// than something a person wrote.
func IsSystemEvent(m graph.ChatMessage) bool {
	return m.Body != nil && strings.TrimSpace(m.Body.Content) == systemEventBody
}

// NormaliseBody returns the plain-text content of a message body.
// Attachment placeholder tags are dropped, and HTML bodies have their
// remaining markup stripped.
func NormaliseBody(body *graph.ItemBody) string {
	if body == nil {
		return ""
	}
	content := attachmentTagPattern.ReplaceAllString(body.Content, "")
	if body.IsHTML() {
		content = extract.StripHTML(content)
	}
	return strings.TrimSpace(content)
}
