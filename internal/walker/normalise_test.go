package walker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/m365-crawler/internal/graph"
)

func TestIsSystemEvent(t *testing.T) {
	tests := []struct {
		name     string
		body     *graph.ItemBody
		expected bool
	}{
		{
			name:     "nil body",
			body:     nil,
			expected: false,
		},
		{
			name:     "system event marker",
			body:     &graph.ItemBody{ContentType: "html", Content: "<systemEventMessage/>"},
			expected: true,
		},
		{
			name:     "system event marker with surrounding whitespace",
			body:     &graph.ItemBody{ContentType: "html", Content: "  <systemEventMessage/>\n"},
			expected: true,
		},
		{
			name:     "ordinary message",
			body:     &graph.ItemBody{ContentType: "html", Content: "<p>hello</p>"},
			expected: false,
		},
		{
			name:     "marker embedded in real content",
			body:     &graph.ItemBody{ContentType: "html", Content: "before <systemEventMessage/> after"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSystemEvent(graph.ChatMessage{Body: tt.body}))
		})
	}
}

func TestNormaliseBody(t *testing.T) {
	tests := []struct {
		name     string
		body     *graph.ItemBody
		expected string
	}{
		{
			name:     "nil body",
			body:     nil,
			expected: "",
		},
		{
			name:     "plain text kept verbatim",
			body:     &graph.ItemBody{ContentType: "text", Content: "just text"},
			expected: "just text",
		},
		{
			name:     "plain text keeps angle brackets",
			body:     &graph.ItemBody{ContentType: "text", Content: "a < b"},
			expected: "a < b",
		},
		{
			name:     "html stripped",
			body:     &graph.ItemBody{ContentType: "html", Content: "<p>hello <b>world</b></p>"},
			expected: "hello world",
		},
		{
			name:     "attachment placeholders dropped",
			body:     &graph.ItemBody{ContentType: "html", Content: `see <attachment id="1"></attachment> attached`},
			expected: "see attached",
		},
		{
			name:     "self closing attachment placeholder dropped from text body",
			body:     &graph.ItemBody{ContentType: "text", Content: `report: <attachment id="2"/>`},
			expected: "report:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormaliseBody(tt.body))
		})
	}
}
