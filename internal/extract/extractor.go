// Package extract turns fetched content bytes into plain indexable text.
//
// The real deployment can delegate to a dedicated extraction service; this
// package defines the contract and ships a built-in HTML/plain-text
// extractor good enough for Graph content (OneNote pages and message
// bodies are HTML, most OneDrive text content is plain).
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMaxLengthExceeded indicates content was larger than the configured
// bound. Callers skip the item and record the failure.
var ErrMaxLengthExceeded = errors.New("extract: max content length exceeded")

// Extractor converts content bytes plus a MIME type into plain text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, mimeType string) (string, error)
}

// defaultLimit bounds extraction when no explicit and no per-type limit
// applies.
const defaultLimit = 10 * 1024 * 1024

// TextExtractor is the built-in extractor. A non-negative MaxLength
// applies to every MIME type; a negative MaxLength delegates the bound to
// the per-MIME-type defaults.
type TextExtractor struct {
	MaxLength int64
	limits    map[string]int64
}

// NewText creates a TextExtractor. Pass a negative maxLength to use
// per-MIME-type default bounds.
func NewText(maxLength int64) *TextExtractor {
	return &TextExtractor{
		MaxLength: maxLength,
		limits: map[string]int64{
			"text/html":                2_500_000,
			"application/xhtml+xml":    2_500_000,
			"application/octet-stream": 10_000_000,
		},
	}
}

// limit returns the effective bound for a MIME type.
func (e *TextExtractor) limit(mimeType string) int64 {
	if e.MaxLength >= 0 {
		return e.MaxLength
	}
	if l, ok := e.limits[baseMIME(mimeType)]; ok {
		return l
	}
	return defaultLimit
}

// Extract reads up to the bound for the MIME type and returns plain text.
// HTML input has its tags stripped; everything else is treated as text.
// Content exceeding the bound returns ErrMaxLengthExceeded.
func (e *TextExtractor) Extract(ctx context.Context, r io.Reader, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	max := e.limit(mimeType)
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	if int64(len(data)) > max {
		return "", fmt.Errorf("%w: over %d bytes", ErrMaxLengthExceeded, max)
	}

	text := string(data)
	if isHTML(mimeType) {
		text = StripHTML(text)
	}
	return strings.TrimSpace(text), nil
}

// isHTML reports whether a MIME type carries HTML markup.
func isHTML(mimeType string) bool {
	switch baseMIME(mimeType) {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

// baseMIME strips any parameters from a MIME type, e.g. "; charset=utf-8".
func baseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
