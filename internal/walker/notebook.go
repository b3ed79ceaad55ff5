package walker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/custodia-labs/m365-crawler/internal/extract"
	"github.com/custodia-labs/m365-crawler/internal/graph"
)

// NotebookWalker flattens a OneNote notebook into a single text document.
type NotebookWalker struct {
	client    *graph.Client
	extractor extract.Extractor
	log       *slog.Logger
}

// NewNotebookWalker creates a notebook walker. A nil logger uses slog's
// default.
func NewNotebookWalker(client *graph.Client, extractor extract.Extractor, log *slog.Logger) *NotebookWalker {
	if log == nil {
		log = slog.Default()
	}
	return &NotebookWalker{client: client, extractor: extractor, log: log}
}

// Content concatenates every section and page of a notebook into one
// document, sections and pages restored to creation order. Graph lists
// both newest first, so each drained collection is reversed before use.
// A page whose content cannot be fetched or extracted contributes its
// title only.
func (w *NotebookWalker) Content(ctx context.Context, scope graph.OnenoteScope, notebookID string) (string, error) {
	sectionsPage, err := w.client.ListSections(ctx, scope, notebookID)
	if err != nil {
		return "", err
	}
	sections, err := graph.Drain(ctx, sectionsPage)
	if err != nil {
		return "", err
	}
	reverse(sections)

	var parts []string
	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if section.DisplayName != "" {
			parts = append(parts, section.DisplayName)
		}

		pagesPage, err := w.client.ListPages(ctx, scope, section.ID)
		if err != nil {
			w.log.Warn("failed to list notebook section pages, skipping section",
				"notebook", notebookID, "section", section.DisplayName, "error", err)
			continue
		}
		pages, err := graph.Drain(ctx, pagesPage)
		if err != nil {
			w.log.Warn("failed to drain notebook section pages, skipping section",
				"notebook", notebookID, "section", section.DisplayName, "error", err)
			continue
		}
		reverse(pages)

		for _, page := range pages {
			if page.Title != "" {
				parts = append(parts, page.Title)
			}
			if text := w.pageText(ctx, scope, page); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

// pageText fetches and extracts one page's HTML content. Failures are
// logged and yield an empty string so one broken page cannot sink the
// whole notebook.
func (w *NotebookWalker) pageText(ctx context.Context, scope graph.OnenoteScope, page graph.OnenotePage) string {
	body, err := w.client.GetPageContent(ctx, scope, page.ID)
	if err != nil {
		w.log.Warn("failed to fetch notebook page content",
			"page", page.Title, "error", err)
		return ""
	}
	defer body.Close()

	text, err := w.extractor.Extract(ctx, body, "text/html")
	if err != nil {
		w.log.Warn("failed to extract notebook page content",
			"page", page.Title, "error", err)
		return ""
	}
	return text
}

// reverse flips a slice in place.
func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
