package crawler

import (
	"context"
	"errors"

	"github.com/custodia-labs/m365-crawler/internal/extract"
	"github.com/custodia-labs/m365-crawler/internal/graph"
)

// Document is a normalised field map handed to the index callback.
type Document map[string]any

// Field names shared by every orchestrator.
const (
	FieldURL         = "url"
	FieldTitle       = "title"
	FieldContent     = "content"
	FieldMimetype    = "mimetype"
	FieldFiletype    = "filetype"
	FieldCreated     = "created"
	FieldModified    = "last_modified"
	FieldSize        = "content_length"
	FieldRoles       = "roles"
	FieldDescription = "description"
	FieldSender      = "sender"
	FieldParentID    = "parent_id"
	FieldParent      = "parent"
)

// Callback receives each crawled document. Implementations feed the
// search index.
type Callback interface {
	Store(ctx context.Context, doc Document) error
}

// FailureSink records URLs that could not be crawled, keyed by a cause
// class so operators can triage in bulk.
type FailureSink interface {
	Record(ctx context.Context, url, cause string, err error)
}

// Failure cause classes.
const (
	CauseNotFound     = "not_found"
	CauseAccessDenied = "access_denied"
	CauseRateLimited  = "rate_limited"
	CauseAuth         = "auth"
	CauseMaxLength    = "max_length"
	CauseCancelled    = "cancelled"
	CauseCrawl        = "crawl"
)

// CauseClass buckets an error into a failure cause class.
func CauseClass(err error) string {
	switch {
	case errors.Is(err, graph.ErrNotFound):
		return CauseNotFound
	case errors.Is(err, graph.ErrForbidden):
		return CauseAccessDenied
	case errors.Is(err, graph.ErrRateLimited):
		return CauseRateLimited
	case errors.Is(err, graph.ErrAuth):
		return CauseAuth
	case errors.Is(err, extract.ErrMaxLengthExceeded):
		return CauseMaxLength
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CauseCancelled
	default:
		return CauseCrawl
	}
}
