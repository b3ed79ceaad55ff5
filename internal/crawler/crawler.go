// Package crawler orchestrates Microsoft 365 crawls: it enumerates
// resources through the graph client, materialises indexable documents
// through the walkers, resolves view permissions, and feeds an index
// callback from a bounded worker pool.
package crawler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/custodia-labs/m365-crawler/internal/crawler/config"
	"github.com/custodia-labs/m365-crawler/internal/extract"
	"github.com/custodia-labs/m365-crawler/internal/graph"
	"github.com/custodia-labs/m365-crawler/internal/roles"
)

// Deps are the collaborators shared by every orchestrator.
type Deps struct {
	Client    *graph.Client
	Resolver  *roles.Resolver
	Extractor extract.Extractor
	Callback  Callback
	Failures  FailureSink
	Logger    *slog.Logger
}

// base carries the per-run state common to the three orchestrators.
type base struct {
	client    *graph.Client
	resolver  *roles.Resolver
	extractor extract.Extractor
	callback  Callback
	failures  FailureSink
	cfg       *config.Config
	log       *slog.Logger

	mu     sync.Mutex
	runErr error
}

func initBase(b *base, deps Deps, cfg *config.Config) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	extractor := deps.Extractor
	if extractor == nil {
		extractor = extract.NewText(cfg.MaxContentLength)
	}
	failures := deps.Failures
	if failures == nil {
		failures = noopFailureSink{}
	}
	b.client = deps.Client
	b.resolver = deps.Resolver
	b.extractor = extractor
	b.callback = deps.Callback
	b.failures = failures
	b.cfg = cfg
	b.log = log
}

// recordFailure writes a failure record and, in strict mode, latches it
// as the run error so enumeration stops.
func (b *base) recordFailure(ctx context.Context, url string, err error) {
	b.failures.Record(ctx, url, CauseClass(err), err)
	if !b.cfg.IgnoreError {
		b.fail(err)
	}
}

// fail latches the first fatal error of the run.
func (b *base) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runErr == nil {
		b.runErr = err
	}
}

// aborted returns the latched run error, nil while the run is healthy.
func (b *base) aborted() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runErr
}

// store hands a document to the callback. Callback errors are always
// fatal: a broken sink means nothing downstream is being indexed.
func (b *base) store(ctx context.Context, doc Document) {
	if err := b.callback.Store(ctx, doc); err != nil {
		b.log.Error("index callback failed", "url", doc[FieldURL], "error", err)
		b.fail(err)
	}
}

// withDefaults appends the configured default permissions to resolved
// roles, preserving order and dropping duplicates.
func (b *base) withDefaults(resolved []string) []string {
	seen := make(map[string]struct{}, len(resolved)+len(b.cfg.DefaultPermissions))
	out := make([]string, 0, len(resolved)+len(b.cfg.DefaultPermissions))
	for _, r := range resolved {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	for _, r := range b.cfg.DefaultPermissions {
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// noopFailureSink swallows failure records when no sink is configured.
type noopFailureSink struct{}

func (noopFailureSink) Record(ctx context.Context, url, cause string, err error) {}
