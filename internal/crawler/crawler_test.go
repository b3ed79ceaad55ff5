package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/custodia-labs/m365-crawler/internal/graph"
	"github.com/custodia-labs/m365-crawler/internal/roles"
)

// memoryCallback collects stored documents for assertions.
type memoryCallback struct {
	mu   sync.Mutex
	docs []Document
	err  error
}

func (m *memoryCallback) Store(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *memoryCallback) stored() []Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Document(nil), m.docs...)
}

// failureRecord is one recorded crawl failure.
type failureRecord struct {
	URL   string
	Cause string
}

// memorySink collects failure records for assertions.
type memorySink struct {
	mu      sync.Mutex
	records []failureRecord
}

func (m *memorySink) Record(ctx context.Context, url, cause string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, failureRecord{URL: url, Cause: cause})
}

func (m *memorySink) recorded() []failureRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]failureRecord(nil), m.records...)
}

// newTestDeps wires orchestrator collaborators against a fake Graph
// server with an effectively unlimited rate limiter.
func newTestDeps(t *testing.T, handler http.Handler) (Deps, *memoryCallback, *memorySink) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := graph.NewClient(graph.StaticTokenSource("test-token"),
		graph.WithBaseURL(server.URL),
		graph.WithRateLimit(graph.RateLimitConfig{RequestsPerSecond: 10000, BurstSize: 10000}),
	)
	t.Cleanup(client.Close)

	callback := &memoryCallback{}
	sink := &memorySink{}
	return Deps{
		Client:   client,
		Resolver: roles.New(client, roles.DefaultEncoder(), nil),
		Callback: callback,
		Failures: sink,
	}, callback, sink
}
