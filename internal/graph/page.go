package graph

import "context"

// listEnvelope is the Graph collection envelope shared by every list resource.
type listEnvelope[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// Page is one batch of a paginated Graph collection. Every list operation
// on the client returns a first page; follow Advance until HasNext is false.
type Page[T any] struct {
	// Items is the current batch, in Graph's returned order.
	Items []T

	next  string
	fetch func(ctx context.Context, url string) ([]T, string, error)
}

// HasNext reports whether another page is available.
func (p *Page[T]) HasNext() bool {
	return p.next != ""
}

// Advance fetches the next page. Returns nil when the collection is exhausted.
func (p *Page[T]) Advance(ctx context.Context) (*Page[T], error) {
	if p.next == "" {
		return nil, nil
	}
	items, next, err := p.fetch(ctx, p.next)
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, next: next, fetch: p.fetch}, nil
}

// Drain follows all pages and returns the full collection in order. Callers
// that must reorder a whole collection (notebook sections, chat messages)
// drain eagerly; traversal callers prefer EachPage.
func Drain[T any](ctx context.Context, page *Page[T]) ([]T, error) {
	var all []T
	err := EachPage(ctx, page, func(items []T) error {
		all = append(all, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// EachPage streams batches to fn until the collection is exhausted or fn
// returns an error. The drive walker streams page-by-page so item processing
// interleaves with worker submission.
func EachPage[T any](ctx context.Context, page *Page[T], fn func(items []T) error) error {
	for page != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(page.Items); err != nil {
			return err
		}
		var err error
		page, err = page.Advance(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}
