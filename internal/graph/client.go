package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// defaultPageSize is the $top value for list requests.
const defaultPageSize = 100

// Client is a thin, retrying, paginating façade over Microsoft Graph REST
// resources. It owns two bounded lookup caches (user type by id, group ids
// by email) which live for the lifetime of the client.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	limiter *RateLimiter
	log     *slog.Logger

	userTypes *loadingCache[string, UserType]
	groupIDs  *loadingCache[string, []string]
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph endpoint. Used by tests and sovereign clouds.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRateLimit overrides the default request pacing.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(c *Client) { c.limiter = NewRateLimiter(cfg) }
}

// WithCacheSizes bounds the user-type and group-id lookup caches.
func WithCacheSizes(userType, groupID int) Option {
	return func(c *Client) {
		c.userTypes = newLoadingCache(userType, c.loadUserType)
		c.groupIDs = newLoadingCache(groupID, c.loadGroupIDsByEmail)
	}
}

// NewClient creates a Graph client using the given token source.
func NewClient(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		tokens:  tokens,
		limiter: NewRateLimiter(DefaultRateLimit),
		log:     slog.Default(),
	}
	c.userTypes = newLoadingCache(DefaultCacheSize, c.loadUserType)
	c.groupIDs = newLoadingCache(DefaultCacheSize, c.loadGroupIDsByEmail)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close discards the client's caches. The token source is owned by the
// caller and must be closed separately.
func (c *Client) Close() {
	c.userTypes = newLoadingCache(DefaultCacheSize, c.loadUserType)
	c.groupIDs = newLoadingCache(DefaultCacheSize, c.loadGroupIDsByEmail)
}

// do performs an authenticated request. An InvalidAuthenticationToken
// response forces a synchronous token refresh and retries the same call
// exactly once before surfacing the error. No other transport retries
// happen here; walkers continue traversal past a failed node themselves.
func (c *Client) do(ctx context.Context, method, url string) (*http.Response, error) {
	resp, err := c.send(ctx, method, url)
	if err != nil {
		var gerr *GraphError
		if errors.As(err, &gerr) && gerr.IsInvalidToken() {
			if rerr := c.tokens.Refresh(ctx); rerr != nil {
				return nil, fmt.Errorf("token refresh after 401: %w", rerr)
			}
			return c.send(ctx, method, url)
		}
		return nil, err
	}
	return resp, nil
}

// send performs a single authenticated round-trip. Non-2xx responses are
// consumed and returned as a *GraphError.
func (c *Client) send(ctx context.Context, method, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		c.limiter.RecordRateLimitError(retryAfter)
	}

	return nil, newGraphError(resp.StatusCode, body)
}

// getJSON performs a GET and decodes the JSON response into v.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// getStream performs a GET and returns the raw body for content downloads.
// The caller must close the returned reader.
func (c *Client) getStream(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// list fetches the first page of a paginated collection.
func list[T any](ctx context.Context, c *Client, url string) (*Page[T], error) {
	fetch := func(ctx context.Context, u string) ([]T, string, error) {
		var envelope listEnvelope[T]
		if err := c.getJSON(ctx, u, &envelope); err != nil {
			return nil, "", err
		}
		return envelope.Value, envelope.NextLink, nil
	}
	items, next, err := fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, next: next, fetch: fetch}, nil
}
