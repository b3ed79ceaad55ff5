package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Default timings for the credential provider.
const (
	// DefaultAuthTimeout bounds a single token-endpoint exchange.
	DefaultAuthTimeout = 30 * time.Second
	// DefaultRefreshInterval is just under the typical one-hour token
	// lifetime so refresh pre-empts expiry.
	DefaultRefreshInterval = 3540 * time.Second
)

// Credentials identify the application to the Microsoft identity platform.
type Credentials struct {
	Tenant       string
	ClientID     string
	ClientSecret string
}

// TokenSource supplies bearer tokens for Graph requests. Refresh replaces
// the current token; the client calls it after an invalid-token response.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// StaticTokenSource is a fixed token, used by tests and pre-issued tokens.
type StaticTokenSource string

// Token returns the fixed token.
func (s StaticTokenSource) Token(context.Context) (string, error) { return string(s), nil }

// Refresh is a no-op for a static token.
func (s StaticTokenSource) Refresh(context.Context) error { return nil }

// ClientCredentialsSource acquires tokens via the OAuth2 client-credentials
// flow and refreshes them proactively on a fixed interval. The bearer is an
// atomically swappable value so in-flight requests read a consistent token
// while a refresh races; refreshes themselves are serialised under a mutex.
type ClientCredentialsSource struct {
	conf    *clientcredentials.Config
	timeout time.Duration

	refreshMu sync.Mutex
	bearer    atomic.Value // string

	log  *slog.Logger
	stop chan struct{}
	once sync.Once

	// refreshSignal overrides the interval ticker when set (tests).
	refreshSignal <-chan time.Time
	interval      time.Duration
}

// AuthOption configures a ClientCredentialsSource.
type AuthOption func(*ClientCredentialsSource)

// WithAuthTimeout bounds each token-endpoint exchange.
func WithAuthTimeout(d time.Duration) AuthOption {
	return func(s *ClientCredentialsSource) { s.timeout = d }
}

// WithRefreshInterval sets the proactive refresh interval.
func WithRefreshInterval(d time.Duration) AuthOption {
	return func(s *ClientCredentialsSource) { s.interval = d }
}

// WithTokenURL overrides the tenant token endpoint. Used by tests.
func WithTokenURL(url string) AuthOption {
	return func(s *ClientCredentialsSource) { s.conf.TokenURL = url }
}

// WithAuthLogger sets the logger for refresh outcomes.
func WithAuthLogger(log *slog.Logger) AuthOption {
	return func(s *ClientCredentialsSource) { s.log = log }
}

// withRefreshSignal replaces the interval ticker with an external channel,
// making proactive refresh deterministic in tests.
func withRefreshSignal(ch <-chan time.Time) AuthOption {
	return func(s *ClientCredentialsSource) { s.refreshSignal = ch }
}

// NewClientCredentialsSource performs the initial token exchange and starts
// the background refresh loop. Construction fails if any credential field is
// empty or the identity provider rejects the exchange; the client cannot be
// used without a token.
func NewClientCredentialsSource(creds Credentials, opts ...AuthOption) (*ClientCredentialsSource, error) {
	if creds.Tenant == "" || creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: tenant, client id and client secret are required", ErrAuth)
	}

	s := &ClientCredentialsSource{
		conf: &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL: fmt.Sprintf(
				"https://login.microsoftonline.com/%s/oauth2/v2.0/token", creds.Tenant),
			Scopes: []string{"https://graph.microsoft.com/.default"},
		},
		timeout:  DefaultAuthTimeout,
		interval: DefaultRefreshInterval,
		log:      slog.Default(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Refresh(context.Background()); err != nil {
		return nil, err
	}

	go s.refreshLoop()
	return s, nil
}

// Token returns the current bearer token.
func (s *ClientCredentialsSource) Token(context.Context) (string, error) {
	token, _ := s.bearer.Load().(string)
	if token == "" {
		return "", ErrAuth
	}
	return token, nil
}

// Refresh exchanges credentials for a fresh token and swaps it in. The
// periodic timer and the reactive retry path share this method, so a timer
// tick and a 401 retry never produce inconsistent state.
func (s *ClientCredentialsSource) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, err := s.conf.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	s.bearer.Store(token.AccessToken)
	return nil
}

// refreshLoop refreshes the token once per interval until Close. A failed
// proactive refresh keeps the stale token; the reactive retry path covers
// the case where it has actually expired.
func (s *ClientCredentialsSource) refreshLoop() {
	signal := s.refreshSignal
	if signal == nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		signal = ticker.C
	}

	for {
		select {
		case <-s.stop:
			return
		case <-signal:
			if err := s.Refresh(context.Background()); err != nil {
				s.log.Warn("proactive token refresh failed, keeping current token",
					"error", err)
			}
		}
	}
}

// Close stops the background refresh loop.
func (s *ClientCredentialsSource) Close() {
	s.once.Do(func() { close(s.stop) })
}
