// Package fetch performs cached, rate-limited JSON GET requests against a
// bibliographic provider.
package fetch

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lepinkainen/bookshelf/internal/ratelimit"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Cache is the response store consulted before the network.
type Cache interface {
	Select(key string) (string, bool, error)
	Insert(key, response string) error
	Delete(key string) error
}

// Client fetches JSON documents from one provider.
type Client struct {
	name        string
	baseURL     string
	userAgent   string
	httpClient  HTTPDoer
	rateLimiter *ratelimit.Limiter
	cache       Cache
	uncachedKey map[string]bool
	logger      *slog.Logger
	group       singleflight.Group
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The timeout of a custom client
// is the caller's responsibility.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithTimeout replaces the default client with one using timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		if timeout > 0 {
			client.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithBaseURL sets the provider base URL.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		if ua != "" {
			client.userAgent = ua
		}
	}
}

// WithRateLimiter sets the limiter guarding network calls. Limiters may be
// shared between clients to enforce one budget across providers.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(client *Client) {
		if l != nil {
			client.rateLimiter = l
		}
	}
}

// WithCache enables the response cache.
func WithCache(c Cache) Option {
	return func(client *Client) {
		client.cache = c
	}
}

// WithCacheKeyExclusions names query parameters left out of cache keys,
// such as API keys.
func WithCacheKeyExclusions(params ...string) Option {
	return func(client *Client) {
		for _, p := range params {
			client.uncachedKey[p] = true
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(client *Client) {
		if l != nil {
			client.logger = l
		}
	}
}

// NewClient creates a client for the provider called name.
func NewClient(name string, opts ...Option) *Client {
	client := &Client{
		name:        name,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		rateLimiter: ratelimit.New(name, ratelimit.DefaultCalls, ratelimit.DefaultWindow),
		uncachedKey: make(map[string]bool),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// BaseURL returns the provider base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOption tweaks a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	skipCache bool
}

// SkipCache bypasses the cache for both lookup and write-through.
func SkipCache() RequestOption {
	return func(o *requestOptions) {
		o.skipCache = true
	}
}

// URL builds the request URL for endpoint and params.
func (c *Client) URL(endpoint string, params url.Values) string {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// CacheKey is the base URL plus endpoint plus the query string with keys in
// sorted order, omitting excluded parameters. The "?" is always present.
func (c *Client) CacheKey(endpoint string, params url.Values) string {
	filtered := make(url.Values, len(params))
	for k, v := range params {
		if !c.uncachedKey[k] {
			filtered[k] = v
		}
	}
	// Encode sorts by key.
	return c.baseURL + endpoint + "?" + filtered.Encode()
}
