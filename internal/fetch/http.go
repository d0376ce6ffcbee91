package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
)

type result struct {
	body   []byte
	cached bool
}

// Get returns the JSON document at endpoint. Cache hits do not consume rate
// budget. Failures are classified as TransportError, UpstreamError or
// DecodeError and are never retried.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, opts ...RequestOption) ([]byte, error) {
	res, err := c.get(ctx, endpoint, params, collect(opts))
	if err != nil {
		return nil, err
	}
	return res.body, nil
}

// GetJSON fetches endpoint and decodes it into target. A cached document
// that no longer decodes is evicted and fetched again; a fresh document that
// does not decode is a DecodeError.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, target any, opts ...RequestOption) error {
	o := collect(opts)
	res, err := c.get(ctx, endpoint, params, o)
	if err != nil {
		return err
	}

	decodeErr := json.Unmarshal(res.body, target)
	if decodeErr == nil {
		return nil
	}

	display := c.displayURL(endpoint, params)
	if !res.cached {
		return shelferrors.NewDecodeError(display, decodeErr)
	}

	key := c.CacheKey(endpoint, params)
	c.logger.Warn("Cached response no longer decodes, refetching", "provider", c.name, "url", display, "error", decodeErr)
	if err := c.cache.Delete(key); err != nil {
		c.logger.Warn("Failed to evict cache entry", "provider", c.name, "key", key, "error", err)
	}

	fresh, err := c.fetch(ctx, endpoint, params, key, o)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(fresh, target); err != nil {
		return shelferrors.NewDecodeError(display, err)
	}
	return nil
}

func collect(opts []RequestOption) requestOptions {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (c *Client) useCache(o requestOptions) bool {
	return c.cache != nil && !o.skipCache
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, o requestOptions) (result, error) {
	key := c.CacheKey(endpoint, params)

	if c.useCache(o) {
		if body, ok := c.lookup(key); ok {
			return result{body: body, cached: true}, nil
		}
	}

	// Concurrent callers asking for the same document share one request. The
	// request outlives any single caller's cancellation so the others still
	// get the document; each caller stops waiting when its own ctx ends.
	if err := ctx.Err(); err != nil {
		return result{}, c.cancelled(endpoint, params, err)
	}
	flight := key
	if o.skipCache {
		flight = "nocache " + key
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flight, func() (any, error) {
		if c.useCache(o) {
			if body, ok := c.lookup(key); ok {
				return result{body: body, cached: true}, nil
			}
		}
		body, err := c.fetch(shared, endpoint, params, key, o)
		if err != nil {
			return nil, err
		}
		return result{body: body}, nil
	})

	select {
	case <-ctx.Done():
		return result{}, c.cancelled(endpoint, params, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return result{}, res.Err
		}
		return res.Val.(result), nil
	}
}

func (c *Client) cancelled(endpoint string, params url.Values, err error) error {
	return shelferrors.NewTransportError(c.displayURL(endpoint, params), errors.Is(err, context.DeadlineExceeded), err)
}

func (c *Client) lookup(key string) ([]byte, bool) {
	cached, ok, err := c.cache.Select(key)
	if err != nil {
		c.logger.Warn("Cache lookup failed, fetching directly", "provider", c.name, "key", key, "error", err)
		return nil, false
	}
	if !ok {
		c.logger.Debug("cache miss", "provider", c.name, "key", key)
		return nil, false
	}
	c.logger.Debug("cache hit", "provider", c.name, "key", key)
	return []byte(cached), true
}

func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values, key string, o requestOptions) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	display := c.displayURL(endpoint, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", display, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shelferrors.NewTransportError(display, isTimeout(err), err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logResponse(resp.StatusCode, display, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, upstreamError(display, resp, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shelferrors.NewTransportError(display, isTimeout(err), fmt.Errorf("reading body: %w", err))
	}
	if !json.Valid(body) {
		return nil, shelferrors.NewDecodeError(display, errors.New("response is not valid JSON"))
	}

	if c.useCache(o) {
		if err := c.cache.Insert(key, string(body)); err != nil {
			// A cache write failure must not fail the request.
			c.logger.Warn("Failed to cache response", "provider", c.name, "key", key, "error", err)
		}
	}

	return body, nil
}

// Ping sends a HEAD request to the base URL. It does not touch the cache or
// the rate limiter.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shelferrors.NewTransportError(c.baseURL, isTimeout(err), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return shelferrors.NewUpstreamError(c.baseURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}

func (c *Client) logResponse(status int, target string, elapsed time.Duration) {
	level := slog.LevelDebug
	switch {
	case status == http.StatusNotFound:
		level = slog.LevelInfo
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	c.logger.Log(context.Background(), level, "GET", "provider", c.name, "status", status, "url", target, "elapsed", elapsed)
}

// displayURL is the request URL with excluded parameters masked, safe for
// logs and error messages.
func (c *Client) displayURL(endpoint string, params url.Values) string {
	if len(c.uncachedKey) == 0 || len(params) == 0 {
		return c.URL(endpoint, params)
	}
	masked := make(url.Values, len(params))
	for k, v := range params {
		if c.uncachedKey[k] {
			masked.Set(k, "REDACTED")
			continue
		}
		masked[k] = v
	}
	return c.URL(endpoint, masked)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func upstreamError(display string, resp *http.Response, body []byte) error {
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return shelferrors.NewRateLimitError(display, msg, retryAfter(resp.Header.Get("Retry-After")))
	}
	return shelferrors.NewUpstreamError(display, resp.StatusCode, msg)
}

// errorMessage extracts the provider's error text. Open Library answers
// {"error": "notfound"}, Google Books {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Error) > 0 {
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return strings.TrimSpace(payload.Message)
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}
