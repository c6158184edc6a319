// Package zep is a small REST client for the Zep Cloud v2 memory API.
//
// It covers exactly the surface this server uses: users, sessions,
// per-session memory and search. Read endpoints that back frequent tool
// calls go through a TTL cache; writes invalidate the affected entries.
// Every request carries a generated X-Request-Id that is echoed in logs
// and errors so a failing tool call can be traced to a gateway request.
package zep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the hosted Zep Cloud endpoint.
	DefaultBaseURL = "https://api.getzep.com"

	// DefaultTimeout bounds a single gateway request.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 2048
)

// ErrNotFound is returned when the gateway reports 404 for the
// addressed user or session.
var ErrNotFound = errors.New("zep: not found")

// APIError is a non-2xx gateway response other than 404.
type APIError struct {
	StatusCode int
	RequestID  string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway returned status %d (request %s)", e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("gateway returned status %d (request %s): %s", e.StatusCode, e.RequestID, e.Body)
}

// Config holds client construction options.
type Config struct {
	// APIKey authenticates every request. Required.
	APIKey string

	// BaseURL overrides DefaultBaseURL, e.g. for a self-hosted gateway.
	BaseURL string

	// Timeout overrides DefaultTimeout.
	Timeout time.Duration

	// CacheTTL is the read-cache lifetime. Zero disables caching.
	CacheTTL time.Duration

	// Logger receives request-level debug logs. Nil means no logging.
	Logger *zap.Logger
}

// Client talks to the Zep gateway. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	reads   *cache.Cache
	log     *zap.Logger
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("zep: api key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var reads *cache.Cache
	if cfg.CacheTTL > 0 {
		reads = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		reads:   reads,
		log:     log,
	}, nil
}

// ─── Transport ───────────────────────────────────────────────────────────────

// do sends one JSON request and decodes the JSON response into out
// (skipped when out is nil). 404 maps onto ErrNotFound; any other
// non-2xx status becomes a wrapped *APIError carrying the request id.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("zep: %s %s: marshaling request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("zep: %s %s: creating request: %w", method, path, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("zep: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("gateway request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("zep: %s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Body:       strings.TrimSpace(string(data)),
		}
		c.log.Warn("gateway error",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("zep: %s %s: %w", method, path, apiErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("zep: %s %s: decoding response: %w", method, path, err)
	}
	return nil
}

// ─── Read cache ──────────────────────────────────────────────────────────────

func (c *Client) cacheGet(key string, out any) bool {
	if c.reads == nil {
		return false
	}
	v, ok := c.reads.Get(key)
	if !ok {
		return false
	}
	data, ok := v.([]byte)
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Client) cacheSet(key string, v any) {
	if c.reads == nil {
		return
	}
	// Values are stored as JSON so cache hits hand out fresh copies,
	// never shared mutable structs.
	if data, err := json.Marshal(v); err == nil {
		c.reads.Set(key, data, cache.DefaultExpiration)
	}
}

func (c *Client) cacheDelete(key string) {
	if c.reads != nil {
		c.reads.Delete(key)
	}
}

// cacheDeletePrefix drops every entry whose key starts with prefix.
func (c *Client) cacheDeletePrefix(prefix string) {
	if c.reads == nil {
		return
	}
	for key := range c.reads.Items() {
		if strings.HasPrefix(key, prefix) {
			c.reads.Delete(key)
		}
	}
}
