// Package http is the outbound fetch layer shared by all scrapers:
// direct requests with a browser User-Agent, falling back to a
// FlareSolverr bypass pool for bot-protected upstreams.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
)

var ErrNotJSON = errors.New("response body is not JSON")

type Client struct {
	userAgent string
	direct    *http.Client
	bypass    *bypassManager // nil when FLARESOLVERR_URL is unset
}

// NewClient builds the fetch layer. bypassURL may be empty, in which
// case blocked upstreams simply fail.
func NewClient(bypassURL string, maxSessions int) *Client {
	c := &Client{
		userAgent: DefaultUserAgent,
		direct:    &http.Client{},
	}
	if bypassURL != "" {
		c.bypass = newBypassManager(bypassURL, maxSessions)
	}
	return c
}

// RegisterScraper declares a scraper identity, its warmup URL and the
// degree of parallelism its session pool should cover.
func (c *Client) RegisterScraper(name, warmupURL string, parallelism int) {
	if c.bypass != nil {
		c.bypass.register(name, warmupURL, parallelism)
	}
}

// Probe fetches a scraper's front page over the standard path and
// promotes its pool to force-bypass when the site answers 401/403.
func (c *Client) Probe(ctx context.Context, scraper, frontURL string) {
	_, status, err := c.get(ctx, frontURL, DefaultTimeout)
	if err != nil {
		return
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if c.bypass != nil {
			c.bypass.promote(ctx, scraper, frontURL)
		}
	}
}

// RefreshSessions re-warms every force-bypass pool, recreating sessions
// that fail. At most one refresh runs per pool.
func (c *Client) RefreshSessions(ctx context.Context) {
	if c.bypass != nil {
		c.bypass.refreshAll(ctx)
	}
}

// FetchText GETs a URL on behalf of a scraper. Pools already in
// force-bypass route through the bypass service; a 401/403 on the
// standard path promotes the pool and retries once through it.
func (c *Client) FetchText(ctx context.Context, scraper, url string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if c.bypass != nil && c.bypass.forced(scraper) {
		return c.bypass.fetch(ctx, scraper, url, timeout)
	}

	body, status, err := c.get(ctx, url, timeout)
	if err != nil {
		return "", err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if c.bypass == nil {
			return "", fmt.Errorf("%s blocked with status %d", url, status)
		}
		c.bypass.promote(ctx, scraper, url)
		return c.bypass.fetch(ctx, scraper, url, timeout)
	}

	if status/100 != 2 {
		return "", fmt.Errorf("%s returned status %d", url, status)
	}
	return body, nil
}

// FetchJSON decodes a JSON body, accepting the bypass service's habit
// of wrapping JSON responses in <pre> tags.
func (c *Client) FetchJSON(ctx context.Context, scraper, url string, timeout time.Duration, v any) error {
	body, err := c.FetchText(ctx, scraper, url, timeout)
	if err != nil {
		return err
	}
	payload := ExtractJSON(body)
	if payload == "" {
		return ErrNotJSON
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.direct.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read body of %s: %w", url, err)
	}
	return string(body), resp.StatusCode, nil
}

// ExtractJSON returns the JSON payload of a body: either the trimmed
// body itself, or the contents of its first <pre> block.
func ExtractJSON(body string) string {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed
	}

	lower := strings.ToLower(trimmed)
	open := strings.Index(lower, "<pre")
	if open < 0 {
		return ""
	}
	gt := strings.Index(trimmed[open:], ">")
	if gt < 0 {
		return ""
	}
	rest := trimmed[open+gt+1:]
	end := strings.Index(strings.ToLower(rest), "</pre>")
	if end < 0 {
		return ""
	}

	inner := strings.TrimSpace(rest[:end])
	if strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[") {
		return inner
	}
	return ""
}
