package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

// flareSolverrResponse represents the response from FlareSolverr
type flareSolverrResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Session  string `json:"session"`
	Solution struct {
		URL      string `json:"url"`
		Status   int    `json:"status"`
		Response string `json:"response"`
	} `json:"solution"`
}

// pool is the per-scraper bypass state. Once promoted to force-bypass
// it stays there for the process lifetime.
type pool struct {
	mu sync.Mutex

	scraper   string
	warmupURL string
	size      int

	sessions    []string
	cursor      int
	forceBypass bool
	refreshing  bool
}

func (p *pool) next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sessions) == 0 {
		return ""
	}
	session := p.sessions[p.cursor%len(p.sessions)]
	p.cursor++
	return session
}

type bypassManager struct {
	endpoint    string
	maxSessions int
	httpc       *http.Client

	mu    sync.Mutex
	pools map[string]*pool
}

func newBypassManager(endpoint string, maxSessions int) *bypassManager {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &bypassManager{
		endpoint:    endpoint,
		maxSessions: maxSessions,
		// Challenge solving takes the headless browser a while.
		httpc: &http.Client{Timeout: 90 * time.Second},
		pools: make(map[string]*pool),
	}
}

func (m *bypassManager) register(scraper, warmupURL string, parallelism int) *pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[scraper]; ok {
		return p
	}
	size := parallelism
	if size > m.maxSessions {
		size = m.maxSessions
	}
	if size < 1 {
		size = 1
	}
	p := &pool{scraper: scraper, warmupURL: warmupURL, size: size}
	m.pools[scraper] = p
	return p
}

func (m *bypassManager) forced(scraper string) bool {
	m.mu.Lock()
	p, ok := m.pools[scraper]
	m.mu.Unlock()
	if !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forceBypass
}

// promote flips a pool into force-bypass, creating and warming its
// sessions if they do not exist yet.
func (m *bypassManager) promote(ctx context.Context, scraper, warmupFallback string) {
	p := m.register(scraper, warmupFallback, 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.warmupURL == "" {
		p.warmupURL = warmupFallback
	}
	if !p.forceBypass {
		slog.Info("Promoting scraper to bypass routing", "scraper", scraper)
		p.forceBypass = true
	}
	m.ensureSessionsLocked(ctx, p)
}

// ensureSessionsLocked creates and warms the pool's sessions up to its
// size. Caller holds p.mu.
func (m *bypassManager) ensureSessionsLocked(ctx context.Context, p *pool) {
	for i := len(p.sessions); i < p.size; i++ {
		session := fmt.Sprintf("%s-%d", p.scraper, i)
		if err := m.createSession(ctx, session); err != nil {
			slog.Warn("Bypass session create failed", "scraper", p.scraper, "session", session, "error", err)
			continue
		}
		if err := m.warm(ctx, p.warmupURL, session); err != nil {
			slog.Warn("Bypass session warmup failed", "scraper", p.scraper, "session", session, "error", err)
		}
		p.sessions = append(p.sessions, session)
	}
}

// fetch routes one GET through the bypass service with a round-robin
// session.
func (m *bypassManager) fetch(ctx context.Context, scraper, url string, timeout time.Duration) (string, error) {
	m.mu.Lock()
	p, ok := m.pools[scraper]
	m.mu.Unlock()

	var session string
	if ok {
		session = p.next()
	}
	return m.requestGet(ctx, url, session, timeout)
}

func (m *bypassManager) requestGet(ctx context.Context, url, session string, timeout time.Duration) (string, error) {
	cmd := map[string]any{
		"cmd":        "request.get",
		"url":        url,
		"maxTimeout": timeout.Milliseconds(),
	}
	if session != "" {
		cmd["session"] = session
	}

	resp, err := m.solve(ctx, cmd)
	if err != nil {
		return "", err
	}
	if resp.Solution.Status < 200 || resp.Solution.Status >= 300 {
		return "", fmt.Errorf("bypass solution returned status %d for %s", resp.Solution.Status, url)
	}
	if resp.Solution.Response == "" {
		return "", fmt.Errorf("bypass solution for %s is empty", url)
	}
	return resp.Solution.Response, nil
}

func (m *bypassManager) createSession(ctx context.Context, session string) error {
	_, err := m.solve(ctx, map[string]any{"cmd": "sessions.create", "session": session})
	return err
}

func (m *bypassManager) destroySession(ctx context.Context, session string) {
	if _, err := m.solve(ctx, map[string]any{"cmd": "sessions.destroy", "session": session}); err != nil {
		slog.Warn("Bypass session destroy failed", "session", session, "error", err)
	}
}

// warm loads the pool's warmup URL through a session so the browser
// profile holds a solved challenge.
func (m *bypassManager) warm(ctx context.Context, warmupURL, session string) error {
	if warmupURL == "" {
		return nil
	}
	return retry.Do(
		func() error {
			_, err := m.requestGet(ctx, warmupURL, session, DefaultTimeout)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
	)
}

// solve POSTs one command to the service's /v1 endpoint.
func (m *bypassManager) solve(ctx context.Context, cmd map[string]any) (*flareSolverrResponse, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/v1", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create bypass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call bypass service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read bypass response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bypass service returned status %d", resp.StatusCode)
	}

	var solverResp flareSolverrResponse
	if err := json.Unmarshal(body, &solverResp); err != nil {
		return nil, fmt.Errorf("failed to decode bypass response: %w", err)
	}
	if solverResp.Status != "ok" {
		return nil, fmt.Errorf("bypass service returned status %q: %s", solverResp.Status, solverResp.Message)
	}
	return &solverResp, nil
}

// refreshAll re-warms every force-bypass pool; failed sessions are
// destroyed and recreated. One refresh per pool at a time.
func (m *bypassManager) refreshAll(ctx context.Context) {
	m.mu.Lock()
	pools := make([]*pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.Unlock()

	for _, p := range pools {
		p.mu.Lock()
		if !p.forceBypass || p.refreshing {
			p.mu.Unlock()
			continue
		}
		p.refreshing = true
		sessions := make([]string, len(p.sessions))
		copy(sessions, p.sessions)
		warmupURL := p.warmupURL
		p.mu.Unlock()

		for _, session := range sessions {
			if err := m.warm(ctx, warmupURL, session); err == nil {
				continue
			}
			slog.Info("Recreating stale bypass session", "scraper", p.scraper, "session", session)
			m.destroySession(ctx, session)
			if err := m.createSession(ctx, session); err != nil {
				slog.Warn("Bypass session recreate failed", "scraper", p.scraper, "session", session, "error", err)
				continue
			}
			if err := m.warm(ctx, warmupURL, session); err != nil {
				slog.Warn("Bypass session warmup failed", "scraper", p.scraper, "session", session, "error", err)
			}
		}

		p.mu.Lock()
		p.refreshing = false
		p.mu.Unlock()
	}
}
