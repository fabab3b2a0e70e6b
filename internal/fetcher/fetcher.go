// Package fetcher is the one process-wide collaborator the recorder uses
// for auxiliary HTTP(S) fetches (album pages, cover images): section 4.4.
// It is rate-limited and retries on 429/503 honoring Retry-After, with
// support for an optional proxy URL.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Fetcher is constructed once at process init and passed explicitly to
// every call site (section 9's "process-wide fetcher handle" design note)
// rather than reached for as a hidden ambient.
type Fetcher struct {
	client      *http.Client
	retryCount  int
	retryBase   time.Duration
	minInterval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// Config configures a new Fetcher.
type Config struct {
	Timeout     time.Duration
	RetryCount  int
	RetryBase   time.Duration
	MinInterval time.Duration
	ProxyURL    string // optional, section 6's "proxy"/"control_proxy" settings
}

// New builds a Fetcher. A non-empty ProxyURL configures the underlying
// transport to route every request through it.
func New(cfg Config) (*Fetcher, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("fetcher: invalid proxy URL %q: %w", cfg.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 1
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		retryCount:  retryCount,
		retryBase:   cfg.RetryBase,
		minInterval: cfg.MinInterval,
	}, nil
}

// Close releases the Fetcher's idle connections. It is the "free-once" half
// of the process-wide handle's init-once/free-once lifecycle (section 9);
// callers invoke it once at process shutdown, never per-song.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

// Fetch retrieves the full body at url. Timeouts and cancellation are the
// caller's responsibility via ctx; the core exposes no cancellation API of
// its own (section 5).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: build request: %w", err)
	}

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetcher: %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}
	return body, nil
}

func (f *Fetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < f.retryCount; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := f.throttle(ctx); err != nil {
			return nil, err
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfter(resp)
			resp.Body.Close()
			lastErr = fmt.Errorf("fetcher: rate limited (status %d)", resp.StatusCode)

			wait := time.Duration(attempt+1) * f.retryBase
			if retryAfter > wait {
				wait = retryAfter
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		} else {
			return resp, nil
		}

		if err := sleep(ctx, time.Duration(attempt+1)*f.retryBase); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Fetcher) throttle(ctx context.Context) error {
	f.mu.Lock()
	now := time.Now()
	nextAllowed := f.lastRequest.Add(f.minInterval)
	var wait time.Duration
	if now.Before(nextAllowed) {
		wait = nextAllowed.Sub(now)
		f.lastRequest = nextAllowed
	} else {
		f.lastRequest = now
	}
	f.mu.Unlock()

	return sleep(ctx, wait)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}
