// Package source retrieves raw rule lists from remote URLs or local files.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"rulemerge/internal/backoff"
)

const maxBodySize = 64 << 20

// Config bounds how sources are fetched.
type Config struct {
	Timeout       time.Duration // per attempt
	MaxAttempts   int
	Backoff       time.Duration // initial delay between attempts
	MaxBackoff    time.Duration
	Concurrency   int     // parallel fetches per FetchAll call
	RatePerSecond float64 // 0 disables pacing
	Burst         int
	UserAgent     string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.Backoff <= 0 {
		c.Backoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.UserAgent == "" {
		c.UserAgent = "rulemerge/1.0"
	}
	return c
}

// Result is the outcome of fetching one source. Err is nil or a *FetchError.
type Result struct {
	URL      string
	Body     []byte
	Attempts int
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Lines returns the body split into raw lines; nil for a failed fetch.
func (r Result) Lines() []string {
	if r.Err != nil {
		return nil
	}
	return SplitLines(r.Body)
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	maxBody int64
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for remote sources.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{},
		maxBody: maxBodySize,
	}
	if cfg.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll fetches every URL with bounded concurrency. Results are returned
// in the order of urls regardless of completion order.
func (c *Client) FetchAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = c.Fetch(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Fetch retrieves one source, retrying transient failures up to
// MaxAttempts times. Each attempt is bounded by Timeout.
func (c *Client) Fetch(ctx context.Context, rawURL string) Result {
	var last *FetchError
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoff.Exponential(c.cfg.Backoff, c.cfg.MaxBackoff, attempt-1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				last.Err = errors.Join(last.Err, ctx.Err())
				return Result{URL: rawURL, Attempts: last.Attempts, Err: last}
			case <-timer.C:
			}
		}

		body, ferr := c.fetchOnce(ctx, rawURL)
		if ferr == nil {
			return Result{URL: rawURL, Body: body, Attempts: attempt}
		}
		ferr.Attempts = attempt
		last = ferr
		if !ferr.retryable() || ctx.Err() != nil {
			break
		}
	}
	return Result{URL: rawURL, Attempts: last.Attempts, Err: last}
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]byte, *FetchError) {
	fail := func(reason Reason, err error) *FetchError {
		return &FetchError{URL: rawURL, Reason: reason, Err: err}
	}

	target, isFile, err := resolve(rawURL)
	if err != nil {
		return nil, fail(ReasonInvalidURL, err)
	}

	var body []byte
	if isFile {
		body, err = os.ReadFile(target)
		if err != nil {
			return nil, fail(ReasonRead, err)
		}
		if int64(len(body)) > c.maxBody {
			return nil, fail(ReasonRead, ErrBodyTooLarge)
		}
	} else {
		var ferr *FetchError
		body, ferr = c.get(ctx, target)
		if ferr != nil {
			return nil, ferr
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fail(ReasonEmpty, ErrEmptyBody)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, *FetchError) {
	fail := func(reason Reason, err error) *FetchError {
		return &FetchError{URL: target, Reason: reason, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fail(classify(err), err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fail(ReasonInvalidURL, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(classify(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		fe := fail(ReasonStatus, fmt.Errorf("unexpected status: %s", resp.Status))
		fe.StatusCode = resp.StatusCode
		return nil, fe
	}

	// one byte past the limit tells a full body from a truncated one
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		reason := classify(err)
		if reason == ReasonTransport {
			reason = ReasonRead
		}
		return nil, fail(reason, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > c.maxBody {
		return nil, fail(ReasonRead, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, c.maxBody))
	}
	return body, nil
}

func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}
	return ReasonTransport
}

// resolve accepts http(s) URLs, file:// URLs and plain filesystem paths.
func resolve(raw string) (target string, isFile bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("empty source")
	}
	if strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../") || strings.HasPrefix(raw, "/") {
		return raw, true, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, err
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return "", false, fmt.Errorf("missing host in %q", raw)
		}
		return raw, false, nil
	case "file":
		return filepath.FromSlash(u.Path), true, nil
	case "":
		return raw, true, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
