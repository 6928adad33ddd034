// Package scraper fetches list and item pages from the remote source and
// turns them into item references and records.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// Response is a successfully fetched document.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves documents by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

var _ Fetcher = (*Client)(nil)

// retryStatuses are the server errors worth another attempt.
var retryStatuses = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client issues GET requests through a shared colly backend, retrying
// transient failures with backoff. It is safe for concurrent use.
type Client struct {
	cfg       *config.Config
	collector *colly.Collector
	limiter   *rate.Limiter
	Metrics   *Metrics

	requestCount int64
	retryCount   int64
}

// NewClient builds a client configured from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.PoolSize,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	c := &Client{
		cfg:       cfg,
		collector: collector,
		Metrics:   NewMetrics(),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

// WithTransport replaces the underlying HTTP transport.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
}

// Fetch retrieves url. Retryable failures (timeouts, connection errors and
// 500/502/503/504) are attempted up to MaxRetries more times; exhausting them
// yields a TransientFetchFailure. Client errors return immediately.
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	maxAttempts := c.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		atomic.AddInt64(&c.retryCount, 1)
		c.Metrics.IncRetries()

		delay := c.backoff(attempt)
		slog.Debug("retrying request",
			slog.String("url", url),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		if err := Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, TransientFetchFailure{URL: url, Attempts: maxAttempts, Err: lastErr}
}

// Retries returns the number of retries scheduled so far.
func (c *Client) Retries() int {
	return int(atomic.LoadInt64(&c.retryCount))
}

// Requests returns the number of requests issued so far.
func (c *Client) Requests() int {
	return int(atomic.LoadInt64(&c.requestCount))
}

func (c *Client) do(ctx context.Context, url string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	// Clones share the backend (transport, pool, limits) but not callbacks.
	collector := c.collector.Clone()

	var (
		resp   *colly.Response
		reqErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		resp = r
	})
	collector.OnError(func(r *colly.Response, err error) {
		resp = r
		reqErr = err
	})

	atomic.AddInt64(&c.requestCount, 1)
	c.Metrics.IncRequest("started")
	start := time.Now()
	visitErr := collector.Visit(url)
	c.Metrics.ObserveDuration(time.Since(start))

	if reqErr == nil {
		reqErr = visitErr
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	if reqErr != nil || status >= http.StatusBadRequest {
		classified := classifyError(reqErr, status)
		if classified == nil {
			classified = fmt.Errorf("request %s failed", url)
		}
		c.Metrics.IncRequest("failed")
		c.Metrics.IncError(errorTypeLabel(classified))
		slog.Debug("request error",
			slog.String("url", url),
			slog.Int("status", status),
			slog.String("category", errorTypeLabel(classified)),
			slog.Any("error", reqErr),
		)
		return nil, classified
	}

	c.Metrics.IncRequest("succeeded")
	return &Response{URL: url, StatusCode: status, Body: resp.Body}, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := c.cfg.RetryBackoff
	if base <= 0 {
		return 0
	}
	if c.cfg.BackoffMode == config.BackoffFixed {
		return base
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := c.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func retryable(err error) bool {
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return true
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return true
	}
	var server ErrServer
	if errors.As(err, &server) {
		return retryStatuses[server.StatusCode]
	}
	return false
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode >= http.StatusBadRequest {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		if statusCode >= http.StatusInternalServerError {
			return ErrServer{StatusCode: statusCode, Err: wrapped}
		}
		switch statusCode {
		case http.StatusForbidden:
			wrapped = ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			wrapped = ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			wrapped = ErrRateLimited{Err: wrapped}
		}
		return ClientError{StatusCode: statusCode, Err: wrapped}
	}

	if err == nil {
		return nil
	}
	return err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
