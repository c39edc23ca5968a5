package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"emarknews/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

// Response is a fully read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NotModified reports a conditional-GET hit.
func (r *Response) NotModified() bool { return r.Status == http.StatusNotModified }

// Fetcher performs GETs with a per-request timeout, bounded retries for
// transient failures, cooldowns for permanent ones and a breaker per host.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxRetries   uint64
	initialDelay time.Duration
	cooldowns    *Cooldowns
	logger       *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption { return func(f *Fetcher) { f.client = c } }

func WithTimeout(d time.Duration) FetcherOption { return func(f *Fetcher) { f.timeout = d } }

func WithRetries(n uint64, initialDelay time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.maxRetries = n
		f.initialDelay = initialDelay
	}
}

func WithCooldowns(c *Cooldowns) FetcherOption { return func(f *Fetcher) { f.cooldowns = c } }

func WithFetcherLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{},
		timeout:      config.SourceRequestTimeout,
		maxRetries:   config.SourceMaxRetries,
		initialDelay: 200 * time.Millisecond,
		cooldowns:    NewCooldowns(config.SourceCooldown),
		logger:       zap.NewNop(),
		breakers:     make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches rawURL. A 304 is returned as a Response, not an error.
func (f *Fetcher) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	if until, cooling := f.cooldowns.Active(rawURL); cooling {
		return nil, fmt.Errorf("%w: %s cooling down until %s", ErrPermanent, rawURL, until.Format(time.RFC3339))
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad url %q: %v", ErrPermanent, rawURL, err)
	}
	breaker := f.breaker(u.Host)

	op := func() (*Response, error) {
		res, err := breaker.Execute(func() (interface{}, error) {
			return f.do(ctx, rawURL, header)
		})
		switch {
		case err == nil:
			return res.(*Response), nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, backoff.Permanent(fmt.Errorf("%w: breaker open for %s", ErrTransient, u.Host))
		case errors.Is(err, ErrPermanent):
			return nil, backoff.Permanent(err)
		default:
			return nil, err
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(f.initialDelay),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithRandomizationFactor(0.5),
	), f.maxRetries), ctx)

	resp, err := backoff.RetryNotifyWithData(op, policy, func(err error, wait time.Duration) {
		f.logger.Debug("retrying source fetch",
			zap.String("url", rawURL),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.Permanent() {
			until := f.cooldowns.Mark(rawURL)
			f.logger.Warn("source entered cooldown",
				zap.String("url", rawURL),
				zap.Int("status", status.Code),
				zap.Time("until", until))
		}
		return nil, err
	}
	return resp, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrPermanent, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", config.SourceUserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &Response{Status: resp.StatusCode, Header: resp.Header}, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read body: %v", ErrTransient, err)
		}
		return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
}

func (f *Fetcher) breaker(host string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A refusal is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrPermanent)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("source breaker state change",
				zap.String("host", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	f.breakers[host] = cb
	return cb
}
