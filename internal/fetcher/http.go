package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher. Zero values fall back to a 30s
// timeout, 3 attempts, and the fmr-cli user agent.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// throttle is a token bucket that adapts to the server: each success
// raises the refill rate 20% toward double the seed value, a 429 halves
// it, floored at a quarter of the seed.
type throttle struct {
	mu   sync.Mutex
	tb   *rate.Limiter
	seed rate.Limit
	cur  rate.Limit
}

func newThrottle(seed rate.Limit, burst int) *throttle {
	return &throttle{
		tb:   rate.NewLimiter(seed, burst),
		seed: seed,
		cur:  seed,
	}
}

func (t *throttle) wait(ctx context.Context) error {
	return t.tb.Wait(ctx)
}

func (t *throttle) ease() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cur = min(t.cur*1.2, t.seed*2)
	t.tb.SetLimit(t.cur)
}

func (t *throttle) slash() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cur = max(t.cur/2, t.seed/4)
	t.tb.SetLimit(t.cur)
	zap.L().Warn("fetcher: halving request rate after 429",
		zap.Float64("requests_per_sec", float64(t.cur)),
	)
}

func (t *throttle) limit() rate.Limit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cur
}

// sourceThrottles seeds one throttle per known source host. HUD tolerates
// very little traffic around the annual FMR release; FRED and the Census
// geocoder publish higher documented limits.
func sourceThrottles() map[string]*throttle {
	return map[string]*throttle{
		"www.huduser.gov":          newThrottle(2, 2),
		"api.stlouisfed.org":       newThrottle(5, 5),
		"geocoding.geo.census.gov": newThrottle(10, 10),
	}
}

// HTTPFetcher downloads source files with retries, exponential backoff,
// and per-host adaptive rate limiting.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	retries   int

	mu        sync.Mutex
	throttles map[string]*throttle
}

// NewHTTPFetcher creates an HTTP fetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "fmr-cli/1.0"
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		retries:   opts.MaxRetries,
		throttles: sourceThrottles(),
	}
}

// throttleFor returns the throttle for a host, creating a permissive one
// for hosts outside the known source list.
func (f *HTTPFetcher) throttleFor(host string) *throttle {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.throttles[host]
	if !ok {
		t = newThrottle(20, 20)
		f.throttles[host] = t
	}
	return t
}

// Download fetches the URL, retrying transport errors, 5xx responses, and
// 429s. The caller closes the returned body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	th := f.throttleFor(u.Host)

	var lastErr error
	for attempt := range f.retries {
		if err := th.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: build request")
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("fetcher: request failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			sleepBackoff(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			th.slash()
			lastErr = eris.Errorf("fetcher: 429 from %s", u.Host)
			sleepBackoff(ctx, attempt)
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("fetcher: status %d from %s", resp.StatusCode, rawURL)
			zap.L().Warn("fetcher: server error",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			sleepBackoff(ctx, attempt)
		case resp.StatusCode != http.StatusOK:
			_ = resp.Body.Close()
			return nil, eris.Errorf("fetcher: status %d from %s", resp.StatusCode, rawURL)
		default:
			th.ease()
			return resp.Body, nil
		}
	}

	return nil, eris.Wrapf(lastErr, "fetcher: giving up on %s after %d attempts", rawURL, f.retries)
}

// DownloadToFile fetches the URL and saves the body to path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	return saveTo(body, path)
}

// sleepBackoff waits one second doubling per attempt with up to 50%
// jitter, capped at 30s. Returns early when the context is cancelled.
func sleepBackoff(ctx context.Context, attempt int) {
	d := min(time.Duration(float64(time.Second)*math.Pow(2, float64(attempt))), 30*time.Second)
	d += rand.N(d / 2)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
