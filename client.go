package openaq

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultBaseURL is the public OpenAQ v3 API.
const DefaultBaseURL = "https://api.openaq.org/v3"

// DefaultPageLimit is the page size requested from paginated endpoints.
const DefaultPageLimit = 1000

const (
	defaultMaxRetries     = 5
	defaultRequestTimeout = 60 * time.Second

	// steadyDelay keeps us near 50 req/min, safely under the API's
	// documented 60 req/min ceiling.
	steadyDelay   = 1200 * time.Millisecond
	slowdownDelay = 2 * time.Second
	retryDelay    = 2 * time.Second
)

// StatusError is a non-200 response that survived every retry.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// ClientOption is a functional option type for Client.
type ClientOption func(c *Client)

// OptClientHTTP sets the underlying HTTP client, replacing the default
// one with its 60s request timeout.
func OptClientHTTP(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// OptClientPageLimit sets the page size used by the paginated fetchers.
func OptClientPageLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = limit
		}
	}
}

// OptClientMaxRetries sets how many attempts Get makes before giving
// up on a request.
func OptClientMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// OptClientSleep replaces the function used for rate-limit and retry
// waits, bypassing the context-aware timer. Tests pass a recorder
// here.
func OptClientSleep(sleep func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// OptClientLogger sets the logger for rate-limit notices.
func OptClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// Client issues GET requests against the OpenAQ API, retrying transient
// failures and pacing itself from the rate-limit response headers. It
// is the only component in the pipeline that sleeps.
type Client struct {
	baseURL    string
	apiKey     string
	pageLimit  int
	maxRetries int
	httpClient *http.Client
	sleep      func(time.Duration)
	logger     *log.Logger
}

// NewClient returns a Client for the API at baseURL. apiKey may be
// empty, in which case no X-API-Key header is sent.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		pageLimit:  DefaultPageLimit,
		maxRetries: defaultMaxRetries,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET for path (relative to the base URL) with the given
// query parameters and returns the response body. Non-200 statuses are
// retried up to the retry ceiling: 429 waits for the server's reset
// window, anything else waits a fixed two seconds. Transport-level
// errors are retried the same way as non-200 statuses. After a 200 the
// client applies the rate-adaptive delay before returning.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, errors.Wrap(err, "building request")
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errors.Wrapf(err, "requesting %s", path)
			if werr := c.wait(ctx, retryDelay); werr != nil {
				return nil, werr
			}
			continue
		}
		body, readErr := ioutil.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if readErr != nil {
				return nil, errors.Wrap(readErr, "reading response body")
			}
			// A cancellation during the pacing wait doesn't invalidate
			// the response we already have.
			c.sleepByRate(ctx, resp.Header)
			return body, nil
		}

		lastErr = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
		if resp.StatusCode == http.StatusTooManyRequests {
			reset := headerInt(resp.Header, "x-ratelimit-reset", 2)
			if reset < 2 {
				reset = 2
			}
			c.logf("rate limited, waiting %ds", reset)
			if werr := c.wait(ctx, time.Duration(reset)*time.Second); werr != nil {
				return nil, werr
			}
			continue
		}
		if werr := c.wait(ctx, retryDelay); werr != nil {
			return nil, werr
		}
	}
	return nil, errors.Wrapf(lastErr, "GET %s failed after %d attempts", path, c.maxRetries)
}

// wait blocks for d or until ctx is canceled, returning the context's
// error in the latter case. An injected sleeper takes the wait
// verbatim; cancellation is still reported afterward.
func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		c.sleep(d)
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

// sleepByRate paces the client from the rate-limit headers of a 200
// response. A zero remaining quota on a 200 shouldn't happen, but we
// still wait out the reset window when it does.
func (c *Client) sleepByRate(ctx context.Context, h http.Header) {
	remaining := headerInt(h, "x-ratelimit-remaining", 60)
	reset := headerInt(h, "x-ratelimit-reset", 1)

	switch {
	case remaining <= 0:
		if reset < 1 {
			reset = 1
		}
		c.logf("rate limit reached, waiting %ds", reset)
		c.wait(ctx, time.Duration(reset)*time.Second)
	case remaining <= 5:
		c.logf("few requests remaining, slowing down")
		c.wait(ctx, slowdownDelay)
	default:
		c.wait(ctx, steadyDelay)
	}
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func headerInt(h http.Header, key string, def int) int {
	v := strings.TrimSpace(h.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
