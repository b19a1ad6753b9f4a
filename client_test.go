package openaq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func newSleepRecorder() (*[]time.Duration, func(time.Duration)) {
	slept := &[]time.Duration{}
	return slept, func(d time.Duration) {
		*slept = append(*slept, d)
	}
}

func TestGetSendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, sleep := newSleepRecorder()
	c := NewClient(srv.URL, "sekrit", OptClientSleep(sleep))
	if _, err := c.Get(context.Background(), "/locations", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "sekrit" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
}

func TestRetryExhaustion(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, sleep := newSleepRecorder()
	c := NewClient(srv.URL, "", OptClientSleep(sleep))
	_, err := c.Get(context.Background(), "/locations", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", calls)
	}
	serr, ok := errors.Cause(err).(*StatusError)
	if !ok {
		t.Fatalf("expected StatusError, got %T: %v", errors.Cause(err), err)
	}
	if serr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("wrong status code: %d", serr.StatusCode)
	}
}

func TestRateLimitedRetryWaitsForReset(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("x-ratelimit-reset", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	slept, sleep := newSleepRecorder()
	c := NewClient(srv.URL, "", OptClientSleep(sleep))
	if _, err := c.Get(context.Background(), "/locations", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a retry after 429, got %d calls", calls)
	}
	if len(*slept) == 0 || (*slept)[0] != 7*time.Second {
		t.Fatalf("expected first sleep of 7s for the reset window, got %v", *slept)
	}
}

func TestRateLimitedRetryFloorsAtTwoSeconds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// no reset header at all
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	slept, sleep := newSleepRecorder()
	c := NewClient(srv.URL, "", OptClientSleep(sleep))
	if _, err := c.Get(context.Background(), "/locations", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*slept) == 0 || (*slept)[0] != 2*time.Second {
		t.Fatalf("expected 2s floor on 429 wait, got %v", *slept)
	}
}

func TestRateAdaptiveDelay(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		reset     string
		want      time.Duration
	}{
		{"exhausted quota waits out reset", "0", "10", 10 * time.Second},
		{"slowdown zone", "3", "1", 2 * time.Second},
		{"steady state", "50", "1", 1200 * time.Millisecond},
		{"missing headers default to steady state", "", "", 1200 * time.Millisecond},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if test.remaining != "" {
					w.Header().Set("x-ratelimit-remaining", test.remaining)
				}
				if test.reset != "" {
					w.Header().Set("x-ratelimit-reset", test.reset)
				}
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			slept, sleep := newSleepRecorder()
			c := NewClient(srv.URL, "", OptClientSleep(sleep))
			if _, err := c.Get(context.Background(), "/x", nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(*slept) != 1 {
				t.Fatalf("expected exactly one delay, got %v", *slept)
			}
			if (*slept)[0] < test.want {
				t.Fatalf("expected delay of at least %v, got %v", test.want, (*slept)[0])
			}
		})
	}
}

func TestTransportErrorsAreRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every request now fails at the transport level

	_, sleep := newSleepRecorder()
	c := NewClient(srv.URL, "", OptClientSleep(sleep), OptClientMaxRetries(3))
	start := time.Now()
	_, err := c.Get(context.Background(), "/locations", nil)
	if err == nil {
		t.Fatal("expected error against a closed server")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("retries should not block with an injected sleeper (took %v)", elapsed)
	}
}

func TestGetHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, sleep := newSleepRecorder()
	c := NewClient(srv.URL, "", OptClientSleep(sleep))
	if _, err := c.Get(ctx, "/locations", nil); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestRateLimitWaitAbortsOnCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-reset", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// no injected sleeper: the context-aware timer wait is under test
	c := NewClient(srv.URL, "")
	start := time.Now()
	_, err := c.Get(ctx, "/locations", nil)
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation should interrupt the reset wait, took %v", elapsed)
	}
}
