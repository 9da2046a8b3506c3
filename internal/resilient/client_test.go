package resilient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	return New(cfg)
}

func countingServer(status int, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
}

func TestPost_RetriesServerErrors(t *testing.T) {
	var hits int32
	srv := countingServer(http.StatusServiceUnavailable, &hits)
	defer srv.Close()

	client := newTestClient(Config{Retries: 3, FailureThreshold: 10})
	_, err := client.Post(context.Background(), srv.URL, map[string]string{"k": "v"})
	if err == nil {
		t.Fatal("expected error for 503 responses")
	}

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 4 {
		t.Errorf("expected 4 attempts (1 + 3 retries), got %d", got)
	}
}

func TestPost_NeverRetriesClientErrors(t *testing.T) {
	var hits int32
	srv := countingServer(http.StatusBadRequest, &hits)
	defer srv.Close()

	client := newTestClient(Config{Retries: 3, FailureThreshold: 10})
	_, err := client.Post(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected exactly 1 attempt for 400, got %d", got)
	}
}

func TestPost_OpensCircuitAfterThreshold(t *testing.T) {
	var hits int32
	srv := countingServer(http.StatusInternalServerError, &hits)
	defer srv.Close()

	client := newTestClient(Config{Retries: 0, FailureThreshold: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := client.Post(context.Background(), srv.URL, nil); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}

	status := client.Status()
	if !status.IsOpen {
		t.Fatal("expected circuit open after threshold failures")
	}
	if status.ConsecutiveFailures != 3 {
		t.Errorf("expected 3 consecutive failures, got %d", status.ConsecutiveFailures)
	}

	before := atomic.LoadInt32(&hits)
	_, err := client.Post(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if after := atomic.LoadInt32(&hits); after != before {
		t.Errorf("open circuit must perform zero network attempts, got %d extra", after-before)
	}
}

func TestPost_CooldownElapsedAllowsOneRealAttempt(t *testing.T) {
	var hits int32
	srv := countingServer(http.StatusInternalServerError, &hits)
	defer srv.Close()

	client := newTestClient(Config{Retries: 0, FailureThreshold: 1, Cooldown: time.Minute})

	base := time.Now()
	client.now = func() time.Time { return base }

	if _, err := client.Post(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("expected failure")
	}
	if !client.Status().IsOpen {
		t.Fatal("expected open circuit")
	}

	// Advance past the cooldown: the next call probes for real.
	client.now = func() time.Time { return base.Add(2 * time.Minute) }

	before := atomic.LoadInt32(&hits)
	_, err := client.Post(context.Background(), srv.URL, nil)
	if errors.Is(err, ErrCircuitOpen) {
		t.Fatal("circuit should allow an attempt after cooldown")
	}
	if after := atomic.LoadInt32(&hits); after != before+1 {
		t.Errorf("expected exactly one attempt after cooldown, got %d", after-before)
	}
}

func TestPost_SuccessResetsBreaker(t *testing.T) {
	var fail int32 = 1
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if atomic.LoadInt32(&fail) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(Config{Retries: 0, FailureThreshold: 5})

	if _, err := client.Post(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("expected failure")
	}
	if client.Status().ConsecutiveFailures != 1 {
		t.Fatal("expected one recorded failure")
	}

	atomic.StoreInt32(&fail, 0)
	if _, err := client.Post(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	status := client.Status()
	if status.ConsecutiveFailures != 0 || status.IsOpen {
		t.Errorf("success must reset breaker state, got %+v", status)
	}
}

func TestPostJSON_DecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"m":0.25}`))
	}))
	defer srv.Close()

	client := newTestClient(Config{})
	var out struct {
		M float64 `json:"m"`
	}
	if err := client.PostJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out.M != 0.25 {
		t.Errorf("expected 0.25, got %v", out.M)
	}
}
