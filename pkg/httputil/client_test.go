package httputil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/finscore/pkg/config"
	"github.com/wonny/finscore/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:      "test",
		LogLevel: "error",
		FMP: config.FMPConfig{
			Timeout:    2 * time.Second,
			MaxRetries: 2,
			RateLimit:  100,
		},
	}
}

func TestNew(t *testing.T) {
	client := New(testConfig(), logger.Nop())

	if client.httpClient == nil {
		t.Fatal("Expected http.Client to be initialized")
	}
	if client.Timeout() != 2*time.Second {
		t.Errorf("Expected timeout=2s, got %v", client.Timeout())
	}
	if client.retryConfig.MaxRetries != 2 || !client.retryConfig.Enabled {
		t.Errorf("Unexpected retry config: %+v", client.retryConfig)
	}
	if client.limiter == nil {
		t.Error("Expected local rate limiter")
	}
}

func TestNew_Defaults(t *testing.T) {
	client := New(&config.Config{}, logger.Nop())

	if client.Timeout() != 10*time.Second {
		t.Errorf("Expected default timeout=10s, got %v", client.Timeout())
	}
	if client.retryConfig.Enabled {
		t.Error("Expected retry disabled when MaxRetries is 0")
	}
	if client.limiter != nil {
		t.Error("Expected no limiter when RateLimit is 0")
	}
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	resp, err := New(testConfig(), logger.Nop()).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestRetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig(), logger.Nop()).WithRetry(3, 10*time.Millisecond)

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Request failed after retries: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestRetryIsBounded(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(testConfig(), logger.Nop()).WithRetry(2, time.Millisecond)

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected final response, got error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected final status 429, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("Expected 1 call + 2 retries, got %d", got)
	}
}

func TestPerCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.FMP.Timeout = 50 * time.Millisecond
	client := New(cfg, logger.Nop()).DisableRetry()

	start := time.Now()
	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("Timeout not enforced, call took %v", time.Since(start))
	}
}

func TestErrorOmitsQueryString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.FMP.Timeout = 50 * time.Millisecond
	client := New(cfg, logger.Nop()).DisableRetry()

	_, err := client.Get(context.Background(), server.URL+"/quote/AAPL?apikey=secret")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("API key leaked into error: %v", err)
	}
	if !strings.Contains(err.Error(), "/quote/AAPL") {
		t.Errorf("Expected path in error, got %v", err)
	}
}

func TestRetriesTakeRateLimitTokens(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.FMP.RateLimit = 1
	client := New(cfg, logger.Nop()).WithRetry(2, time.Millisecond)
	client.limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 1)

	start := time.Now()
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("Expected 3 attempts, got %d", got)
	}
	// burst covers the first attempt; each retry waits for a fresh token
	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Errorf("Retries bypassed the rate limiter, took %v", elapsed)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			if got := IsRetryableError(tt.statusCode); got != tt.want {
				t.Errorf("IsRetryableError(%d) = %v, want %v", tt.statusCode, got, tt.want)
			}
		})
	}
}
