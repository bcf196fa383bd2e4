// Package fmp is the raw Financial Modeling Prep REST client.
// Caching lives one layer up in internal/marketdata.
package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/pkg/config"
	"github.com/wonny/finscore/pkg/httputil"
	"github.com/wonny/finscore/pkg/logger"
	"github.com/wonny/finscore/pkg/metrics"
)

// DefaultBaseURL is the v3 REST root
const DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

// ScreenerLimit is the candidate pool size requested from the screener
const ScreenerLimit = 50

// Endpoint labels used for metrics and logs
const (
	EndpointSearch    = "search"
	EndpointProfile   = "profile"
	EndpointScreener  = "stock-screener"
	EndpointIncome    = "income-statement"
	EndpointCashFlow  = "cash-flow-statement"
	EndpointRatiosTTM = "ratios-ttm"
	EndpointQuote     = "quote"
)

// maxBodyBytes caps a single response body
const maxBodyBytes = 8 << 20

// APIError is a non-200 answer or an {"Error Message": ...} payload.
// It always matches contracts.ErrDataUnavailable.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("fmp %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fmp %s: status %d", e.Endpoint, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return contracts.ErrDataUnavailable
}

// Client handles communication with Financial Modeling Prep
// ⭐ SSOT: FMP API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	metrics    *metrics.Manager
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	apiKey     string
}

// NewClient creates a new FMP client. m may be nil.
func NewClient(httpClient *httputil.Client, cfg config.FMPConfig, log *logger.Logger, m *metrics.Manager) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("fmp"),
		metrics:    m,
		breaker:    newBreaker("fmp"),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
	}
}

// newBreaker opens after 5 consecutive failures, or >50% failures over
// at least 20 requests, and probes again after 30s.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
	}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 5 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
	}
	// caller cancellation says nothing about upstream health
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, context.Canceled)
	}
	return gobreaker.NewCircuitBreaker(st)
}

// BreakerState reports the circuit state: closed, half-open or open
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Search looks up companies matching query
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))

	var out []SearchResult
	if err := c.getJSON(ctx, EndpointSearch, "/search", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profile fetches the company profile (sector, industry)
func (c *Client) Profile(ctx context.Context, symbol string) ([]Profile, error) {
	var out []Profile
	if err := c.getJSON(ctx, EndpointProfile, "/profile/"+url.PathEscape(symbol), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Screener lists companies by sector or industry, in provider order
func (c *Client) Screener(ctx context.Context, filter ScreenerFilter) ([]ScreenerEntry, error) {
	params := url.Values{}
	if filter.Sector != "" {
		params.Set("sector", filter.Sector)
	}
	if filter.Industry != "" {
		params.Set("industry", filter.Industry)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = ScreenerLimit
	}
	params.Set("limit", strconv.Itoa(limit))

	var out []ScreenerEntry
	if err := c.getJSON(ctx, EndpointScreener, "/stock-screener", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IncomeStatement fetches the latest limit periods, newest first
func (c *Client) IncomeStatement(ctx context.Context, symbol string, limit int) ([]IncomeStatement, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var out []IncomeStatement
	if err := c.getJSON(ctx, EndpointIncome, "/income-statement/"+url.PathEscape(symbol), params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CashFlowStatement fetches the latest limit periods, newest first
func (c *Client) CashFlowStatement(ctx context.Context, symbol string, limit int) ([]CashFlowStatement, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var out []CashFlowStatement
	if err := c.getJSON(ctx, EndpointCashFlow, "/cash-flow-statement/"+url.PathEscape(symbol), params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RatiosTTM fetches trailing-twelve-month ratios
func (c *Client) RatiosTTM(ctx context.Context, symbol string) ([]RatiosTTM, error) {
	var out []RatiosTTM
	if err := c.getJSON(ctx, EndpointRatiosTTM, "/ratios-ttm/"+url.PathEscape(symbol), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Quote fetches the latest quote
func (c *Client) Quote(ctx context.Context, symbol string) ([]Quote, error) {
	var out []Quote
	if err := c.getJSON(ctx, EndpointQuote, "/quote/"+url.PathEscape(symbol), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// getJSON performs one breaker-guarded GET and decodes the body into out
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	start := time.Now()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := c.fetch(ctx, endpoint, path, params)
		if err != nil {
			return nil, err
		}
		if err := decode(endpoint, body, out); err != nil {
			return nil, err
		}
		return nil, nil
	})

	c.metrics.Upstream(endpoint, outcome(err), time.Since(start))
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"endpoint": endpoint,
			"path":     path,
		}).WithError(err).Warn("FMP request failed")
		return fmt.Errorf("fmp %s: %w", endpoint, err)
	}

	return nil
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("apikey", c.apiKey)
	fullURL := c.baseURL + path + "?" + q.Encode()

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	// FMP reports bad keys and exhausted plans as 200 + {"Error Message": ...}
	if msg := errorMessage(body); msg != "" {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	return body, nil
}

// errorMessage extracts the provider's error text, if the body is one
func errorMessage(body []byte) string {
	var payload struct {
		ErrorMessage string `json:"Error Message"`
		Error        string `json:"error"`
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.ErrorMessage != "" {
		return payload.ErrorMessage
	}
	return payload.Error
}

// decode treats an empty body or an object where a list was expected as
// an empty result rather than a hard failure
func decode(endpoint string, body []byte, out any) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] == '{' {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("fmp %s: malformed payload: %w", endpoint, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "api_error"
		}
		return "error"
	}
}
