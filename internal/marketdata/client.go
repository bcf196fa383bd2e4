// Package marketdata exposes typed, cache-through accessors over the
// market data provider.
package marketdata

import (
	"context"
	"fmt"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/external/fmp"
	"github.com/wonny/finscore/internal/fetchcache"
	"github.com/wonny/finscore/pkg/logger"
)

// Provider is the raw upstream API. *fmp.Client implements it.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]fmp.SearchResult, error)
	Profile(ctx context.Context, symbol string) ([]fmp.Profile, error)
	Screener(ctx context.Context, filter fmp.ScreenerFilter) ([]fmp.ScreenerEntry, error)
	IncomeStatement(ctx context.Context, symbol string, limit int) ([]fmp.IncomeStatement, error)
	CashFlowStatement(ctx context.Context, symbol string, limit int) ([]fmp.CashFlowStatement, error)
	RatiosTTM(ctx context.Context, symbol string) ([]fmp.RatiosTTM, error)
	Quote(ctx context.Context, symbol string) ([]fmp.Quote, error)
}

// Client is the Market Data Client. Every accessor goes through the cache;
// an empty upstream answer is returned as contracts.ErrDataUnavailable.
// ⭐ SSOT: 시장 데이터 조회는 이 클라이언트를 통해서만
type Client struct {
	provider Provider
	cache    *fetchcache.Cache
	logger   *logger.Logger
}

// New creates a market data client
func New(provider Provider, cache *fetchcache.Cache, log *logger.Logger) *Client {
	return &Client{
		provider: provider,
		cache:    cache,
		logger:   log.WithComponent("marketdata"),
	}
}

// Cache returns the fetch cache shared by all accessors
func (c *Client) Cache() *fetchcache.Cache {
	return c.cache
}

func symbolKey(symbol string) string {
	return fetchcache.Key("symbol", symbol)
}

// Search returns search candidates for symbol (first match only)
func (c *Client) Search(ctx context.Context, symbol string) ([]fmp.SearchResult, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, SearchResults, symbolKey(symbol),
		func(ctx context.Context) ([]fmp.SearchResult, error) {
			return c.provider.Search(ctx, symbol, searchLimit)
		})
}

// Profile returns the company profile
func (c *Client) Profile(ctx context.Context, symbol string) ([]fmp.Profile, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, Profiles, symbolKey(symbol),
		func(ctx context.Context) ([]fmp.Profile, error) {
			return c.provider.Profile(ctx, symbol)
		})
}

// SectorScreener returns up to 50 companies of sector in provider order
func (c *Client) SectorScreener(ctx context.Context, sector string) ([]fmp.ScreenerEntry, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, SectorPeers, fetchcache.Key("sector", sector),
		func(ctx context.Context) ([]fmp.ScreenerEntry, error) {
			return c.provider.Screener(ctx, fmp.ScreenerFilter{Sector: sector, Limit: fmp.ScreenerLimit})
		})
}

// IndustryScreener returns up to 50 companies of industry in provider order
func (c *Client) IndustryScreener(ctx context.Context, industry string) ([]fmp.ScreenerEntry, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, IndustryPeers, fetchcache.Key("industry", industry),
		func(ctx context.Context) ([]fmp.ScreenerEntry, error) {
			return c.provider.Screener(ctx, fmp.ScreenerFilter{Industry: industry, Limit: fmp.ScreenerLimit})
		})
}

// IncomeStatement returns the two most recent periods, newest first
func (c *Client) IncomeStatement(ctx context.Context, symbol string) ([]fmp.IncomeStatement, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, IncomeStatements, symbolKey(symbol),
		func(ctx context.Context) ([]fmp.IncomeStatement, error) {
			return c.provider.IncomeStatement(ctx, symbol, statementPeriods)
		})
}

// CashFlow returns the two most recent periods, newest first
func (c *Client) CashFlow(ctx context.Context, symbol string) ([]fmp.CashFlowStatement, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, CashFlows, symbolKey(symbol),
		func(ctx context.Context) ([]fmp.CashFlowStatement, error) {
			return c.provider.CashFlowStatement(ctx, symbol, statementPeriods)
		})
}

// RatiosTTM returns trailing-twelve-month ratios
func (c *Client) RatiosTTM(ctx context.Context, symbol string) ([]fmp.RatiosTTM, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, Ratios, symbolKey(symbol),
		func(ctx context.Context) ([]fmp.RatiosTTM, error) {
			return c.provider.RatiosTTM(ctx, symbol)
		})
}

// Quote returns the latest quote
func (c *Client) Quote(ctx context.Context, symbol string) ([]fmp.Quote, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, Quotes, symbolKey(symbol),
		func(ctx context.Context) ([]fmp.Quote, error) {
			return c.provider.Quote(ctx, symbol)
		})
}

// FetchCompanyMetrics composes the four financial datasets into the focal
// company's MetricRecord. The composed record is cached itself.
// Fails with contracts.ErrDataUnavailable if any dataset is empty.
func (c *Client) FetchCompanyMetrics(ctx context.Context, symbol string) (contracts.MetricRecord, error) {
	return fetchcache.GetOrFetch(ctx, c.cache, CompanyFinancials, symbolKey(symbol),
		func(ctx context.Context) (contracts.MetricRecord, error) {
			return c.composeCompanyMetrics(ctx, symbol)
		})
}

func (c *Client) composeCompanyMetrics(ctx context.Context, symbol string) (contracts.MetricRecord, error) {
	var empty contracts.MetricRecord

	income, err := c.IncomeStatement(ctx, symbol)
	if err != nil {
		return empty, fmt.Errorf("income statement: %w", err)
	}
	cash, err := c.CashFlow(ctx, symbol)
	if err != nil {
		return empty, fmt.Errorf("cash flow: %w", err)
	}
	ratios, err := c.RatiosTTM(ctx, symbol)
	if err != nil {
		return empty, fmt.Errorf("ratios: %w", err)
	}
	quote, err := c.Quote(ctx, symbol)
	if err != nil {
		return empty, fmt.Errorf("quote: %w", err)
	}

	record := CompanyMetrics(symbol, income, cash, ratios[0], quote[0])
	c.logger.WithSymbol(symbol).WithFields(map[string]interface{}{
		"revenue_growth": *record.RevenueGrowth,
		"free_cash_flow": *record.FreeCashFlow,
	}).Debug("company metrics composed")

	return record, nil
}
