// Package mdtest provides an in-memory market data provider for tests.
package mdtest

import (
	"context"
	"sync"

	"github.com/wonny/finscore/internal/external/fmp"
)

// Provider is a map-backed marketdata.Provider that counts calls per
// endpoint. Missing entries answer with an empty list, like FMP does.
type Provider struct {
	mu sync.Mutex

	SearchResults  map[string][]fmp.SearchResult
	Profiles       map[string][]fmp.Profile
	SectorLists    map[string][]fmp.ScreenerEntry
	IndustryLists  map[string][]fmp.ScreenerEntry
	Incomes        map[string][]fmp.IncomeStatement
	CashFlows      map[string][]fmp.CashFlowStatement
	RatiosBySymbol map[string][]fmp.RatiosTTM
	Quotes         map[string][]fmp.Quote

	// Err, when set, is returned by every call
	Err error

	calls map[string]int
}

// NewProvider returns an empty provider
func NewProvider() *Provider {
	return &Provider{
		SearchResults:  make(map[string][]fmp.SearchResult),
		Profiles:       make(map[string][]fmp.Profile),
		SectorLists:    make(map[string][]fmp.ScreenerEntry),
		IndustryLists:  make(map[string][]fmp.ScreenerEntry),
		Incomes:        make(map[string][]fmp.IncomeStatement),
		CashFlows:      make(map[string][]fmp.CashFlowStatement),
		RatiosBySymbol: make(map[string][]fmp.RatiosTTM),
		Quotes:         make(map[string][]fmp.Quote),
		calls:          make(map[string]int),
	}
}

// Calls returns how often endpoint was hit
func (p *Provider) Calls(endpoint string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[endpoint]
}

// TotalCalls returns the number of upstream calls across all endpoints
func (p *Provider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

func (p *Provider) hit(endpoint string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[endpoint]++
	return p.Err
}

// Search implements marketdata.Provider
func (p *Provider) Search(_ context.Context, query string, _ int) ([]fmp.SearchResult, error) {
	if err := p.hit(fmp.EndpointSearch); err != nil {
		return nil, err
	}
	return p.SearchResults[query], nil
}

// Profile implements marketdata.Provider
func (p *Provider) Profile(_ context.Context, symbol string) ([]fmp.Profile, error) {
	if err := p.hit(fmp.EndpointProfile); err != nil {
		return nil, err
	}
	return p.Profiles[symbol], nil
}

// Screener implements marketdata.Provider
func (p *Provider) Screener(_ context.Context, filter fmp.ScreenerFilter) ([]fmp.ScreenerEntry, error) {
	if err := p.hit(fmp.EndpointScreener); err != nil {
		return nil, err
	}
	if filter.Industry != "" {
		return p.IndustryLists[filter.Industry], nil
	}
	return p.SectorLists[filter.Sector], nil
}

// IncomeStatement implements marketdata.Provider
func (p *Provider) IncomeStatement(_ context.Context, symbol string, _ int) ([]fmp.IncomeStatement, error) {
	if err := p.hit(fmp.EndpointIncome); err != nil {
		return nil, err
	}
	return p.Incomes[symbol], nil
}

// CashFlowStatement implements marketdata.Provider
func (p *Provider) CashFlowStatement(_ context.Context, symbol string, _ int) ([]fmp.CashFlowStatement, error) {
	if err := p.hit(fmp.EndpointCashFlow); err != nil {
		return nil, err
	}
	return p.CashFlows[symbol], nil
}

// RatiosTTM implements marketdata.Provider
func (p *Provider) RatiosTTM(_ context.Context, symbol string) ([]fmp.RatiosTTM, error) {
	if err := p.hit(fmp.EndpointRatiosTTM); err != nil {
		return nil, err
	}
	return p.RatiosBySymbol[symbol], nil
}

// Quote implements marketdata.Provider
func (p *Provider) Quote(_ context.Context, symbol string) ([]fmp.Quote, error) {
	if err := p.hit(fmp.EndpointQuote); err != nil {
		return nil, err
	}
	return p.Quotes[symbol], nil
}

// F returns a pointer to v
func F(v float64) *float64 {
	return &v
}

// AddCompany registers complete financials for symbol
func (p *Provider) AddCompany(symbol string, revenue, priorRevenue, fcf, margin, roe, de, eps, pe, current float64) {
	p.Incomes[symbol] = []fmp.IncomeStatement{{Symbol: symbol, Revenue: revenue}, {Symbol: symbol, Revenue: priorRevenue}}
	p.CashFlows[symbol] = []fmp.CashFlowStatement{{Symbol: symbol, FreeCashFlow: fcf}}
	p.AddPeer(symbol, margin, roe, de, eps, pe, current)
}

// AddPeer registers the quote and ratios a peer needs
func (p *Provider) AddPeer(symbol string, margin, roe, de, eps, pe, current float64) {
	p.RatiosBySymbol[symbol] = []fmp.RatiosTTM{{
		NetProfitMarginTTM: F(margin),
		ReturnOnEquityTTM:  F(roe),
		DebtEquityRatioTTM: F(de),
		CurrentRatioTTM:    F(current),
	}}
	p.Quotes[symbol] = []fmp.Quote{{Symbol: symbol, EPS: F(eps), PE: F(pe)}}
}
