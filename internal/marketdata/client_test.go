package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/external/fmp"
	"github.com/wonny/finscore/internal/marketdata/mdtest"
	"github.com/wonny/finscore/pkg/logger"
)

func newTestClient(t *testing.T) (*Client, *mdtest.Provider) {
	t.Helper()
	p := mdtest.NewProvider()
	return New(p, mdtest.NewCache(t), logger.Nop()), p
}

func TestFetchCompanyMetrics(t *testing.T) {
	c, p := newTestClient(t)
	// revenue 110 vs 100, fcf 2.5bn, margin 25%, roe 40%
	p.AddCompany("AAPL", 110, 100, 2_500_000_000, 0.25, 0.40, 1.8, 6.1, 29.5, 0.9)

	got, err := c.FetchCompanyMetrics(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.True(t, got.Complete())
	values, err := got.Values()
	require.NoError(t, err)
	assert.InDelta(t, 10.0, values[contracts.RevenueGrowth], 1e-9)
	assert.InDelta(t, 25.0, values[contracts.NetProfitMargin], 1e-9)
	assert.InDelta(t, 40.0, values[contracts.ROE], 1e-9)
	assert.Equal(t, 1.8, values[contracts.DebtToEquity])
	assert.Equal(t, 2500.0, values[contracts.FreeCashFlow])
	assert.Equal(t, 6.1, values[contracts.EPS])
	assert.Equal(t, 29.5, values[contracts.PERatio])
	assert.Equal(t, 0.9, values[contracts.CurrentRatio])
}

func TestFetchCompanyMetrics_CachedComposite(t *testing.T) {
	c, p := newTestClient(t)
	p.AddCompany("MSFT", 2, 1, 1e6, 0.3, 0.3, 0.5, 10, 30, 1.2)
	ctx := context.Background()

	first, err := c.FetchCompanyMetrics(ctx, "MSFT")
	require.NoError(t, err)
	calls := p.TotalCalls()
	assert.Equal(t, 4, calls, "one call per dataset")

	second, err := c.FetchCompanyMetrics(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, p.TotalCalls(), "second call must be served from cache")
}

func TestFetchCompanyMetrics_MissingDataset(t *testing.T) {
	tests := []struct {
		name  string
		strip func(p *mdtest.Provider)
	}{
		{"no income", func(p *mdtest.Provider) { delete(p.Incomes, "AAPL") }},
		{"no cash flow", func(p *mdtest.Provider) { delete(p.CashFlows, "AAPL") }},
		{"no ratios", func(p *mdtest.Provider) { delete(p.RatiosBySymbol, "AAPL") }},
		{"no quote", func(p *mdtest.Provider) { delete(p.Quotes, "AAPL") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, p := newTestClient(t)
			p.AddCompany("AAPL", 110, 100, 1e6, 0.25, 0.4, 1.8, 6.1, 29.5, 0.9)
			tt.strip(p)

			_, err := c.FetchCompanyMetrics(context.Background(), "AAPL")
			assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
		})
	}
}

func TestFetchCompanyMetrics_UpstreamFailureNotCached(t *testing.T) {
	c, p := newTestClient(t)
	p.AddCompany("AAPL", 110, 100, 1e6, 0.25, 0.4, 1.8, 6.1, 29.5, 0.9)
	p.Err = errors.New("connection reset")
	ctx := context.Background()

	_, err := c.FetchCompanyMetrics(ctx, "AAPL")
	require.ErrorIs(t, err, contracts.ErrDataUnavailable)

	p.Err = nil
	got, err := c.FetchCompanyMetrics(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
}

func TestRevenueGrowth(t *testing.T) {
	tests := []struct {
		name   string
		income []fmp.IncomeStatement
		want   float64
	}{
		{"growth", []fmp.IncomeStatement{{Revenue: 120}, {Revenue: 100}}, 20},
		{"decline", []fmp.IncomeStatement{{Revenue: 90}, {Revenue: 100}}, -10},
		{"zero prior", []fmp.IncomeStatement{{Revenue: 120}, {Revenue: 0}}, 0},
		{"single period", []fmp.IncomeStatement{{Revenue: 120}}, 0},
		{"none", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RevenueGrowth(tt.income), 1e-9)
		})
	}
}

func TestCompanyMetrics_DefaultsToZero(t *testing.T) {
	r := CompanyMetrics("ZERO",
		[]fmp.IncomeStatement{{Revenue: 1}},
		[]fmp.CashFlowStatement{{}},
		fmp.RatiosTTM{},
		fmp.Quote{},
	)

	assert.True(t, r.Complete())
	for _, m := range contracts.AllMetrics {
		v, ok := r.Get(m)
		assert.True(t, ok, m.String())
		assert.Zero(t, v, m.String())
	}
}

func TestScreeners(t *testing.T) {
	c, p := newTestClient(t)
	p.SectorLists["Technology"] = []fmp.ScreenerEntry{{Symbol: "MSFT"}, {Symbol: "AAPL"}}
	p.IndustryLists["Semiconductors"] = []fmp.ScreenerEntry{{Symbol: "NVDA"}}
	ctx := context.Background()

	sector, err := c.SectorScreener(ctx, "Technology")
	require.NoError(t, err)
	assert.Len(t, sector, 2)

	industry, err := c.IndustryScreener(ctx, "Semiconductors")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", industry[0].Symbol)

	_, err = c.SectorScreener(ctx, "Utilities")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}
