package marketdata

import (
	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/external/fmp"
)

// CompanyMetrics builds the focal company's record. Unlike peer records,
// every missing sub-field defaults to 0, so the result is always complete.
// income and cash must be non-empty.
func CompanyMetrics(symbol string, income []fmp.IncomeStatement, cash []fmp.CashFlowStatement, ratios fmp.RatiosTTM, quote fmp.Quote) contracts.MetricRecord {
	r := contracts.MetricRecord{Symbol: symbol}

	r.Set(contracts.RevenueGrowth, RevenueGrowth(income))
	r.Set(contracts.NetProfitMargin, orZero(ratios.NetProfitMarginTTM)*100)
	r.Set(contracts.ROE, orZero(ratios.ReturnOnEquityTTM)*100)
	r.Set(contracts.DebtToEquity, orZero(ratios.DebtEquityRatioTTM))
	r.Set(contracts.FreeCashFlow, FreeCashFlowMillions(cash))
	r.Set(contracts.EPS, orZero(quote.EPS))
	r.Set(contracts.PERatio, orZero(quote.PE))
	r.Set(contracts.CurrentRatio, orZero(ratios.CurrentRatioTTM))

	return r
}

// RevenueGrowth is the period-over-period change in percent.
// Fewer than two periods or a zero prior period yield 0.
func RevenueGrowth(income []fmp.IncomeStatement) float64 {
	if len(income) < 2 {
		return 0
	}
	prior := income[1].Revenue
	if prior == 0 {
		return 0
	}
	return (income[0].Revenue - prior) / prior * 100
}

// FreeCashFlowMillions is the latest free cash flow in millions
func FreeCashFlowMillions(cash []fmp.CashFlowStatement) float64 {
	if len(cash) == 0 {
		return 0
	}
	return cash[0].FreeCashFlow / 1_000_000
}

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
