package contracts

import "fmt"

// Metric identifies one of the eight fixed financial metrics
type Metric int

const (
	RevenueGrowth   Metric = iota // Revenue Growth (%)
	NetProfitMargin               // Net Profit Margin (%)
	ROE                           // ROE (%)
	DebtToEquity                  // Debt-to-Equity
	FreeCashFlow                  // Free Cash Flow (M)
	EPS                           // EPS
	PERatio                       // P/E Ratio
	CurrentRatio                  // Current Ratio
)

// MetricCount is the size of the fixed metric schema
const MetricCount = 8

// AllMetrics lists every metric in column order
var AllMetrics = [MetricCount]Metric{
	RevenueGrowth, NetProfitMargin, ROE, DebtToEquity,
	FreeCashFlow, EPS, PERatio, CurrentRatio,
}

// PeerRequired are the metrics a peer must carry itself.
// Revenue Growth and Free Cash Flow are backfilled from the focal company.
var PeerRequired = []Metric{
	NetProfitMargin, ROE, DebtToEquity, EPS, PERatio, CurrentRatio,
}

var metricNames = [MetricCount]string{
	"Revenue Growth (%)",
	"Net Profit Margin (%)",
	"ROE (%)",
	"Debt-to-Equity",
	"Free Cash Flow (M)",
	"EPS",
	"P/E Ratio",
	"Current Ratio",
}

var metricKeys = [MetricCount]string{
	"revenue_growth",
	"net_profit_margin",
	"roe",
	"debt_to_equity",
	"free_cash_flow",
	"eps",
	"pe_ratio",
	"current_ratio",
}

// String returns the display name, e.g. "P/E Ratio"
func (m Metric) String() string {
	if m < 0 || int(m) >= MetricCount {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricNames[m]
}

// Key returns the snake_case identifier used in JSON and logs
func (m Metric) Key() string {
	if m < 0 || int(m) >= MetricCount {
		return fmt.Sprintf("metric_%d", int(m))
	}
	return metricKeys[m]
}

// MetricRecord is one company's row: exactly eight nullable metrics.
// ⭐ SSOT: 스코어링 입력 레코드
type MetricRecord struct {
	Symbol string `json:"symbol,omitempty"`

	RevenueGrowth   *float64 `json:"revenue_growth"`
	NetProfitMargin *float64 `json:"net_profit_margin"`
	ROE             *float64 `json:"roe"`
	DebtToEquity    *float64 `json:"debt_to_equity"`
	FreeCashFlow    *float64 `json:"free_cash_flow"`
	EPS             *float64 `json:"eps"`
	PERatio         *float64 `json:"pe_ratio"`
	CurrentRatio    *float64 `json:"current_ratio"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

func (r *MetricRecord) field(m Metric) **float64 {
	switch m {
	case RevenueGrowth:
		return &r.RevenueGrowth
	case NetProfitMargin:
		return &r.NetProfitMargin
	case ROE:
		return &r.ROE
	case DebtToEquity:
		return &r.DebtToEquity
	case FreeCashFlow:
		return &r.FreeCashFlow
	case EPS:
		return &r.EPS
	case PERatio:
		return &r.PERatio
	case CurrentRatio:
		return &r.CurrentRatio
	}
	panic(fmt.Sprintf("contracts: unknown metric %d", int(m)))
}

// Get returns the value of m and whether it is present
func (r MetricRecord) Get(m Metric) (float64, bool) {
	p := *r.field(m)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set stores v for m
func (r *MetricRecord) Set(m Metric, v float64) {
	*r.field(m) = Float(v)
}

// Clear nulls m
func (r *MetricRecord) Clear(m Metric) {
	*r.field(m) = nil
}

// MissingAmong returns the metrics of ms that are null
func (r MetricRecord) MissingAmong(ms ...Metric) []Metric {
	var missing []Metric
	for _, m := range ms {
		if _, ok := r.Get(m); !ok {
			missing = append(missing, m)
		}
	}
	return missing
}

// Missing returns every null metric
func (r MetricRecord) Missing() []Metric {
	return r.MissingAmong(AllMetrics[:]...)
}

// Complete reports whether all eight metrics are present
func (r MetricRecord) Complete() bool {
	return len(r.Missing()) == 0
}

// Values returns the eight metrics in column order.
// Fails if any metric is null.
func (r MetricRecord) Values() ([MetricCount]float64, error) {
	var out [MetricCount]float64
	for _, m := range AllMetrics {
		v, ok := r.Get(m)
		if !ok {
			return out, fmt.Errorf("%s: missing %s", r.Symbol, m)
		}
		out[m] = v
	}
	return out, nil
}

// Clone returns a deep copy so callers can backfill without aliasing
func (r MetricRecord) Clone() MetricRecord {
	out := MetricRecord{Symbol: r.Symbol}
	for _, m := range AllMetrics {
		if v, ok := r.Get(m); ok {
			out.Set(m, v)
		}
	}
	return out
}

// MetricNames converts metrics to their display names
func MetricNames(ms []Metric) []string {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.String()
	}
	return names
}
