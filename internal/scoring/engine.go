// Package scoring computes the peer-relative financial score.
package scoring

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/pkg/logger"
)

// Direction says whether a higher raw value is better
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

// Directions per metric, in column order
var Directions = [contracts.MetricCount]Direction{
	contracts.RevenueGrowth:   HigherIsBetter,
	contracts.NetProfitMargin: HigherIsBetter,
	contracts.ROE:             HigherIsBetter,
	contracts.DebtToEquity:    LowerIsBetter,
	contracts.FreeCashFlow:    HigherIsBetter,
	contracts.EPS:             HigherIsBetter,
	contracts.PERatio:         LowerIsBetter,
	contracts.CurrentRatio:    HigherIsBetter,
}

// Weights per metric, in column order. Sums to 1.
// ⭐ SSOT: 스코어 가중치는 여기서만
var Weights = [contracts.MetricCount]float64{
	contracts.RevenueGrowth:   0.20,
	contracts.NetProfitMargin: 0.15,
	contracts.ROE:             0.20,
	contracts.DebtToEquity:    0.15,
	contracts.FreeCashFlow:    0.10,
	contracts.EPS:             0.05,
	contracts.PERatio:         0.10,
	contracts.CurrentRatio:    0.05,
}

// NeutralSubScore is given to every row of a column whose values are all equal
const NeutralSubScore = 0.5

// Precision is the number of decimals the final score is rounded to
const Precision = 4

// Row is one company of a scored table
type Row struct {
	Symbol    string                         `json:"symbol"`
	Values    [contracts.MetricCount]float64 `json:"values"`
	SubScores [contracts.MetricCount]float64 `json:"sub_scores"`
	Score     float64                        `json:"score"`
}

// ScoredTable holds peers followed by the focal company.
// The focal company is always the last row.
type ScoredTable struct {
	Rows []Row                          `json:"rows"`
	Min  [contracts.MetricCount]float64 `json:"min"`
	Max  [contracts.MetricCount]float64 `json:"max"`
}

// Company returns the focal company's row
func (t *ScoredTable) Company() Row {
	return t.Rows[len(t.Rows)-1]
}

// Peers returns the peer rows
func (t *ScoredTable) Peers() []Row {
	return t.Rows[:len(t.Rows)-1]
}

// Score returns the focal company's rounded score
func (t *ScoredTable) Score() float64 {
	return t.Company().Score
}

// Engine is the Scoring Engine
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a scoring engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log.WithComponent("scoring")}
}

// Score returns the focal company's financial score against peers
func (e *Engine) Score(company contracts.MetricRecord, peers []contracts.MetricRecord) (float64, error) {
	table, err := e.Table(company, peers)
	if err != nil {
		return 0, err
	}
	return table.Score(), nil
}

// Table normalizes company and peers into a ScoredTable.
// Fails with *contracts.CalculationError when peers is empty or any row
// is incomplete or non-finite.
func (e *Engine) Table(company contracts.MetricRecord, peers []contracts.MetricRecord) (*ScoredTable, error) {
	if len(peers) == 0 {
		return nil, &contracts.CalculationError{
			Reason: "no peers to compare against",
			Symbol: company.Symbol,
		}
	}

	records := make([]contracts.MetricRecord, 0, len(peers)+1)
	records = append(records, peers...)
	records = append(records, company)

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		values, err := rowValues(rec, len(peers))
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Symbol: rec.Symbol, Values: values})
	}

	table := &ScoredTable{Rows: rows}
	for _, m := range contracts.AllMetrics {
		table.Min[m], table.Max[m] = columnRange(rows, m)
	}

	for i := range table.Rows {
		row := &table.Rows[i]
		var total float64
		for _, m := range contracts.AllMetrics {
			row.SubScores[m] = SubScore(row.Values[m], table.Min[m], table.Max[m], Directions[m])
			total += Weights[m] * row.SubScores[m]
		}
		row.Score = Round(total)
	}

	e.logger.WithSymbol(company.Symbol).WithFields(map[string]interface{}{
		"peers": len(peers),
		"score": table.Score(),
	}).Debug("score calculated")

	return table, nil
}

func rowValues(rec contracts.MetricRecord, peers int) ([contracts.MetricCount]float64, error) {
	var values [contracts.MetricCount]float64

	if missing := rec.Missing(); len(missing) > 0 {
		return values, &contracts.CalculationError{
			Reason:  "incomplete metric record",
			Symbol:  rec.Symbol,
			Peers:   peers,
			Missing: contracts.MetricNames(missing),
		}
	}

	values, _ = rec.Values()
	for _, m := range contracts.AllMetrics {
		if math.IsNaN(values[m]) || math.IsInf(values[m], 0) {
			return values, &contracts.CalculationError{
				Reason:  "non-finite " + m.String(),
				Symbol:  rec.Symbol,
				Peers:   peers,
				Missing: []string{m.String()},
			}
		}
	}

	return values, nil
}

func columnRange(rows []Row, m contracts.Metric) (lo, hi float64) {
	lo, hi = rows[0].Values[m], rows[0].Values[m]
	for _, r := range rows[1:] {
		lo = math.Min(lo, r.Values[m])
		hi = math.Max(hi, r.Values[m])
	}
	return lo, hi
}

// SubScore normalizes v into [0,1] against [lo,hi].
// A degenerate column (lo == hi) scores NeutralSubScore.
func SubScore(v, lo, hi float64, dir Direction) float64 {
	if hi == lo {
		return NeutralSubScore
	}
	if dir == LowerIsBetter {
		return (hi - v) / (hi - lo)
	}
	return (v - lo) / (hi - lo)
}

// Round rounds half away from zero to Precision decimals
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(Precision).InexactFloat64()
}
