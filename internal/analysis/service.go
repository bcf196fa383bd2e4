// Package analysis runs the end-to-end financial score: validate, fetch the
// focal company, resolve peers, backfill and score.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/wonny/finscore/internal/auditlog"
	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/scoring"
	"github.com/wonny/finscore/internal/validator"
	"github.com/wonny/finscore/pkg/logger"
	"github.com/wonny/finscore/pkg/metrics"
)

// Validator checks ticker symbols
type Validator interface {
	Validate(ctx context.Context, symbol string) (string, error)
}

// CompanySource fetches the focal company's metrics
type CompanySource interface {
	FetchCompanyMetrics(ctx context.Context, symbol string) (contracts.MetricRecord, error)
}

// PeerSource resolves peers and their metrics
type PeerSource interface {
	GetSectorPeers(ctx context.Context, symbol string, limit int) ([]string, error)
	FetchPeerMetricsBatch(ctx context.Context, symbols []string) ([]contracts.MetricRecord, error)
}

// Result is a completed analysis
type Result struct {
	Symbol  string                 `json:"ticker"`
	Score   float64                `json:"score"`
	Company contracts.MetricRecord `json:"company"`
	// Peers are the symbols that survived filtering, in resolver order
	Peers []string             `json:"peers"`
	Table *scoring.ScoredTable `json:"table"`
}

// Service orchestrates one analysis per call. Safe for concurrent use.
// ⭐ SSOT: 분석 파이프라인 제어는 여기서만
type Service struct {
	validator Validator
	company   CompanySource
	peers     PeerSource
	engine    *scoring.Engine
	audit     *auditlog.Recorder
	metrics   *metrics.Manager
	logger    *logger.Logger
	peerLimit int
}

// NewService wires the pipeline. audit and m may be nil.
func NewService(v Validator, company CompanySource, peers PeerSource, engine *scoring.Engine, audit *auditlog.Recorder, m *metrics.Manager, log *logger.Logger, peerLimit int) *Service {
	return &Service{
		validator: v,
		company:   company,
		peers:     peers,
		engine:    engine,
		audit:     audit,
		metrics:   m,
		logger:    log.WithComponent("analysis"),
		peerLimit: peerLimit,
	}
}

// FetchMainCompanyFinancials returns the focal company's metrics without
// running the peer comparison. Only the format of ticker is checked.
func (s *Service) FetchMainCompanyFinancials(ctx context.Context, ticker string) (contracts.MetricRecord, error) {
	symbol := validator.Normalize(ticker)
	if !validator.ValidFormat(symbol) {
		return contracts.MetricRecord{}, fmt.Errorf("%w: bad format %q", contracts.ErrInvalidSymbol, ticker)
	}

	record, err := s.company.FetchCompanyMetrics(ctx, symbol)
	if err != nil {
		s.audit.Record(ctx, contracts.CategoryDataFetch, fmt.Sprintf("No data for %s", symbol), map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		})
		return contracts.MetricRecord{}, err
	}

	return record, nil
}

// RunFinancialAnalysis scores ticker against its sector peers.
//
// Errors match contracts.ErrInvalidSymbol, contracts.ErrDataUnavailable
// (contracts.ErrIncompletePeerSet when no usable peers remain),
// *contracts.CalculationError, or contracts.ErrAnalysisFailed for anything
// unexpected, panics included. Every failure writes an audit entry.
func (s *Service) RunFinancialAnalysis(ctx context.Context, ticker string) (result *Result, err error) {
	start := time.Now()
	log := s.logger.WithSymbol(ticker)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", contracts.ErrAnalysisFailed, p)
			result = nil
			s.audit.Record(ctx, contracts.CategoryAnalysis, fmt.Sprintf("Error in financial analysis for %s", ticker), map[string]interface{}{
				"symbol":     ticker,
				"error":      fmt.Sprint(p),
				"error_type": "panic",
				"stack":      string(debug.Stack()),
			})
		}

		outcome := outcomeOf(err)
		s.metrics.Analysis(outcome)
		if err == nil {
			s.metrics.Score(result.Score)
			log.WithFields(map[string]interface{}{
				"score":    result.Score,
				"peers":    len(result.Peers),
				"duration": time.Since(start),
			}).Info("financial analysis completed")
			return
		}
		log.WithError(err).WithField("outcome", outcome).Warn("financial analysis failed")
	}()

	return s.run(ctx, ticker)
}

func (s *Service) run(ctx context.Context, ticker string) (*Result, error) {
	symbol, err := s.validator.Validate(ctx, ticker)
	if err != nil {
		if !errors.Is(err, contracts.ErrInvalidSymbol) {
			return nil, s.unexpected(ctx, ticker, err)
		}
		s.audit.Record(ctx, contracts.CategoryValidation, fmt.Sprintf("Symbol %s is invalid", ticker), map[string]interface{}{
			"symbol": ticker,
		})
		return nil, err
	}

	company, err := s.company.FetchCompanyMetrics(ctx, symbol)
	if err != nil {
		if !errors.Is(err, contracts.ErrDataUnavailable) {
			return nil, s.unexpected(ctx, symbol, err)
		}
		s.audit.Record(ctx, contracts.CategoryDataFetch, fmt.Sprintf("No data for %s", symbol), map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		})
		return nil, err
	}

	candidates, err := s.peers.GetSectorPeers(ctx, symbol, s.peerLimit)
	if err != nil {
		return nil, s.unexpected(ctx, symbol, err)
	}
	if len(candidates) == 0 {
		s.audit.Record(ctx, contracts.CategoryDataFetch, fmt.Sprintf("No peers found for %s", symbol), map[string]interface{}{
			"symbol": symbol,
		})
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrIncompletePeerSet)
	}

	peerRecords, err := s.peers.FetchPeerMetricsBatch(ctx, candidates)
	if err != nil {
		return nil, s.unexpected(ctx, symbol, err)
	}
	if len(peerRecords) == 0 {
		s.audit.Record(ctx, contracts.CategoryDataFetch, "Could not fetch peer data", map[string]interface{}{
			"symbol": symbol,
			"peers":  candidates,
		})
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrIncompletePeerSet)
	}

	peerRecords = Backfill(company, peerRecords)

	table, err := s.engine.Table(company, peerRecords)
	if err != nil {
		s.audit.Record(ctx, contracts.CategoryCalculation, "Error in financial score calculation", map[string]interface{}{
			"symbol":       symbol,
			"error":        err.Error(),
			"error_type":   fmt.Sprintf("%T", err),
			"company_data": company,
			"sector_data":  peerRecords,
		})
		return nil, err
	}

	peers := make([]string, len(peerRecords))
	for i, p := range peerRecords {
		peers[i] = p.Symbol
	}

	return &Result{
		Symbol:  symbol,
		Score:   table.Score(),
		Company: company,
		Peers:   peers,
		Table:   table,
	}, nil
}

// unexpected records an out-of-taxonomy failure and wraps it
func (s *Service) unexpected(ctx context.Context, symbol string, err error) error {
	s.audit.Record(ctx, contracts.CategoryAnalysis, fmt.Sprintf("Error in financial analysis for %s", symbol), map[string]interface{}{
		"symbol":     symbol,
		"error":      err.Error(),
		"error_type": fmt.Sprintf("%T", err),
	})
	return fmt.Errorf("%w: %s: %w", contracts.ErrAnalysisFailed, symbol, err)
}

// Backfill copies the focal company's Revenue Growth and Free Cash Flow
// into every peer. Both columns therefore always score 0.5 for every row.
// The input records are not modified.
func Backfill(company contracts.MetricRecord, peers []contracts.MetricRecord) []contracts.MetricRecord {
	growth, _ := company.Get(contracts.RevenueGrowth)
	fcf, _ := company.Get(contracts.FreeCashFlow)

	out := make([]contracts.MetricRecord, len(peers))
	for i, p := range peers {
		out[i] = p.Clone()
		out[i].Set(contracts.RevenueGrowth, growth)
		out[i].Set(contracts.FreeCashFlow, fcf)
	}
	return out
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, contracts.ErrAnalysisFailed):
		return "failed"
	case errors.Is(err, contracts.ErrInvalidSymbol):
		return "invalid_symbol"
	case errors.Is(err, contracts.ErrIncompletePeerSet):
		return "no_peers"
	case errors.Is(err, contracts.ErrDataUnavailable):
		return "unavailable"
	case contracts.IsCalculationError(err):
		return "calculation_error"
	default:
		return "failed"
	}
}
