package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wonny/finscore/internal/analysis"
	"github.com/wonny/finscore/internal/auditlog"
	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/pkg/logger"
)

// Analyzer runs financial analyses
type Analyzer interface {
	FetchMainCompanyFinancials(ctx context.Context, ticker string) (contracts.MetricRecord, error)
	RunFinancialAnalysis(ctx context.Context, ticker string) (*analysis.Result, error)
}

// ScoreHandler serves the financial score
// ⭐ SSOT: 점수 API 핸들러는 이 구조체에서만
type ScoreHandler struct {
	analyzer Analyzer
	audit    *auditlog.Recorder
	logger   *logger.Logger
}

// NewScoreHandler creates a score handler. audit may be nil.
func NewScoreHandler(a Analyzer, audit *auditlog.Recorder, log *logger.Logger) *ScoreHandler {
	return &ScoreHandler{
		analyzer: a,
		audit:    audit,
		logger:   log.WithComponent("api"),
	}
}

// ScoreResponse is the successful /financial-score body
type ScoreResponse struct {
	Ticker          string   `json:"ticker"`
	Score           float64  `json:"score"`
	RevenueGrowth   *float64 `json:"revenue_growth"`
	NetProfitMargin *float64 `json:"net_profit_margin"`
	FreeCashFlow    *float64 `json:"free_cash_flow"`
	Peers           []string `json:"peers"`
}

// GetFinancialScore scores a ticker against its sector peers
// GET /financial-score?ticker=AAPL
func (h *ScoreHandler) GetFinancialScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := r.URL.Query().Get("ticker")

	if ticker == "" {
		h.audit.Record(ctx, contracts.CategoryAPI, "Missing ticker parameter in request", nil)
		respondError(w, http.StatusBadRequest, "Ticker parameter is required")
		return
	}

	financials, err := h.analyzer.FetchMainCompanyFinancials(ctx, ticker)
	if err != nil {
		h.fail(w, r, ticker, err, fmt.Sprintf("Could not fetch financial data for %s", ticker))
		return
	}

	result, err := h.analyzer.RunFinancialAnalysis(ctx, ticker)
	if err != nil {
		h.fail(w, r, ticker, err, fmt.Sprintf("Could not calculate financial score for %s", ticker))
		return
	}

	respondJSON(w, http.StatusOK, ScoreResponse{
		Ticker:          result.Symbol,
		Score:           result.Score,
		RevenueGrowth:   financials.RevenueGrowth,
		NetProfitMargin: financials.NetProfitMargin,
		FreeCashFlow:    financials.FreeCashFlow,
		Peers:           result.Peers,
	})
}

// fail maps err onto a status code and records an api audit entry.
// notFound is the message used for missing data.
func (h *ScoreHandler) fail(w http.ResponseWriter, r *http.Request, ticker string, err error, notFound string) {
	status, message := StatusFor(err, ticker, notFound)

	h.audit.Record(r.Context(), contracts.CategoryAPI, message, map[string]interface{}{
		"ticker": ticker,
		"error":  err.Error(),
	})

	log := h.logger.WithSymbol(ticker).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Error("financial score request failed")
	} else {
		log.Info("financial score request rejected")
	}

	respondError(w, status, message)
}

// StatusFor maps an analysis error onto an HTTP status and message
func StatusFor(err error, ticker, notFound string) (int, string) {
	switch {
	case errors.Is(err, contracts.ErrInvalidSymbol):
		return http.StatusBadRequest, fmt.Sprintf("Invalid ticker symbol: %s", ticker)
	case errors.Is(err, contracts.ErrAnalysisFailed):
		// may wrap a sentinel from deeper down; still a server fault
	case errors.Is(err, contracts.ErrDataUnavailable):
		return http.StatusNotFound, notFound
	}
	return http.StatusInternalServerError, fmt.Sprintf("Unexpected error processing request for %s", ticker)
}
