package peers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/external/fmp"
	"github.com/wonny/finscore/internal/fetchcache"
	"github.com/wonny/finscore/internal/marketdata"
)

// FetchPeerMetricsBatch returns the usable metric records of symbols, in
// input order. Symbols are processed one at a time.
//
// Symbols containing a dot (non-domestic listings) are skipped without any
// fetch. A peer is dropped when its quote or ratios are unavailable or when
// any of the six peer-required metrics is null. Revenue Growth and Free Cash
// Flow are always left null for the caller to backfill.
func (r *Resolver) FetchPeerMetricsBatch(ctx context.Context, symbols []string) ([]contracts.MetricRecord, error) {
	records := make([]contracts.MetricRecord, 0, len(symbols))

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := r.logger.WithSymbol(symbol)

		if strings.Contains(symbol, ".") {
			log.Debug("skipping non-domestic listing")
			continue
		}

		record, err := fetchcache.GetOrFetch(ctx, r.cache, marketdata.PeerFinancials, fetchcache.Key("symbol", symbol),
			func(ctx context.Context) (contracts.MetricRecord, error) {
				return r.fetchPeerMetrics(ctx, symbol)
			})
		if err != nil {
			if errors.Is(err, contracts.ErrDataUnavailable) {
				log.WithError(err).Debug("peer data unavailable, skipping")
				continue
			}
			return nil, fmt.Errorf("peer %s: %w", symbol, err)
		}

		if missing := record.MissingAmong(contracts.PeerRequired...); len(missing) > 0 {
			log.WithField("missing", contracts.MetricNames(missing)).Debug("skipping incomplete peer")
			continue
		}

		records = append(records, record)
	}

	return records, nil
}

func (r *Resolver) fetchPeerMetrics(ctx context.Context, symbol string) (contracts.MetricRecord, error) {
	var empty contracts.MetricRecord

	quotes, err := r.md.Quote(ctx, symbol)
	if err != nil {
		return empty, fmt.Errorf("quote: %w", err)
	}
	ratios, err := r.md.RatiosTTM(ctx, symbol)
	if err != nil {
		return empty, fmt.Errorf("ratios: %w", err)
	}

	return PeerMetrics(symbol, quotes[0], ratios[0]), nil
}

// PeerMetrics builds a partial peer record. Missing sub-fields stay null;
// Revenue Growth and Free Cash Flow are always null.
func PeerMetrics(symbol string, quote fmp.Quote, ratios fmp.RatiosTTM) contracts.MetricRecord {
	return contracts.MetricRecord{
		Symbol:          symbol,
		NetProfitMargin: percent(ratios.NetProfitMarginTTM),
		ROE:             percent(ratios.ReturnOnEquityTTM),
		DebtToEquity:    copyOf(ratios.DebtEquityRatioTTM),
		EPS:             copyOf(quote.EPS),
		PERatio:         copyOf(quote.PE),
		CurrentRatio:    copyOf(ratios.CurrentRatioTTM),
	}
}

func percent(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return contracts.Float(*p * 100)
}

func copyOf(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return contracts.Float(*p)
}
