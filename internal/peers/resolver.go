// Package peers resolves sector peers and their comparable metrics.
package peers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/external/fmp"
	"github.com/wonny/finscore/internal/fetchcache"
	"github.com/wonny/finscore/pkg/logger"
)

// DefaultLimit is the peer count used when none is configured
const DefaultLimit = 5

// MarketData is the subset of the Market Data Client the resolver uses
type MarketData interface {
	Profile(ctx context.Context, symbol string) ([]fmp.Profile, error)
	SectorScreener(ctx context.Context, sector string) ([]fmp.ScreenerEntry, error)
	IndustryScreener(ctx context.Context, industry string) ([]fmp.ScreenerEntry, error)
	RatiosTTM(ctx context.Context, symbol string) ([]fmp.RatiosTTM, error)
	Quote(ctx context.Context, symbol string) ([]fmp.Quote, error)
}

// Config holds peer selection settings
type Config struct {
	Limit int
	// IndustryFirst screens by industry and falls back to sector
	IndustryFirst bool
}

// Resolver is the Peer Resolver
type Resolver struct {
	md     MarketData
	cache  *fetchcache.Cache
	config Config
	logger *logger.Logger
}

// NewResolver creates a resolver. Peer records are cached in cache under
// the peer_financials dataset.
func NewResolver(md MarketData, cache *fetchcache.Cache, cfg Config, log *logger.Logger) *Resolver {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Resolver{
		md:     md,
		cache:  cache,
		config: cfg,
		logger: log.WithComponent("peers"),
	}
}

// Limit returns the configured peer count
func (r *Resolver) Limit() int {
	return r.config.Limit
}

// GetSectorPeers returns up to limit symbols sharing symbol's sector, in
// screener order, excluding symbol itself. limit <= 0 uses the configured
// limit. An empty result is not an error.
func (r *Resolver) GetSectorPeers(ctx context.Context, symbol string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = r.config.Limit
	}
	log := r.logger.WithSymbol(symbol)

	profiles, err := r.md.Profile(ctx, symbol)
	if err != nil {
		if errors.Is(err, contracts.ErrDataUnavailable) {
			log.WithError(err).Info("no profile, no peers")
			return nil, nil
		}
		return nil, fmt.Errorf("profile %s: %w", symbol, err)
	}
	profile := profiles[0]

	if r.config.IndustryFirst && profile.Industry != "" {
		peers, err := r.screen(ctx, r.md.IndustryScreener, profile.Industry, symbol, limit)
		if err != nil {
			return nil, err
		}
		if len(peers) > 0 {
			return peers, nil
		}
		log.WithField("industry", profile.Industry).Info("no industry peers, trying sector")
	}

	if profile.Sector == "" {
		log.Info("profile has no sector")
		return nil, nil
	}

	peers, err := r.screen(ctx, r.md.SectorScreener, profile.Sector, symbol, limit)
	if err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		log.WithField("sector", profile.Sector).Info("no sector peers")
	}

	return peers, nil
}

type screenFunc func(ctx context.Context, group string) ([]fmp.ScreenerEntry, error)

func (r *Resolver) screen(ctx context.Context, fn screenFunc, group, symbol string, limit int) ([]string, error) {
	entries, err := fn(ctx, group)
	if err != nil {
		if errors.Is(err, contracts.ErrDataUnavailable) {
			return nil, nil
		}
		return nil, fmt.Errorf("screener %s: %w", group, err)
	}

	return selectPeers(entries, symbol, limit), nil
}

// selectPeers keeps screener order, drops symbol and stops at limit
func selectPeers(entries []fmp.ScreenerEntry, symbol string, limit int) []string {
	peers := make([]string, 0, limit)
	for _, e := range entries {
		if len(peers) == limit {
			break
		}
		if e.Symbol == "" || strings.EqualFold(e.Symbol, symbol) {
			continue
		}
		peers = append(peers, e.Symbol)
	}
	return peers
}
