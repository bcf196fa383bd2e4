package marketdata

import (
	"time"

	"github.com/wonny/finscore/internal/fetchcache"
)

const (
	day  = 24 * time.Hour
	hour = time.Hour
)

// Cache datasets and their expiry
// ⭐ SSOT: 데이터셋 이름과 TTL은 여기서만 정의
var (
	SearchResults     = fetchcache.Dataset{Name: "search_results", TTL: day}
	Profiles          = fetchcache.Dataset{Name: "profiles", TTL: day}
	SectorPeers       = fetchcache.Dataset{Name: "sector_peers", TTL: 2 * day}
	IndustryPeers     = fetchcache.Dataset{Name: "industry_peers", TTL: 2 * day}
	IncomeStatements  = fetchcache.Dataset{Name: "income_statement", TTL: 2 * day}
	CashFlows         = fetchcache.Dataset{Name: "cashflow", TTL: 2 * day}
	Ratios            = fetchcache.Dataset{Name: "ratios", TTL: day}
	Quotes            = fetchcache.Dataset{Name: "quotes", TTL: hour}
	CompanyFinancials = fetchcache.Dataset{Name: "company_financials", TTL: day}
	PeerFinancials    = fetchcache.Dataset{Name: "peer_financials", TTL: day}
)

// Datasets lists every dataset, for policy registration and CLI output
var Datasets = []fetchcache.Dataset{
	SearchResults, Profiles, SectorPeers, IndustryPeers,
	IncomeStatements, CashFlows, Ratios, Quotes,
	CompanyFinancials, PeerFinancials,
}

// statementPeriods is how many periods income and cash flow requests ask for
const statementPeriods = 2

// searchLimit: only the first candidate is ever compared
const searchLimit = 1
