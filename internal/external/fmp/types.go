package fmp

// Financial Modeling Prep response rows.
// Every endpoint answers with a JSON array; fields the scoring path may
// need to tell apart from zero are pointers.

// SearchResult is one row of /search
type SearchResult struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	StockExchange     string `json:"stockExchange"`
	ExchangeShortName string `json:"exchangeShortName"`
}

// Profile is one row of /profile/{symbol}
type Profile struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	Sector            string  `json:"sector"`
	Industry          string  `json:"industry"`
	Country           string  `json:"country"`
	ExchangeShortName string  `json:"exchangeShortName"`
	MktCap            float64 `json:"mktCap"`
	IsETF             bool    `json:"isEtf"`
}

// ScreenerEntry is one row of /stock-screener
type ScreenerEntry struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	Sector            string  `json:"sector"`
	Industry          string  `json:"industry"`
	MarketCap         float64 `json:"marketCap"`
	ExchangeShortName string  `json:"exchangeShortName"`
	Country           string  `json:"country"`
}

// IncomeStatement is one period of /income-statement/{symbol}, newest first
type IncomeStatement struct {
	Date      string  `json:"date"`
	Symbol    string  `json:"symbol"`
	Period    string  `json:"period"`
	Revenue   float64 `json:"revenue"`
	NetIncome float64 `json:"netIncome"`
}

// CashFlowStatement is one period of /cash-flow-statement/{symbol}, newest first
type CashFlowStatement struct {
	Date         string  `json:"date"`
	Symbol       string  `json:"symbol"`
	Period       string  `json:"period"`
	FreeCashFlow float64 `json:"freeCashFlow"`
}

// RatiosTTM is the single row of /ratios-ttm/{symbol}.
// Margins and returns are fractions (0.25 = 25%).
type RatiosTTM struct {
	NetProfitMarginTTM *float64 `json:"netProfitMarginTTM"`
	ReturnOnEquityTTM  *float64 `json:"returnOnEquityTTM"`
	DebtEquityRatioTTM *float64 `json:"debtEquityRatioTTM"`
	CurrentRatioTTM    *float64 `json:"currentRatioTTM"`
}

// Quote is the single row of /quote/{symbol}
type Quote struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	MarketCap float64  `json:"marketCap"`
	EPS       *float64 `json:"eps"`
	PE        *float64 `json:"pe"`
}

// ScreenerFilter selects the screener universe. Exactly one of Sector or
// Industry is expected to be set.
type ScreenerFilter struct {
	Sector   string
	Industry string
	Limit    int
}
