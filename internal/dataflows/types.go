package dataflows

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteProfile is the snapshot returned for the quote/profile tool and for
// watchlist enrichment.
type QuoteProfile struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Exchange       string          `json:"exchange"`
	Currency       string          `json:"currency"`
	MarketState    string          `json:"market_state"`
	Price          decimal.Decimal `json:"price"`
	Change         decimal.Decimal `json:"change"`
	ChangePercent  decimal.Decimal `json:"change_percent"`
	PreviousClose  decimal.Decimal `json:"previous_close"`
	Open           decimal.Decimal `json:"open"`
	DayHigh        decimal.Decimal `json:"day_high"`
	DayLow         decimal.Decimal `json:"day_low"`
	Volume         int64           `json:"volume"`
	FiftyTwoWkLow  decimal.Decimal `json:"fifty_two_week_low"`
	FiftyTwoWkHigh decimal.Decimal `json:"fifty_two_week_high"`
	MarketCap      int64           `json:"market_cap,omitempty"`
	TrailingPE     decimal.Decimal `json:"trailing_pe,omitempty"`
	ForwardPE      decimal.Decimal `json:"forward_pe,omitempty"`
	PriceToBook    decimal.Decimal `json:"price_to_book,omitempty"`
	EPS            decimal.Decimal `json:"eps_ttm,omitempty"`
	DividendYield  decimal.Decimal `json:"dividend_yield,omitempty"`
	NextEarnings   string          `json:"next_earnings,omitempty"`
	FetchedAt      time.Time       `json:"fetched_at"`
}

// PriceBar is one OHLCV bar of daily history.
type PriceBar struct {
	Date     string          `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

// HistoricalPrices holds a period of daily bars plus a start/end summary so
// a reader can judge performance without scanning every bar.
type HistoricalPrices struct {
	Symbol        string          `json:"symbol"`
	Period        string          `json:"period"`
	Bars          []PriceBar      `json:"bars"`
	PeriodStart   decimal.Decimal `json:"period_start_close"`
	PeriodEnd     decimal.Decimal `json:"period_end_close"`
	ChangePercent decimal.Decimal `json:"period_change_percent"`
}

// NewsArticle is one headline with a plain-text summary.
type NewsArticle struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// EarningsEvent is one row of the upcoming-earnings calendar.
type EarningsEvent struct {
	Symbol          string          `json:"symbol"`
	Date            string          `json:"date"`
	Hour            string          `json:"hour,omitempty"`
	Quarter         int             `json:"quarter"`
	Year            int             `json:"year"`
	EPSEstimate     decimal.Decimal `json:"eps_estimate,omitempty"`
	RevenueEstimate int64           `json:"revenue_estimate,omitempty"`
}

// RatingPeriod is one month of analyst recommendation counts.
type RatingPeriod struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

// AnalystRatings is the recent recommendation trend for a symbol.
type AnalystRatings struct {
	Symbol  string         `json:"symbol"`
	Periods []RatingPeriod `json:"periods"`
}

// StatementLine is one reported concept from a financial statement.
type StatementLine struct {
	Concept string  `json:"concept"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit"`
	Value   float64 `json:"value"`
}

// FinancialStatement is the most recent reported statement of one type.
type FinancialStatement struct {
	Symbol        string          `json:"symbol"`
	StatementType string          `json:"statement_type"`
	Quarterly     bool            `json:"quarterly"`
	Year          int             `json:"year"`
	Quarter       int             `json:"quarter"`
	Form          string          `json:"form"`
	EndDate       string          `json:"end_date"`
	Lines         []StatementLine `json:"lines"`
}

// ComparisonEntry is one ticker's metric row in a comparison.
type ComparisonEntry struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	ChangePercent  decimal.Decimal `json:"change_percent"`
	MarketCap      int64           `json:"market_cap"`
	TrailingPE     decimal.Decimal `json:"trailing_pe"`
	PriceToBook    decimal.Decimal `json:"price_to_book"`
	EPS            decimal.Decimal `json:"eps_ttm"`
	FiftyTwoWkLow  decimal.Decimal `json:"fifty_two_week_low"`
	FiftyTwoWkHigh decimal.Decimal `json:"fifty_two_week_high"`
}

// Comparison holds side-by-side metrics for 2-5 tickers.
type Comparison struct {
	Symbols []string          `json:"symbols"`
	Entries []ComparisonEntry `json:"entries"`
}
