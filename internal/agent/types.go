package agent

import (
	"context"
	"strings"
	"time"

	"github.com/manas15/Financial-Agent/internal/dataflows"
)

// ToolName identifies one market-data lookup. The set is closed; there is
// no dynamic tool registration.
type ToolName string

const (
	ToolQuoteProfile        ToolName = "quote_profile"
	ToolHistoricalPrices    ToolName = "historical_prices"
	ToolFinancialStatements ToolName = "financial_statements"
	ToolNews                ToolName = "news"
	ToolEarningsEvents      ToolName = "earnings_events"
	ToolAnalystRatings      ToolName = "analyst_ratings"
	ToolCompare             ToolName = "compare"
)

// MaxCompareTickers caps how many symbols a single compare request carries.
const MaxCompareTickers = 5

// DemoSymbols is the fixed fallback set used when a caller's watchlist is
// empty, so the assistant always has something it is permitted to discuss.
var DemoSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}

// Query is one incoming chat question. Immutable once received.
type Query struct {
	Text        string
	FocalTicker string
	CallerID    string
	SessionID   string
}

// ToolRequest is one market-data call the classifier decided on. Symbols
// holds one entry for single-ticker tools and 2-5 for compare.
type ToolRequest struct {
	Tool          ToolName
	Symbols       []string
	Period        string
	StatementType string
	Quarterly     bool
}

// Primary returns the first symbol of the request.
func (r ToolRequest) Primary() string {
	if len(r.Symbols) == 0 {
		return ""
	}
	return r.Symbols[0]
}

// ToolResult is the outcome of one dispatched request. Failed results carry
// an error and no payload; they live only for the duration of one query.
type ToolResult struct {
	Tool      ToolName
	Symbol    string
	Payload   any
	FetchedAt time.Time
	Err       error
}

// Classification is the classifier's full decision for one query.
type Classification struct {
	Tickers  []string
	Requests []ToolRequest
	Notes    []string
}

// AssembledContext is the bounded textual context handed to the synthesizer.
// Dropped lists the labels of blocks removed by truncation.
type AssembledContext struct {
	Text     string
	DataUsed bool
	Dropped  []string
}

// ChatExchange is the terminal outcome of one query: what the caller gets
// back and what the session store records. ErrorKind is empty on success.
type ChatExchange struct {
	SessionID string
	Query     string
	Response  string
	DataUsed  bool
	ErrorKind string
	Timestamp time.Time
}

// MarketData is the market-data collaborator, one method per tool.
type MarketData interface {
	QuoteProfile(ctx context.Context, symbol string) (*dataflows.QuoteProfile, error)
	HistoricalPrices(ctx context.Context, symbol, period string) (*dataflows.HistoricalPrices, error)
	FinancialStatements(ctx context.Context, symbol, statementType string, quarterly bool) (*dataflows.FinancialStatement, error)
	News(ctx context.Context, symbol string) ([]*dataflows.NewsArticle, error)
	EarningsEvents(ctx context.Context, symbol string) ([]dataflows.EarningsEvent, error)
	AnalystRatings(ctx context.Context, symbol string) (*dataflows.AnalystRatings, error)
	Compare(ctx context.Context, symbols []string) (*dataflows.Comparison, error)
}

// LLM is the language-model collaborator.
type LLM interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// SessionStore records and replays per-session transcripts.
type SessionStore interface {
	Append(ctx context.Context, callerID, title string, ex ChatExchange) error
	Recent(ctx context.Context, sessionID string, limit int) ([]ChatExchange, error)
}

// WatchlistSource exposes the caller's current permitted symbols.
type WatchlistSource interface {
	WatchlistSymbols(ctx context.Context, callerID string) ([]string, error)
}

func joinSymbols(symbols []string) string {
	return strings.Join(symbols, ",")
}
