package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	newsWindow     = 30 * 24 * time.Hour
	newsLimit      = 10
	earningsWindow = 90 * 24 * time.Hour
	ratingsLimit   = 6
	enrichArticles = 3
)

// Config carries the provider settings the service needs.
type Config struct {
	FinnhubAPIKey    string
	FinnhubBaseURL   string
	CacheDir         string
	CacheEnabled     bool
	FetchArticleBody bool
}

// Service is the market-data collaborator: one method per data tool,
// composed from the Yahoo and Finnhub clients. Chat queries call the typed
// methods directly and never hit the file cache; only FetchTool (the raw
// data endpoint) caches.
type Service struct {
	yahoo            *YahooClient
	finnhub          *FinnhubClient
	fetcher          *ArticleFetcher
	cache            *CacheManager
	fetchArticleBody bool
}

// NewService creates the market-data service
func NewService(cfg Config) *Service {
	return &Service{
		yahoo:            NewYahooClient(),
		finnhub:          NewFinnhubClient(cfg.FinnhubAPIKey, cfg.FinnhubBaseURL),
		fetcher:          NewArticleFetcher(),
		cache:            NewCacheManager(filepath.Join(cfg.CacheDir, "tools"), 6*time.Hour, cfg.CacheEnabled),
		fetchArticleBody: cfg.FetchArticleBody,
	}
}

// QuoteProfile returns the current quote and profile metrics for a symbol.
func (s *Service) QuoteProfile(ctx context.Context, symbol string) (*QuoteProfile, error) {
	return s.yahoo.QuoteProfile(ctx, symbol)
}

// HistoricalPrices returns daily bars for a period.
func (s *Service) HistoricalPrices(ctx context.Context, symbol, period string) (*HistoricalPrices, error) {
	return s.yahoo.HistoricalPrices(ctx, symbol, period)
}

// FinancialStatements returns the latest reported statement of one type.
func (s *Service) FinancialStatements(ctx context.Context, symbol, statementType string, quarterly bool) (*FinancialStatement, error) {
	return s.finnhub.FinancialsReported(ctx, symbol, statementType, quarterly)
}

// News returns recent company news. When article fetching is enabled the
// first few summaries are replaced by extracted body text, best effort.
func (s *Service) News(ctx context.Context, symbol string) ([]*NewsArticle, error) {
	to := time.Now()
	from := to.Add(-newsWindow)

	articles, err := s.finnhub.CompanyNews(ctx, symbol, from, to, newsLimit)
	if err != nil {
		return nil, err
	}

	if s.fetchArticleBody {
		for i, article := range articles {
			if i >= enrichArticles {
				break
			}
			body, err := s.fetcher.FetchArticleText(ctx, article.URL)
			if err != nil {
				log.Ctx(ctx).Debug().Err(err).Str("url", article.URL).Msg("article fetch skipped")
				continue
			}
			article.Summary = body
		}
	}

	return articles, nil
}

// EarningsEvents returns scheduled earnings in the next window.
func (s *Service) EarningsEvents(ctx context.Context, symbol string) ([]EarningsEvent, error) {
	from := time.Now()
	to := from.Add(earningsWindow)
	return s.finnhub.EarningsCalendar(ctx, symbol, from, to)
}

// AnalystRatings returns the recent monthly recommendation trend.
func (s *Service) AnalystRatings(ctx context.Context, symbol string) (*AnalystRatings, error) {
	return s.finnhub.Recommendations(ctx, symbol, ratingsLimit)
}

// Compare returns side-by-side metrics for 2-5 symbols.
func (s *Service) Compare(ctx context.Context, symbols []string) (*Comparison, error) {
	return s.yahoo.Compare(ctx, symbols)
}

// ToolOptions carries the optional parameters a raw tool fetch accepts.
type ToolOptions struct {
	Period        string   `json:"period,omitempty"`
	StatementType string   `json:"statement_type,omitempty"`
	Quarterly     bool     `json:"quarterly,omitempty"`
	Symbols       []string `json:"symbols,omitempty"`
}

// FetchTool runs one named tool directly for the raw financial-data
// endpoint. Responses are file-cached per tool+symbol+options+day.
func (s *Service) FetchTool(ctx context.Context, tool, symbol string, opts ToolOptions) (interface{}, error) {
	cacheKey := map[string]interface{}{
		"tool":   tool,
		"symbol": symbol,
		"opts":   opts,
		"date":   time.Now().Format("2006-01-02"),
	}

	var cached interface{}
	if s.cache.Get("tools", tool, cacheKey, &cached) {
		return cached, nil
	}

	var (
		payload interface{}
		err     error
	)
	switch tool {
	case "quote_profile":
		payload, err = s.QuoteProfile(ctx, symbol)
	case "historical_prices":
		payload, err = s.HistoricalPrices(ctx, symbol, opts.Period)
	case "financial_statements":
		payload, err = s.FinancialStatements(ctx, symbol, opts.StatementType, opts.Quarterly)
	case "news":
		payload, err = s.News(ctx, symbol)
	case "earnings_events":
		payload, err = s.EarningsEvents(ctx, symbol)
	case "analyst_ratings":
		payload, err = s.AnalystRatings(ctx, symbol)
	case "compare":
		symbols := opts.Symbols
		if symbol != "" {
			symbols = append([]string{symbol}, symbols...)
		}
		payload, err = s.Compare(ctx, symbols)
	default:
		return nil, fmt.Errorf("unknown tool: %s", tool)
	}
	if err != nil {
		return nil, err
	}

	if cacheErr := s.cache.Set("tools", tool, cacheKey, payload); cacheErr != nil {
		log.Ctx(ctx).Debug().Err(cacheErr).Str("tool", tool).Msg("tool cache write failed")
	}

	return payload, nil
}
