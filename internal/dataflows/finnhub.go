package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// FinnhubClient handles Finnhub API operations.
type FinnhubClient struct {
	client *resty.Client
	apiKey string
	retry  *RetryConfig
}

// NewFinnhubClient creates a new Finnhub client. baseURL is overridable for
// tests; pass "" for the public API.
func NewFinnhubClient(apiKey, baseURL string) *FinnhubClient {
	if baseURL == "" {
		baseURL = "https://finnhub.io/api/v1"
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		apiKey: apiKey,
		retry:  DefaultRetryConfig(),
	}
}

// finnhubNews represents news from the Finnhub API.
type finnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// CompanyNews gets recent news articles for a company, newest first, capped
// at limit.
func (fc *FinnhubClient) CompanyNews(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var result []*NewsArticle
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/company-news")
		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var items []finnhubNews
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return fmt.Errorf("failed to parse news response: %w", err)
		}

		result = make([]*NewsArticle, 0, limit)
		for _, item := range items {
			if len(result) >= limit {
				break
			}
			if item.Headline == "" {
				continue
			}
			result = append(result, &NewsArticle{
				Title:       CleanText(item.Headline),
				Summary:     CleanText(item.Summary),
				Source:      item.Source,
				URL:         item.URL,
				PublishedAt: time.Unix(item.DateTime, 0).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type earningsCalendarResponse struct {
	EarningsCalendar []struct {
		Date            string  `json:"date"`
		EPSEstimate     float64 `json:"epsEstimate"`
		Hour            string  `json:"hour"`
		Quarter         int     `json:"quarter"`
		RevenueEstimate int64   `json:"revenueEstimate"`
		Symbol          string  `json:"symbol"`
		Year            int     `json:"year"`
	} `json:"earningsCalendar"`
}

// EarningsCalendar gets scheduled earnings dates for a symbol in a window.
func (fc *FinnhubClient) EarningsCalendar(ctx context.Context, symbol string, from, to time.Time) ([]EarningsEvent, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var result []EarningsEvent
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/calendar/earnings")
		if err != nil {
			return fmt.Errorf("failed to fetch earnings calendar for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var calendar earningsCalendarResponse
		if err := json.Unmarshal(resp.Body(), &calendar); err != nil {
			return fmt.Errorf("failed to parse earnings calendar: %w", err)
		}

		result = make([]EarningsEvent, 0, len(calendar.EarningsCalendar))
		for _, e := range calendar.EarningsCalendar {
			result = append(result, EarningsEvent{
				Symbol:          e.Symbol,
				Date:            e.Date,
				Hour:            e.Hour,
				Quarter:         e.Quarter,
				Year:            e.Year,
				EPSEstimate:     decimal.NewFromFloat(e.EPSEstimate),
				RevenueEstimate: e.RevenueEstimate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type recommendationRow struct {
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Period     string `json:"period"`
	Sell       int    `json:"sell"`
	StrongBuy  int    `json:"strongBuy"`
	StrongSell int    `json:"strongSell"`
	Symbol     string `json:"symbol"`
}

// Recommendations gets the latest monthly analyst recommendation counts,
// newest first, capped at limit.
func (fc *FinnhubClient) Recommendations(ctx context.Context, symbol string, limit int) (*AnalystRatings, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var result *AnalystRatings
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"token":  fc.apiKey,
			}).
			Get("/stock/recommendation")
		if err != nil {
			return fmt.Errorf("failed to fetch recommendations for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var rows []recommendationRow
		if err := json.Unmarshal(resp.Body(), &rows); err != nil {
			return fmt.Errorf("failed to parse recommendations: %w", err)
		}

		ratings := &AnalystRatings{Symbol: symbol}
		for _, row := range rows {
			if len(ratings.Periods) >= limit {
				break
			}
			ratings.Periods = append(ratings.Periods, RatingPeriod{
				Period:     row.Period,
				StrongBuy:  row.StrongBuy,
				Buy:        row.Buy,
				Hold:       row.Hold,
				Sell:       row.Sell,
				StrongSell: row.StrongSell,
			})
		}
		result = ratings
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type financialsReportedResponse struct {
	Symbol string `json:"symbol"`
	Data   []struct {
		Year    int    `json:"year"`
		Quarter int    `json:"quarter"`
		Form    string `json:"form"`
		EndDate string `json:"endDate"`
		Report  struct {
			BalanceSheet    []reportedLine `json:"bs"`
			IncomeStatement []reportedLine `json:"ic"`
			CashFlow        []reportedLine `json:"cf"`
		} `json:"report"`
	} `json:"data"`
}

type reportedLine struct {
	Concept string  `json:"concept"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit"`
	Value   float64 `json:"value"`
}

// maxStatementLines bounds how many reported concepts a statement carries;
// full XBRL reports run to hundreds of lines.
const maxStatementLines = 40

// FinancialsReported gets the most recent reported statement of the given
// type ("income_stmt", "balance_sheet" or "cashflow").
func (fc *FinnhubClient) FinancialsReported(ctx context.Context, symbol, statementType string, quarterly bool) (*FinancialStatement, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	freq := "annual"
	if quarterly {
		freq = "quarterly"
	}

	var result *FinancialStatement
	err := WithRetry(ctx, fc.retry, func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"freq":   freq,
				"token":  fc.apiKey,
			}).
			Get("/stock/financials-reported")
		if err != nil {
			return fmt.Errorf("failed to fetch financials for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
		}

		var reported financialsReportedResponse
		if err := json.Unmarshal(resp.Body(), &reported); err != nil {
			return fmt.Errorf("failed to parse financials: %w", err)
		}
		if len(reported.Data) == 0 {
			return fmt.Errorf("no reported financials for %s", symbol)
		}

		latest := reported.Data[0]
		var section []reportedLine
		switch statementType {
		case "balance_sheet":
			section = latest.Report.BalanceSheet
		case "cashflow":
			section = latest.Report.CashFlow
		default:
			statementType = "income_stmt"
			section = latest.Report.IncomeStatement
		}

		statement := &FinancialStatement{
			Symbol:        symbol,
			StatementType: statementType,
			Quarterly:     quarterly,
			Year:          latest.Year,
			Quarter:       latest.Quarter,
			Form:          latest.Form,
			EndDate:       latest.EndDate,
		}
		for _, line := range section {
			if len(statement.Lines) >= maxStatementLines {
				break
			}
			statement.Lines = append(statement.Lines, StatementLine{
				Concept: line.Concept,
				Label:   line.Label,
				Unit:    line.Unit,
				Value:   line.Value,
			})
		}
		result = statement
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
