package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
)

// YahooClient fetches quotes, profiles and price history from Yahoo Finance.
type YahooClient struct {
	retry *RetryConfig
}

// NewYahooClient creates a new Yahoo Finance client
func NewYahooClient() *YahooClient {
	return &YahooClient{
		retry: DefaultRetryConfig(),
	}
}

// QuoteProfile gets the current quote plus profile metrics for a symbol.
func (yc *YahooClient) QuoteProfile(ctx context.Context, symbol string) (*QuoteProfile, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var result *QuoteProfile
	err := WithRetry(ctx, yc.retry, func() error {
		eq, err := equity.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}
		if eq == nil {
			return fmt.Errorf("no quote data returned for %s", symbol)
		}

		name := eq.LongName
		if name == "" {
			name = eq.ShortName
		}

		result = &QuoteProfile{
			Symbol:         symbol,
			Name:           name,
			Exchange:       eq.FullExchangeName,
			Currency:       eq.CurrencyID,
			MarketState:    string(eq.MarketState),
			Price:          decimal.NewFromFloat(eq.RegularMarketPrice),
			Change:         decimal.NewFromFloat(eq.RegularMarketChange),
			ChangePercent:  decimal.NewFromFloat(eq.RegularMarketChangePercent),
			PreviousClose:  decimal.NewFromFloat(eq.RegularMarketPreviousClose),
			Open:           decimal.NewFromFloat(eq.RegularMarketOpen),
			DayHigh:        decimal.NewFromFloat(eq.RegularMarketDayHigh),
			DayLow:         decimal.NewFromFloat(eq.RegularMarketDayLow),
			Volume:         int64(eq.RegularMarketVolume),
			FiftyTwoWkLow:  decimal.NewFromFloat(eq.FiftyTwoWeekLow),
			FiftyTwoWkHigh: decimal.NewFromFloat(eq.FiftyTwoWeekHigh),
			MarketCap:      eq.MarketCap,
			TrailingPE:     decimal.NewFromFloat(eq.TrailingPE),
			ForwardPE:      decimal.NewFromFloat(eq.ForwardPE),
			PriceToBook:    decimal.NewFromFloat(eq.PriceToBook),
			EPS:            decimal.NewFromFloat(eq.EpsTrailingTwelveMonths),
			DividendYield:  decimal.NewFromFloat(eq.TrailingAnnualDividendYield),
			FetchedAt:      time.Now(),
		}

		if eq.EarningsTimestamp > 0 {
			result.NextEarnings = time.Unix(int64(eq.EarningsTimestamp), 0).Format("2006-01-02")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// HistoricalPrices gets daily bars for a period ("3mo", "6mo", "1y", "2y").
func (yc *YahooClient) HistoricalPrices(ctx context.Context, symbol, period string) (*HistoricalPrices, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	period, start := periodStart(period)
	end := time.Now()

	var result *HistoricalPrices
	err := WithRetry(ctx, yc.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)

		bars := make([]PriceBar, 0)
		for iter.Next() {
			bar := iter.Bar()
			bars = append(bars, PriceBar{
				Date:     time.Unix(int64(bar.Timestamp), 0).Format("2006-01-02"),
				Open:     bar.Open,
				High:     bar.High,
				Low:      bar.Low,
				Close:    bar.Close,
				AdjClose: bar.AdjClose,
				Volume:   int64(bar.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get historical data for %s (%s): %w",
				symbol, FormatDateRange(start, end), err)
		}
		if len(bars) == 0 {
			return fmt.Errorf("no historical data for %s (%s)", symbol, FormatDateRange(start, end))
		}

		first := bars[0].Close
		last := bars[len(bars)-1].Close
		change := decimal.Zero
		if !first.IsZero() {
			change = last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2)
		}

		result = &HistoricalPrices{
			Symbol:        symbol,
			Period:        period,
			Bars:          bars,
			PeriodStart:   first,
			PeriodEnd:     last,
			ChangePercent: change,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Compare fetches profile metrics for each symbol side by side.
func (yc *YahooClient) Compare(ctx context.Context, symbols []string) (*Comparison, error) {
	if len(symbols) < 2 {
		return nil, fmt.Errorf("comparison needs at least 2 symbols, got %d", len(symbols))
	}

	cmp := &Comparison{Symbols: make([]string, 0, len(symbols))}
	for _, symbol := range symbols {
		profile, err := yc.QuoteProfile(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("comparison fetch failed for %s: %w", symbol, err)
		}
		cmp.Symbols = append(cmp.Symbols, profile.Symbol)
		cmp.Entries = append(cmp.Entries, ComparisonEntry{
			Symbol:         profile.Symbol,
			Name:           profile.Name,
			Price:          profile.Price,
			ChangePercent:  profile.ChangePercent,
			MarketCap:      profile.MarketCap,
			TrailingPE:     profile.TrailingPE,
			PriceToBook:    profile.PriceToBook,
			EPS:            profile.EPS,
			FiftyTwoWkLow:  profile.FiftyTwoWkLow,
			FiftyTwoWkHigh: profile.FiftyTwoWkHigh,
		})
	}

	return cmp, nil
}

// periodStart normalizes a history period and returns its start time.
func periodStart(period string) (string, time.Time) {
	now := time.Now()
	switch period {
	case "3mo":
		return "3mo", now.AddDate(0, -3, 0)
	case "6mo":
		return "6mo", now.AddDate(0, -6, 0)
	case "2y":
		return "2y", now.AddDate(-2, 0, 0)
	default:
		return "1y", now.AddDate(-1, 0, 0)
	}
}
