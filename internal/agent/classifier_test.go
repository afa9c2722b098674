package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolNames(requests []ToolRequest) []ToolName {
	names := make([]ToolName, 0, len(requests))
	for _, r := range requests {
		names = append(names, r.Tool)
	}
	return names
}

func TestClassifyEmptyWatchlistSubstitutesDemoSet(t *testing.T) {
	cls := Classify(Query{Text: "how are my stocks doing"}, nil)

	assert.Equal(t, DemoSymbols, cls.Tickers)
	require.Len(t, cls.Requests, 1)
	assert.Equal(t, ToolQuoteProfile, cls.Requests[0].Tool)
	assert.Equal(t, []string{"AAPL"}, cls.Requests[0].Symbols)
}

func TestClassifyRejectsSymbolsOutsideWatchlist(t *testing.T) {
	cls := Classify(Query{Text: "latest news on AAPL"}, []string{"NVDA"})

	assert.Equal(t, []string{"NVDA"}, cls.Tickers)
	require.Len(t, cls.Requests, 1)
	assert.Equal(t, ToolNews, cls.Requests[0].Tool)
	assert.Equal(t, []string{"NVDA"}, cls.Requests[0].Symbols)
	require.Len(t, cls.Notes, 1)
	assert.Contains(t, cls.Notes[0], "AAPL")
}

func TestClassifyFocalTickerOutsideWatchlistSubstituted(t *testing.T) {
	cls := Classify(Query{Text: "give me an overview", FocalTicker: "NFLX"}, []string{"AAPL"})

	assert.Equal(t, []string{"AAPL"}, cls.Tickers)
	require.NotEmpty(t, cls.Notes)
	assert.Contains(t, cls.Notes[0], "NFLX")
}

func TestClassifySymbolsAlwaysSubsetOfPermitted(t *testing.T) {
	queries := []Query{
		{Text: "Tesla earnings Q3 2025", FocalTicker: "TSLA"},
		{Text: "compare AAPL vs MSFT vs RANDOMCO"},
		{Text: "$GME to the moon"},
		{Text: "what is the best stock"},
		{Text: "NVDA analyst ratings and news"},
	}
	watchlists := [][]string{
		nil,
		{"AAPL"},
		{"AAPL", "MSFT", "NVDA", "TSLA"},
	}

	for _, q := range queries {
		for _, wl := range watchlists {
			permitted := map[string]bool{}
			for _, s := range wl {
				permitted[s] = true
			}
			for _, s := range DemoSymbols {
				permitted[s] = true
			}

			cls := Classify(q, wl)
			for _, req := range cls.Requests {
				for _, sym := range req.Symbols {
					assert.True(t, permitted[sym],
						"query %q watchlist %v emitted %s", q.Text, wl, sym)
				}
			}
		}
	}
}

func TestClassifyEarningsQuery(t *testing.T) {
	cls := Classify(Query{Text: "Tesla earnings Q3 2025", FocalTicker: "TSLA"},
		[]string{"TSLA", "AAPL"})

	assert.Equal(t, []string{"TSLA"}, cls.Tickers)
	assert.Equal(t,
		[]ToolName{ToolEarningsEvents, ToolNews, ToolQuoteProfile},
		toolNames(cls.Requests))
	for _, req := range cls.Requests {
		assert.Equal(t, []string{"TSLA"}, req.Symbols)
	}
}

func TestClassifyComparisonCollapsesToSingleRequest(t *testing.T) {
	cls := Classify(Query{Text: "AAPL vs MSFT performance"},
		[]string{"AAPL", "MSFT", "GOOGL"})

	require.Len(t, cls.Requests, 2)
	assert.Equal(t, ToolCompare, cls.Requests[0].Tool)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cls.Requests[0].Symbols)
	assert.Equal(t, ToolHistoricalPrices, cls.Requests[1].Tool)
	assert.Equal(t, []string{"AAPL"}, cls.Requests[1].Symbols)
	assert.Equal(t, "1y", cls.Requests[1].Period)
}

func TestClassifyCompareCappedAtFive(t *testing.T) {
	watchlist := []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA"}
	cls := Classify(Query{Text: "compare AAPL MSFT GOOGL AMZN TSLA NVDA"}, watchlist)

	require.Len(t, cls.Requests, 1)
	assert.Equal(t, ToolCompare, cls.Requests[0].Tool)
	assert.Len(t, cls.Requests[0].Symbols, MaxCompareTickers)
	require.Len(t, cls.Notes, 1)
	assert.Contains(t, cls.Notes[0], "NVDA")
}

func TestClassifyCompareNeedsTwoTickers(t *testing.T) {
	cls := Classify(Query{Text: "how does AAPL compare"}, []string{"AAPL"})

	for _, req := range cls.Requests {
		assert.NotEqual(t, ToolCompare, req.Tool)
	}
}

func TestClassifyStatementAndPeriodParameters(t *testing.T) {
	cls := Classify(
		Query{Text: "show the quarterly balance sheet and 6 month chart for AAPL"},
		[]string{"AAPL"})

	require.Len(t, cls.Requests, 2)

	hist := cls.Requests[0]
	assert.Equal(t, ToolHistoricalPrices, hist.Tool)
	assert.Equal(t, "6mo", hist.Period)

	fin := cls.Requests[1]
	assert.Equal(t, ToolFinancialStatements, fin.Tool)
	assert.Equal(t, "balance_sheet", fin.StatementType)
	assert.True(t, fin.Quarterly)
}

func TestClassifyCashFlowStatement(t *testing.T) {
	cls := Classify(Query{Text: "AAPL cash flow statement"}, []string{"AAPL"})

	require.Len(t, cls.Requests, 1)
	assert.Equal(t, ToolFinancialStatements, cls.Requests[0].Tool)
	assert.Equal(t, "cashflow", cls.Requests[0].StatementType)
	assert.False(t, cls.Requests[0].Quarterly)
}

func TestClassifyDollarPrefixedSymbols(t *testing.T) {
	cls := Classify(Query{Text: "thoughts on $F and $AAPL"}, []string{"F", "AAPL"})

	assert.Equal(t, []string{"F", "AAPL"}, cls.Tickers)
}

func TestClassifyLowercaseTickerNearCueWord(t *testing.T) {
	cls := Classify(Query{Text: "tell me about aapl stock"}, []string{"AAPL", "MSFT"})
	assert.Equal(t, []string{"AAPL"}, cls.Tickers)

	cls = Classify(Query{Text: "any news on ticker msft"}, []string{"AAPL", "MSFT"})
	assert.Equal(t, []string{"MSFT"}, cls.Tickers)

	cls = Classify(Query{Text: "aapl compared to msft this quarter"}, []string{"AAPL", "MSFT"})
	assert.Equal(t, []string{"AAPL", "MSFT"}, cls.Tickers)
	require.NotEmpty(t, cls.Requests)
	assert.Equal(t, ToolCompare, cls.Requests[0].Tool)
}

func TestClassifyCompanyNames(t *testing.T) {
	cls := Classify(Query{Text: "is nvidia overvalued versus microsoft"},
		[]string{"NVDA", "MSFT"})

	assert.Equal(t, []string{"NVDA", "MSFT"}, cls.Tickers)
	require.NotEmpty(t, cls.Requests)
	assert.Equal(t, ToolCompare, cls.Requests[0].Tool)
	assert.Equal(t, []string{"NVDA", "MSFT"}, cls.Requests[0].Symbols)
}

func TestClassifyStopWordsNotTickers(t *testing.T) {
	cls := Classify(Query{Text: "WHAT ABOUT STOCK PRICE"}, nil)

	assert.Equal(t, DemoSymbols, cls.Tickers)
}

func TestClassifyAnalystKeywords(t *testing.T) {
	cls := Classify(Query{Text: "any analyst upgrades for AAPL"}, []string{"AAPL"})

	assert.Equal(t, []ToolName{ToolAnalystRatings}, toolNames(cls.Requests))
}

func TestClassifyMultipleKeywordGroups(t *testing.T) {
	cls := Classify(Query{Text: "AAPL news and analyst ratings"}, []string{"AAPL"})

	assert.Equal(t, []ToolName{ToolNews, ToolAnalystRatings}, toolNames(cls.Requests))
}

func TestClassifyDeterministic(t *testing.T) {
	q := Query{Text: "compare apple, microsoft and google earnings"}
	watchlist := []string{"AAPL", "MSFT", "GOOGL", "TSLA"}

	first := Classify(q, watchlist)
	for i := 0; i < 25; i++ {
		assert.Equal(t, first, Classify(q, watchlist))
	}
}
