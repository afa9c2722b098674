package agent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/manas15/Financial-Agent/internal/dataflows"
)

// Symbol extraction is deliberately loose; the permitted-set filter below is
// what enforces the watchlist restriction. The cue-word patterns run against
// the uppercased query so lowercase mentions ("aapl stock", "ticker msft")
// still resolve; the bare pattern runs against the raw query only, otherwise
// every short word would become a candidate.
var (
	cueTickerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$([A-Z]{1,5})\b`),
		regexp.MustCompile(`\b([A-Z]{2,5})\s+(?:STOCK|SHARES?|TICKER|COMPANY)\b`),
		regexp.MustCompile(`\b(?:STOCK|TICKER|SYMBOL)\s+([A-Z]{2,5})\b`),
		regexp.MustCompile(`\b([A-Z]{2,5})\s+(?:VS\.?|VERSUS|COMPARED?(?:\s+TO)?)\s+([A-Z]{2,5})\b`),
	}
	bareTickerPattern = regexp.MustCompile(`\b([A-Z]{2,5})\b`)
)

// Common uppercase words that look like tickers but almost never are.
var stopWords = map[string]bool{
	"WHAT": true, "WHEN": true, "WHERE": true, "WHICH": true, "WILL": true,
	"WITH": true, "FROM": true, "THAT": true, "THIS": true, "THEY": true,
	"HAVE": true, "BEEN": true, "WERE": true, "WOULD": true, "COULD": true,
	"SHOULD": true, "ABOUT": true, "STOCK": true, "PRICE": true,
	"MARKET": true, "TRADE": true, "INVEST": true, "ANALYSIS": true,
	"COMPANY": true,
}

// Ordered so extraction stays deterministic.
var companyNames = []struct {
	name   string
	symbol string
}{
	{"apple", "AAPL"},
	{"microsoft", "MSFT"},
	{"google", "GOOGL"},
	{"tesla", "TSLA"},
	{"amazon", "AMZN"},
	{"facebook", "META"},
	{"nvidia", "NVDA"},
	{"netflix", "NFLX"},
	{"spotify", "SPOT"},
}

var compareKeywords = []string{"compare", "vs", "versus", "against"}

// lexicon maps keyword groups to the tools they require. Entries are checked
// in order; a query may match several.
var lexicon = []struct {
	tools    []ToolName
	keywords []string
}{
	{
		tools:    []ToolName{ToolHistoricalPrices},
		keywords: []string{"historical", "price history", "chart", "performance"},
	},
	{
		tools:    []ToolName{ToolFinancialStatements},
		keywords: []string{"financial", "statement", "income", "balance sheet", "cash flow", "cashflow"},
	},
	{
		tools:    []ToolName{ToolNews},
		keywords: []string{"news", "latest", "recent", "announcement"},
	},
	{
		tools:    []ToolName{ToolEarningsEvents, ToolNews, ToolQuoteProfile},
		keywords: []string{"upcoming", "events", "earnings", "coming", "future", "calendar", "scheduled"},
	},
	{
		tools:    []ToolName{ToolAnalystRatings},
		keywords: []string{"analyst", "recommendation", "upgrade", "downgrade", "rating"},
	},
	{
		tools:    []ToolName{ToolQuoteProfile},
		keywords: []string{"analysis", "overview", "info", "about", "profile"},
	},
}

// Classify maps a query to the tool requests that must be dispatched before
// synthesis. Pure and deterministic: same query plus same watchlist always
// yields the same result, and every emitted symbol is a member of the
// permitted set (the watchlist, or the demo set when the watchlist is empty).
func Classify(q Query, watchlist []string) Classification {
	lower := strings.ToLower(q.Text)
	tokens := tokenize(lower)
	permittedList, permittedSet := permittedSymbols(watchlist)

	var cls Classification

	var rejected []string
	for _, sym := range extractTickers(q.Text, q.FocalTicker) {
		if permittedSet[sym] {
			cls.Tickers = append(cls.Tickers, sym)
		} else {
			rejected = append(rejected, sym)
		}
	}
	if len(rejected) > 0 {
		cls.Notes = append(cls.Notes, fmt.Sprintf(
			"ignored symbols outside the watchlist: %s", strings.Join(rejected, ", ")))
	}

	// No usable symbol mentioned: fall back to the permitted set itself.
	if len(cls.Tickers) == 0 {
		n := len(permittedList)
		if n > MaxCompareTickers {
			n = MaxCompareTickers
		}
		cls.Tickers = append(cls.Tickers, permittedList[:n]...)
	}

	primary := cls.Tickers[0]

	// A comparison phrase over two or more symbols collapses into one
	// compare request; other matched tools still target the primary symbol.
	if len(cls.Tickers) >= 2 && hasAnyKeyword(lower, tokens, compareKeywords) {
		symbols := cls.Tickers
		if len(symbols) > MaxCompareTickers {
			cls.Notes = append(cls.Notes, fmt.Sprintf(
				"comparison limited to %d symbols; dropped: %s",
				MaxCompareTickers, strings.Join(symbols[MaxCompareTickers:], ", ")))
			symbols = symbols[:MaxCompareTickers]
		}
		cls.Requests = append(cls.Requests, ToolRequest{Tool: ToolCompare, Symbols: symbols})
	}

	seen := map[ToolName]bool{}
	for _, entry := range lexicon {
		if !hasAnyKeyword(lower, tokens, entry.keywords) {
			continue
		}
		for _, tool := range entry.tools {
			if seen[tool] {
				continue
			}
			seen[tool] = true
			cls.Requests = append(cls.Requests, buildRequest(tool, primary, lower, tokens))
		}
	}

	// Nothing matched: guarantee at least price/profile context.
	if len(cls.Requests) == 0 {
		cls.Requests = append(cls.Requests, ToolRequest{
			Tool:    ToolQuoteProfile,
			Symbols: []string{primary},
		})
	}

	return cls
}

func buildRequest(tool ToolName, symbol, lower string, tokens []string) ToolRequest {
	req := ToolRequest{Tool: tool, Symbols: []string{symbol}}
	switch tool {
	case ToolHistoricalPrices:
		req.Period = detectPeriod(lower)
	case ToolFinancialStatements:
		req.StatementType, req.Quarterly = detectStatement(lower, tokens)
	}
	return req
}

func extractTickers(text, focal string) []string {
	var out []string
	seen := map[string]bool{}

	add := func(raw string, filterStop bool) {
		sym := dataflows.NormalizeSymbol(raw)
		if sym == "" || seen[sym] {
			return
		}
		if filterStop && stopWords[sym] {
			return
		}
		if dataflows.ValidateSymbol(sym) != nil {
			return
		}
		seen[sym] = true
		out = append(out, sym)
	}

	if focal != "" {
		add(focal, false)
	}
	upper := strings.ToUpper(text)
	for _, re := range cueTickerPatterns {
		for _, match := range re.FindAllStringSubmatch(upper, -1) {
			for _, group := range match[1:] {
				add(group, true)
			}
		}
	}
	for _, match := range bareTickerPattern.FindAllStringSubmatch(text, -1) {
		add(match[1], true)
	}
	lower := strings.ToLower(text)
	type nameHit struct {
		pos    int
		symbol string
	}
	var hits []nameHit
	for _, entry := range companyNames {
		if pos := strings.Index(lower, entry.name); pos >= 0 {
			hits = append(hits, nameHit{pos: pos, symbol: entry.symbol})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	for _, hit := range hits {
		add(hit.symbol, false)
	}
	return out
}

func permittedSymbols(watchlist []string) ([]string, map[string]bool) {
	var list []string
	set := map[string]bool{}
	for _, raw := range watchlist {
		sym := dataflows.NormalizeSymbol(raw)
		if sym == "" || set[sym] {
			continue
		}
		set[sym] = true
		list = append(list, sym)
	}
	if len(list) == 0 {
		for _, sym := range DemoSymbols {
			set[sym] = true
			list = append(list, sym)
		}
	}
	return list, set
}

func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Single-word keywords match on token prefix so plurals still hit; phrases
// match as substrings.
func hasAnyKeyword(lower string, tokens []string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if strings.HasPrefix(tok, kw) {
				return true
			}
		}
	}
	return false
}

func hasToken(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

func detectPeriod(lower string) string {
	switch {
	case strings.Contains(lower, "6 month") || strings.Contains(lower, "6m"):
		return "6mo"
	case strings.Contains(lower, "3 month") || strings.Contains(lower, "3m"):
		return "3mo"
	case strings.Contains(lower, "2 year") || strings.Contains(lower, "2y"):
		return "2y"
	default:
		return "1y"
	}
}

func detectStatement(lower string, tokens []string) (string, bool) {
	statementType := "income_stmt"
	switch {
	case strings.Contains(lower, "balance"):
		statementType = "balance_sheet"
	case strings.Contains(lower, "cash flow") || strings.Contains(lower, "cashflow"):
		statementType = "cashflow"
	}

	quarterly := strings.Contains(lower, "quarterly")
	for _, q := range []string{"q1", "q2", "q3", "q4"} {
		if hasToken(tokens, q) {
			quarterly = true
			break
		}
	}
	return statementType, quarterly
}
