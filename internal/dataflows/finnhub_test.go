package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortCtx bounds failure-path tests so retry backoff cannot stall them.
func shortCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestCompanyNews(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"symbol": r.URL.Query().Get("symbol"),
			"token":  r.URL.Query().Get("token"),
		}
		assert.Equal(t, "/company-news", r.URL.Path)
		w.Write([]byte(`[
			{"datetime": 1755000000, "headline": "Apple beats &amp; raises", "source": "Reuters", "summary": "<p>Strong iPhone sales</p>", "url": "https://example.com/1"},
			{"datetime": 1754900000, "headline": "", "source": "skipme", "summary": "no headline", "url": "https://example.com/skip"},
			{"datetime": 1754800000, "headline": "Supplier update", "source": "WSJ", "summary": "", "url": "https://example.com/2"},
			{"datetime": 1754700000, "headline": "Dropped by limit", "source": "FT", "summary": "", "url": "https://example.com/3"}
		]`))
	}))
	defer srv.Close()

	fc := NewFinnhubClient("test-key", srv.URL)
	articles, err := fc.CompanyNews(context.Background(), "aapl", time.Now().AddDate(0, -1, 0), time.Now(), 2)

	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "AAPL", gotQuery["symbol"])
	assert.Equal(t, "test-key", gotQuery["token"])
	assert.Equal(t, "Apple beats & raises", articles[0].Title)
	assert.Equal(t, "Strong iPhone sales", articles[0].Summary)
	assert.Equal(t, "Supplier update", articles[1].Title)
}

func TestCompanyNewsRequiresAPIKey(t *testing.T) {
	fc := NewFinnhubClient("", "http://unused.invalid")
	_, err := fc.CompanyNews(context.Background(), "AAPL", time.Now(), time.Now(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestCompanyNewsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	fc := NewFinnhubClient("bad-key", srv.URL)
	_, err := fc.CompanyNews(shortCtx(t), "AAPL", time.Now(), time.Now(), 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error 401")
}

func TestEarningsCalendar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar/earnings", r.URL.Path)
		assert.Equal(t, "TSLA", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"earningsCalendar": [
			{"date": "2025-10-22", "epsActual": 0, "epsEstimate": 0.74, "hour": "amc", "quarter": 3, "revenueEstimate": 26500000000, "symbol": "TSLA", "year": 2025}
		]}`))
	}))
	defer srv.Close()

	fc := NewFinnhubClient("test-key", srv.URL)
	events, err := fc.EarningsCalendar(context.Background(), "TSLA", time.Now(), time.Now().AddDate(0, 3, 0))

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-10-22", events[0].Date)
	assert.Equal(t, 3, events[0].Quarter)
	assert.Equal(t, 2025, events[0].Year)
	assert.Equal(t, "0.74", events[0].EPSEstimate.String())
}

func TestRecommendations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/recommendation", r.URL.Path)
		w.Write([]byte(`[
			{"buy": 24, "hold": 7, "period": "2025-08-01", "sell": 1, "strongBuy": 13, "strongSell": 0, "symbol": "AAPL"},
			{"buy": 22, "hold": 8, "period": "2025-07-01", "sell": 1, "strongBuy": 12, "strongSell": 0, "symbol": "AAPL"},
			{"buy": 21, "hold": 9, "period": "2025-06-01", "sell": 2, "strongBuy": 12, "strongSell": 1, "symbol": "AAPL"}
		]`))
	}))
	defer srv.Close()

	fc := NewFinnhubClient("test-key", srv.URL)
	ratings, err := fc.Recommendations(context.Background(), "AAPL", 2)

	require.NoError(t, err)
	assert.Equal(t, "AAPL", ratings.Symbol)
	require.Len(t, ratings.Periods, 2)
	assert.Equal(t, "2025-08-01", ratings.Periods[0].Period)
	assert.Equal(t, 13, ratings.Periods[0].StrongBuy)
}

func TestFinancialsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/financials-reported", r.URL.Path)
		assert.Equal(t, "quarterly", r.URL.Query().Get("freq"))
		w.Write([]byte(`{"symbol": "AAPL", "data": [
			{"year": 2025, "quarter": 2, "form": "10-Q", "endDate": "2025-06-28", "report": {
				"bs": [{"concept": "us-gaap_Assets", "label": "Total assets", "unit": "usd", "value": 364980000000}],
				"ic": [{"concept": "us-gaap_Revenues", "label": "Net sales", "unit": "usd", "value": 85777000000}],
				"cf": [{"concept": "us-gaap_NetCash", "label": "Operating cash flow", "unit": "usd", "value": 28858000000}]
			}}
		]}`))
	}))
	defer srv.Close()

	fc := NewFinnhubClient("test-key", srv.URL)

	stmt, err := fc.FinancialsReported(context.Background(), "AAPL", "balance_sheet", true)
	require.NoError(t, err)
	assert.Equal(t, "balance_sheet", stmt.StatementType)
	assert.True(t, stmt.Quarterly)
	assert.Equal(t, "10-Q", stmt.Form)
	require.Len(t, stmt.Lines, 1)
	assert.Equal(t, "Total assets", stmt.Lines[0].Label)

	stmt, err = fc.FinancialsReported(context.Background(), "AAPL", "unknown-type", true)
	require.NoError(t, err)
	assert.Equal(t, "income_stmt", stmt.StatementType)
	assert.Equal(t, "Net sales", stmt.Lines[0].Label)
}

func TestFinancialsReportedEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "ZZZZ", "data": []}`))
	}))
	defer srv.Close()

	fc := NewFinnhubClient("test-key", srv.URL)
	_, err := fc.FinancialsReported(shortCtx(t), "ZZZZ", "income_stmt", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reported financials")
}
