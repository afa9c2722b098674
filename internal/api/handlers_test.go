package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manas15/Financial-Agent/internal/agent"
	"github.com/manas15/Financial-Agent/internal/dataflows"
	"github.com/manas15/Financial-Agent/internal/storage/sqlite"
	"github.com/manas15/Financial-Agent/internal/watchlist"
)

type fakeAgent struct {
	mu      sync.Mutex
	queries []agent.Query
	ex      agent.ChatExchange
}

func (f *fakeAgent) Chat(ctx context.Context, q agent.Query) agent.ChatExchange {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	ex := f.ex
	ex.Query = q.Text
	if ex.SessionID == "" {
		ex.SessionID = q.SessionID
	}
	if ex.Response == "" {
		ex.Response = "stub answer"
	}
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now().UTC()
	}
	return ex
}

func (f *fakeAgent) lastQuery(t *testing.T) agent.Query {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.queries)
	return f.queries[len(f.queries)-1]
}

type fakeMarket struct {
	lastTool   string
	lastSymbol string
	lastOpts   dataflows.ToolOptions
	payload    interface{}
	err        error
}

func (f *fakeMarket) FetchTool(ctx context.Context, tool, symbol string, opts dataflows.ToolOptions) (interface{}, error) {
	f.lastTool = tool
	f.lastSymbol = symbol
	f.lastOpts = opts
	return f.payload, f.err
}

type offlineQuoter struct{}

func (offlineQuoter) QuoteProfile(ctx context.Context, symbol string) (*dataflows.QuoteProfile, error) {
	return nil, errors.New("quotes offline")
}

type testServer struct {
	router http.Handler
	agent  *fakeAgent
	market *fakeMarket
	store  *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fa := &fakeAgent{}
	fm := &fakeMarket{payload: map[string]string{"note": "stub payload"}}
	h := NewHandlers(fa, fm, watchlist.New(store, offlineQuoter{}), store, "1.2.3")
	return &testServer{
		router: NewRouter(RouterConfig{}, h),
		agent:  fa,
		market: fm,
		store:  store,
	}
}

func (ts *testServer) do(t *testing.T, method, path, caller string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if caller != "" {
		req.Header.Set("X-User-ID", caller)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/ai/chat", "u1", map[string]string{
		"message":    "How is AAPL doing?",
		"session_id": "s1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[chatResponse](t, rec)
	require.Equal(t, "stub answer", resp.Response)
	require.Equal(t, "s1", resp.SessionID)

	q := ts.agent.lastQuery(t)
	require.Equal(t, "How is AAPL doing?", q.Text)
	require.Equal(t, "u1", q.CallerID)
	require.Equal(t, "s1", q.SessionID)
}

func TestChatDefaultsCaller(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/ai/chat", "", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "default", ts.agent.lastQuery(t).CallerID)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/ai/chat", "u1", map[string]string{"message": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, ts.agent.queries)
}

func TestChatRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/chat", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/ai/analyze/tsla", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	q := ts.agent.lastQuery(t)
	require.Equal(t, "TSLA", q.FocalTicker)
	require.Equal(t, "summary_TSLA", q.SessionID)
	require.Contains(t, q.Text, "comprehensive analysis of TSLA")
}

func TestAnalyzeRejectsInvalidTicker(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/ai/analyze/WAYTOOLONGSYM", "u1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, ts.agent.queries)
}

func TestCompareEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/ai/compare", "u1", map[string][]string{
		"tickers": {"aapl", "msft"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	q := ts.agent.lastQuery(t)
	require.Equal(t, "comparison_AAPL-MSFT", q.SessionID)
	require.Contains(t, q.Text, "Compare AAPL, MSFT")
}

func TestCompareTickerCountLimits(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/ai/compare", "u1", map[string][]string{
		"tickers": {"AAPL"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/ai/compare", "u1", map[string][]string{
		"tickers": {"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, ts.agent.queries)
}

func TestFinancialDataEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/ai/financial-data/aapl?tool=news", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "news", ts.market.lastTool)
	require.Equal(t, "AAPL", ts.market.lastSymbol)

	body := decodeBody[map[string]interface{}](t, rec)
	require.Equal(t, "AAPL", body["symbol"])
	require.Equal(t, "news", body["tool"])
	require.NotNil(t, body["data"])
}

func TestFinancialDataDefaultsToQuoteProfile(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/ai/financial-data/AAPL", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(agent.ToolQuoteProfile), ts.market.lastTool)
}

func TestFinancialDataUnknownTool(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/ai/financial-data/AAPL?tool=astrology", "u1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, ts.market.lastTool)
}

func TestFinancialDataComparePassesSymbols(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/ai/financial-data/AAPL?tool=compare&symbols=msft,googl", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"MSFT", "GOOGL"}, ts.market.lastOpts.Symbols)
}

func TestFinancialDataFetchFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.market.err = errors.New("provider down")

	rec := ts.do(t, http.MethodGet, "/api/v1/ai/financial-data/AAPL?tool=news", "u1", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWatchlistLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/watchlist", "u1", map[string]string{"symbol": "aapl"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "AAPL", decodeBody[map[string]string](t, rec)["symbol"])

	rec = ts.do(t, http.MethodPost, "/api/v1/watchlist", "u1", map[string]string{"symbol": "AAPL"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/watchlist", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]watchlist.Entry](t, rec)
	require.Len(t, entries, 1)
	require.Equal(t, "AAPL", entries[0].Symbol)

	rec = ts.do(t, http.MethodDelete, "/api/v1/watchlist/AAPL", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/watchlist/AAPL", "u1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/watchlist", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeBody[[]watchlist.Entry](t, rec))
}

func TestWatchlistRejectsInvalidSymbol(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/watchlist", "u1", map[string]string{"symbol": "NOT$VALID"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchlistScopedByCaller(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/watchlist", "u1", map[string]string{"symbol": "TSLA"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/watchlist", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeBody[[]watchlist.Entry](t, rec))
}

func seedSession(t *testing.T, store *sqlite.Store, caller, sessionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.AppendExchange(context.Background(), caller, "AAPL Analysis", sqlite.ExchangeRecord{
			SessionID: sessionID,
			Query:     "question",
			Response:  "answer",
			DataUsed:  true,
		})
		require.NoError(t, err)
	}
}

func TestSessionListAndDetail(t *testing.T) {
	ts := newTestServer(t)
	seedSession(t, ts.store, "u1", "sess-1", 3)

	rec := ts.do(t, http.MethodGet, "/api/v1/ai/sessions", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summaries := decodeBody[[]sessionSummaryResponse](t, rec)
	require.Len(t, summaries, 1)
	require.Equal(t, "sess-1", summaries[0].SessionID)
	require.Equal(t, 3, summaries[0].MessageCount)

	rec = ts.do(t, http.MethodGet, "/api/v1/ai/sessions/sess-1", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[sessionDetailResponse](t, rec)
	require.Equal(t, "AAPL Analysis", detail.Title)
	require.Len(t, detail.Exchanges, 3)
	require.Equal(t, 1, detail.Exchanges[0].Seq)
}

func TestSessionHiddenFromOtherCallers(t *testing.T) {
	ts := newTestServer(t)
	seedSession(t, ts.store, "u1", "sess-1", 1)

	rec := ts.do(t, http.MethodGet, "/api/v1/ai/sessions/sess-1", "u2", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/ai/sessions/sess-1", "u2", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/ai/sessions", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeBody[[]sessionSummaryResponse](t, rec))
}

func TestSessionDelete(t *testing.T) {
	ts := newTestServer(t)
	seedSession(t, ts.store, "u1", "sess-1", 2)

	rec := ts.do(t, http.MethodDelete, "/api/v1/ai/sessions/sess-1", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/ai/sessions/sess-1", "u1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionGetMissing(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/ai/sessions/never-existed", "u1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "1.2.3", body["version"])
}
