package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/manas15/Financial-Agent/internal/agent"
	"github.com/manas15/Financial-Agent/internal/dataflows"
	"github.com/manas15/Financial-Agent/internal/storage/sqlite"
	"github.com/manas15/Financial-Agent/internal/watchlist"
)

// ChatAgent runs one research query through the full pipeline.
type ChatAgent interface {
	Chat(ctx context.Context, q agent.Query) agent.ChatExchange
}

// MarketFetcher exposes raw tool fetches for the financial-data endpoint.
type MarketFetcher interface {
	FetchTool(ctx context.Context, tool, symbol string, opts dataflows.ToolOptions) (interface{}, error)
}

// WatchlistService manages the caller's tracked symbols.
type WatchlistService interface {
	Add(ctx context.Context, userID, symbol string) (string, error)
	Remove(ctx context.Context, userID, symbol string) error
	List(ctx context.Context, userID string) ([]watchlist.Entry, error)
}

// SessionStore reads and deletes persisted chat sessions.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (*sqlite.SessionRecord, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]sqlite.SessionSummary, error)
	ListExchanges(ctx context.Context, sessionID string) ([]sqlite.ExchangeRecord, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Handlers bundles the dependencies the HTTP endpoints need.
type Handlers struct {
	agent     ChatAgent
	market    MarketFetcher
	watchlist WatchlistService
	store     SessionStore
	version   string
}

func NewHandlers(chatAgent ChatAgent, market MarketFetcher, wl WatchlistService, store SessionStore, version string) *Handlers {
	return &Handlers{
		agent:     chatAgent,
		market:    market,
		watchlist: wl,
		store:     store,
		version:   version,
	}
}

const analyzeQueryTemplate = "Provide a comprehensive analysis of %s stock including current performance, financial health, growth prospects, risks, and investment recommendation."

var fetchableTools = map[agent.ToolName]bool{
	agent.ToolQuoteProfile:        true,
	agent.ToolHistoricalPrices:    true,
	agent.ToolFinancialStatements: true,
	agent.ToolNews:                true,
	agent.ToolEarningsEvents:      true,
	agent.ToolAnalystRatings:      true,
	agent.ToolCompare:             true,
}

type chatRequest struct {
	Message   string `json:"message"`
	Ticker    string `json:"ticker,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string    `json:"response"`
	SessionID string    `json:"session_id"`
	DataUsed  bool      `json:"data_used"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func toChatResponse(ex agent.ChatExchange) chatResponse {
	return chatResponse{
		Response:  ex.Response,
		SessionID: ex.SessionID,
		DataUsed:  ex.DataUsed,
		Error:     ex.ErrorKind,
		Timestamp: ex.Timestamp,
	}
}

// Chat handles POST /api/v1/ai/chat.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	ex := h.agent.Chat(r.Context(), agent.Query{
		Text:        req.Message,
		FocalTicker: req.Ticker,
		CallerID:    CallerID(r.Context()),
		SessionID:   req.SessionID,
	})
	respondJSON(w, http.StatusOK, toChatResponse(ex))
}

// Analyze handles POST /api/v1/ai/analyze/{ticker} with a canned deep-dive query.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	symbol := dataflows.NormalizeSymbol(chi.URLParam(r, "ticker"))
	if err := dataflows.ValidateSymbol(symbol); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ex := h.agent.Chat(r.Context(), agent.Query{
		Text:        fmt.Sprintf(analyzeQueryTemplate, symbol),
		FocalTicker: symbol,
		CallerID:    CallerID(r.Context()),
		SessionID:   "summary_" + symbol,
	})
	respondJSON(w, http.StatusOK, toChatResponse(ex))
}

type compareRequest struct {
	Tickers []string `json:"tickers"`
}

// Compare handles POST /api/v1/ai/compare.
func (h *Handlers) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	symbols := make([]string, 0, len(req.Tickers))
	for _, t := range req.Tickers {
		s := dataflows.NormalizeSymbol(t)
		if err := dataflows.ValidateSymbol(s); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		symbols = append(symbols, s)
	}
	if len(symbols) < 2 {
		respondError(w, http.StatusBadRequest, "at least two tickers are required")
		return
	}
	if len(symbols) > agent.MaxCompareTickers {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d tickers are supported", agent.MaxCompareTickers))
		return
	}

	query := fmt.Sprintf("Compare %s across valuation, growth, profitability, and recent performance, and conclude which looks strongest.",
		strings.Join(symbols, ", "))
	ex := h.agent.Chat(r.Context(), agent.Query{
		Text:      query,
		CallerID:  CallerID(r.Context()),
		SessionID: "comparison_" + strings.Join(symbols, "-"),
	})
	respondJSON(w, http.StatusOK, toChatResponse(ex))
}

// FinancialData handles GET /api/v1/ai/financial-data/{ticker}, a raw
// passthrough to one data tool without LLM synthesis.
func (h *Handlers) FinancialData(w http.ResponseWriter, r *http.Request) {
	symbol := dataflows.NormalizeSymbol(chi.URLParam(r, "ticker"))
	if err := dataflows.ValidateSymbol(symbol); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tool := r.URL.Query().Get("tool")
	if tool == "" {
		tool = string(agent.ToolQuoteProfile)
	}
	if !fetchableTools[agent.ToolName(tool)] {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown tool: %s", tool))
		return
	}

	opts := dataflows.ToolOptions{
		Period:        r.URL.Query().Get("period"),
		StatementType: r.URL.Query().Get("statement_type"),
		Quarterly:     r.URL.Query().Get("quarterly") == "true",
	}
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			s := dataflows.NormalizeSymbol(t)
			if err := dataflows.ValidateSymbol(s); err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			opts.Symbols = append(opts.Symbols, s)
		}
	}

	payload, err := h.market.FetchTool(r.Context(), tool, symbol, opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"tool":   tool,
		"data":   payload,
	})
}

type sessionSummaryResponse struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListSessions handles GET /api/v1/ai/sessions.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.ListSessions(r.Context(), CallerID(r.Context()), 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	out := make([]sessionSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, sessionSummaryResponse{
			SessionID:    s.ID,
			Title:        s.Title,
			Preview:      s.Preview,
			MessageCount: s.MessageCount,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type exchangeResponse struct {
	Seq       int       `json:"seq"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	DataUsed  bool      `json:"data_used"`
	ErrorKind string    `json:"error_kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionDetailResponse struct {
	SessionID string             `json:"session_id"`
	Title     string             `json:"title"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Exchanges []exchangeResponse `json:"exchanges"`
}

// ownedSession loads a session and hides other callers' sessions as missing.
func (h *Handlers) ownedSession(ctx context.Context, sessionID string) (*sqlite.SessionRecord, error) {
	rec, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.UserID != CallerID(ctx) {
		return nil, nil
	}
	return rec, nil
}

// GetSession handles GET /api/v1/ai/sessions/{sessionID}.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rec, err := h.ownedSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	records, err := h.store.ListExchanges(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	detail := sessionDetailResponse{
		SessionID: rec.ID,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Exchanges: make([]exchangeResponse, 0, len(records)),
	}
	for _, e := range records {
		detail.Exchanges = append(detail.Exchanges, exchangeResponse{
			Seq:       e.Seq,
			Query:     e.Query,
			Response:  e.Response,
			DataUsed:  e.DataUsed,
			ErrorKind: e.ErrorKind,
			CreatedAt: e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, detail)
}

// DeleteSession handles DELETE /api/v1/ai/sessions/{sessionID}.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rec, err := h.ownedSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "session_id": sessionID})
}

type watchlistAddRequest struct {
	Symbol string `json:"symbol"`
}

// WatchlistList handles GET /api/v1/watchlist.
func (h *Handlers) WatchlistList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.watchlist.List(r.Context(), CallerID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list watchlist")
		return
	}
	if entries == nil {
		entries = []watchlist.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// WatchlistAdd handles POST /api/v1/watchlist.
func (h *Handlers) WatchlistAdd(w http.ResponseWriter, r *http.Request) {
	var req watchlistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	symbol, err := h.watchlist.Add(r.Context(), CallerID(r.Context()), req.Symbol)
	if err != nil {
		switch {
		case errors.Is(err, watchlist.ErrInvalidSymbol):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, sqlite.ErrDuplicate):
			respondError(w, http.StatusConflict, "symbol already in watchlist")
		default:
			respondError(w, http.StatusInternalServerError, "failed to add symbol")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"symbol": symbol, "status": "added"})
}

// WatchlistRemove handles DELETE /api/v1/watchlist/{symbol}.
func (h *Handlers) WatchlistRemove(w http.ResponseWriter, r *http.Request) {
	symbol := dataflows.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if err := h.watchlist.Remove(r.Context(), CallerID(r.Context()), symbol); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			respondError(w, http.StatusNotFound, "symbol not in watchlist")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to remove symbol")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "status": "removed"})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}
