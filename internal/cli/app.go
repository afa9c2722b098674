package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/manas15/Financial-Agent/internal/agent"
	"github.com/manas15/Financial-Agent/internal/config"
	"github.com/manas15/Financial-Agent/internal/dataflows"
	"github.com/manas15/Financial-Agent/internal/llm"
	"github.com/manas15/Financial-Agent/internal/storage/sqlite"
	"github.com/manas15/Financial-Agent/internal/watchlist"
)

// app bundles the wired collaborators both the server and the terminal chat
// run on.
type app struct {
	Store     *sqlite.Store
	Market    *dataflows.Service
	Watchlist *watchlist.Service
	Agent     *agent.Agent
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	market := dataflows.NewService(dataflows.Config{
		FinnhubAPIKey:    cfg.FinnhubAPIKey,
		FinnhubBaseURL:   cfg.FinnhubBaseURL,
		CacheDir:         filepath.Join(cfg.DataDir, "cache"),
		CacheEnabled:     cfg.CacheEnabled,
		FetchArticleBody: cfg.FetchArticleBody,
	})

	model, err := llm.NewClient(ctx, llm.Config{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey(),
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	chatAgent := agent.New(agent.Config{
		MaxContextChars:    cfg.ContextMaxChars,
		ToolTimeout:        cfg.ToolTimeout,
		SynthesisTimeout:   cfg.SynthesisTimeout,
		MaxConcurrentTools: cfg.MaxConcurrentTools,
	}, market, model, sessionStore{store}, store)

	return &app{
		Store:     store,
		Market:    market,
		Watchlist: watchlist.New(store, market),
		Agent:     chatAgent,
	}, nil
}

func (a *app) Close() error {
	return a.Store.Close()
}

// sessionStore adapts the sqlite store to the agent's session interface.
type sessionStore struct {
	store *sqlite.Store
}

func (s sessionStore) Append(ctx context.Context, callerID, title string, ex agent.ChatExchange) error {
	return s.store.AppendExchange(ctx, callerID, title, sqlite.ExchangeRecord{
		SessionID: ex.SessionID,
		Query:     ex.Query,
		Response:  ex.Response,
		DataUsed:  ex.DataUsed,
		ErrorKind: ex.ErrorKind,
	})
}

func (s sessionStore) Recent(ctx context.Context, sessionID string, limit int) ([]agent.ChatExchange, error) {
	recs, err := s.store.RecentExchanges(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]agent.ChatExchange, 0, len(recs))
	for _, r := range recs {
		out = append(out, agent.ChatExchange{
			SessionID: r.SessionID,
			Query:     r.Query,
			Response:  r.Response,
			DataUsed:  r.DataUsed,
			ErrorKind: r.ErrorKind,
			Timestamp: r.CreatedAt,
		})
	}
	return out, nil
}
