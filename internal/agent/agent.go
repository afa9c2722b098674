// Package agent implements the query router at the heart of the service:
// it classifies a free-text question into market-data tool requests,
// dispatches them concurrently, assembles the results into one bounded
// context, hands that to the language model, and records the exchange.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/manas15/Financial-Agent/internal/dataflows"
	"github.com/manas15/Financial-Agent/internal/llm"
)

// historyExcerpt is how many past exchanges feed the assembled context.
const historyExcerpt = 3

const (
	errKindInternal = "internal"
	errKindCanceled = "canceled"
)

// Config bounds one query's resource use.
type Config struct {
	MaxContextChars    int
	ToolTimeout        time.Duration
	SynthesisTimeout   time.Duration
	MaxConcurrentTools int
}

// Agent coordinates the pipeline. It holds no per-query state; each Chat
// call works on its own data and may run concurrently with others.
type Agent struct {
	market    MarketData
	llm       LLM
	store     SessionStore
	watchlist WatchlistSource

	maxChars         int
	toolTimeout      time.Duration
	synthesisTimeout time.Duration
	maxConcurrent    int
	now              func() time.Time
}

func New(cfg Config, market MarketData, model LLM, store SessionStore, watchlist WatchlistSource) *Agent {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 24000
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 10 * time.Second
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 45 * time.Second
	}
	if cfg.MaxConcurrentTools <= 0 {
		cfg.MaxConcurrentTools = 4
	}
	return &Agent{
		market:           market,
		llm:              model,
		store:            store,
		watchlist:        watchlist,
		maxChars:         cfg.MaxContextChars,
		toolTimeout:      cfg.ToolTimeout,
		synthesisTimeout: cfg.SynthesisTimeout,
		maxConcurrent:    cfg.MaxConcurrentTools,
		now:              time.Now,
	}
}

// Chat runs one query through the full pipeline and always returns a
// well-formed exchange, failures included. The exchange is appended to the
// session transcript exactly once, unless the caller has already gone away,
// in which case the result is discarded unrecorded.
func (a *Agent) Chat(ctx context.Context, q Query) ChatExchange {
	// The pipeline outlives a caller disconnect: in-flight tool calls run
	// to completion on the detached context.
	pipeCtx := context.WithoutCancel(ctx)

	if q.CallerID == "" {
		q.CallerID = "default"
	}
	if q.SessionID == "" {
		q.SessionID = uuid.NewString()
	}

	ex := ChatExchange{
		SessionID: q.SessionID,
		Query:     q.Text,
		Timestamp: a.now().UTC(),
	}

	logger := log.Ctx(ctx).With().
		Str("session_id", q.SessionID).
		Str("caller_id", q.CallerID).
		Logger()

	if strings.TrimSpace(q.Text) == "" {
		ex.Response = apologyText
		ex.ErrorKind = string(llm.FailMalformed)
		return ex
	}

	watchSymbols, err := a.watchlist.WatchlistSymbols(pipeCtx, q.CallerID)
	if err != nil {
		logger.Error().Err(err).Msg("watchlist lookup failed")
		ex.Response = apologyText
		ex.ErrorKind = errKindInternal
		a.record(pipeCtx, ctx, q, ex, &logger)
		return ex
	}

	cls := Classify(q, watchSymbols)
	logger.Debug().
		Strs("tickers", cls.Tickers).
		Int("requests", len(cls.Requests)).
		Msg("query classified")

	results := a.dispatch(pipeCtx, cls.Requests)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	logger.Debug().
		Int("results", len(results)).
		Int("failed", failed).
		Msg("tools dispatched")

	history, err := a.store.Recent(pipeCtx, q.SessionID, historyExcerpt)
	if err != nil {
		logger.Warn().Err(err).Msg("history read failed, continuing without it")
		history = nil
	}

	assembled := Assemble(results, history, a.maxChars)
	if len(assembled.Dropped) > 0 {
		logger.Debug().
			Strs("dropped", assembled.Dropped).
			Msg("context truncated")
	}

	// Caller already gone: skip the model call, discard the result.
	if ctx.Err() != nil {
		logger.Info().Msg("caller disconnected, result discarded")
		ex.ErrorKind = errKindCanceled
		return ex
	}

	synthCtx, cancel := context.WithTimeout(pipeCtx, a.synthesisTimeout)
	text, err := a.llm.Generate(synthCtx,
		systemPreamble(a.now()),
		buildUserPrompt(assembled.Text, cls.Notes, q.Text))
	cancel()
	if err != nil {
		ex.Response = apologyText
		ex.ErrorKind = failureKind(synthCtx, err)
		logger.Warn().Err(err).Str("kind", ex.ErrorKind).Msg("synthesis failed")
	} else {
		ex.Response = text
		ex.DataUsed = assembled.DataUsed
		logger.Debug().Bool("data_used", ex.DataUsed).Msg("response synthesized")
	}

	a.record(pipeCtx, ctx, q, ex, &logger)
	return ex
}

// record appends the exchange unless the caller disconnected mid-pipeline;
// a discarded result must leave no transcript entry.
func (a *Agent) record(pipeCtx, callerCtx context.Context, q Query, ex ChatExchange, logger *zerolog.Logger) {
	if callerCtx.Err() != nil {
		logger.Info().Msg("caller disconnected, result discarded")
		return
	}
	if err := a.store.Append(pipeCtx, q.CallerID, deriveTitle(q), ex); err != nil {
		logger.Error().Err(err).Msg("transcript append failed")
		return
	}
	logger.Debug().Msg("exchange recorded")
}

func deriveTitle(q Query) string {
	if sym := dataflows.NormalizeSymbol(q.FocalTicker); sym != "" {
		return sym + " Analysis"
	}
	return "Watchlist Discussion"
}

func failureKind(ctx context.Context, err error) string {
	var lerr *llm.Error
	if errors.As(err, &lerr) {
		return string(lerr.Kind)
	}
	return string(llm.Classify(ctx, err))
}
