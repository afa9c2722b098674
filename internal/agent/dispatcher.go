package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// dispatch fans the classified requests out to the market-data collaborator,
// at most maxConcurrent in flight, each bounded by toolTimeout. Results come
// back in request order; a failed call marks its own slot and never disturbs
// siblings. No retries here: those live inside the collaborator.
func (a *Agent) dispatch(ctx context.Context, requests []ToolRequest) []ToolResult {
	results := make([]ToolResult, len(requests))
	sem := make(chan struct{}, a.maxConcurrent)
	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)
		go func(i int, req ToolRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			callCtx, cancel := context.WithTimeout(ctx, a.toolTimeout)
			defer cancel()

			res := ToolResult{
				Tool:   req.Tool,
				Symbol: joinSymbols(req.Symbols),
			}
			payload, err := a.callTool(callCtx, req)
			res.FetchedAt = time.Now().UTC()
			if err != nil {
				res.Err = err
				log.Ctx(ctx).Warn().Err(err).
					Str("tool", string(req.Tool)).
					Str("symbol", res.Symbol).
					Msg("tool call failed")
			} else {
				res.Payload = payload
			}
			results[i] = res
		}(i, req)
	}

	wg.Wait()
	return results
}

func (a *Agent) callTool(ctx context.Context, req ToolRequest) (any, error) {
	switch req.Tool {
	case ToolQuoteProfile:
		return a.market.QuoteProfile(ctx, req.Primary())
	case ToolHistoricalPrices:
		return a.market.HistoricalPrices(ctx, req.Primary(), req.Period)
	case ToolFinancialStatements:
		return a.market.FinancialStatements(ctx, req.Primary(), req.StatementType, req.Quarterly)
	case ToolNews:
		return a.market.News(ctx, req.Primary())
	case ToolEarningsEvents:
		return a.market.EarningsEvents(ctx, req.Primary())
	case ToolAnalystRatings:
		return a.market.AnalystRatings(ctx, req.Primary())
	case ToolCompare:
		return a.market.Compare(ctx, req.Symbols)
	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Tool)
	}
}
