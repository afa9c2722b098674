package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/manas15/Financial-Agent/internal/dataflows"
)

// recentBarLimit bounds how many daily bars of a historical payload get
// rendered; a year of bars would crowd everything else out of the budget.
const recentBarLimit = 10

type contextBlock struct {
	label string
	text  string
}

// Assemble merges tool results and a trailing history excerpt into one
// bounded textual context. Block order: quote_profile first, then remaining
// results in classified order, then history. When the budget would be
// exceeded, whole blocks are dropped from the end and their labels recorded;
// a block is never cut midway. Pure function: same inputs, same bytes.
func Assemble(results []ToolResult, history []ChatExchange, maxChars int) AssembledContext {
	blocks := make([]contextBlock, 0, len(results)+1)
	for _, res := range results {
		if res.Tool == ToolQuoteProfile {
			blocks = append(blocks, renderResult(res))
		}
	}
	for _, res := range results {
		if res.Tool != ToolQuoteProfile {
			blocks = append(blocks, renderResult(res))
		}
	}
	if len(history) > 0 {
		blocks = append(blocks, renderHistory(history))
	}

	out := AssembledContext{}
	for _, res := range results {
		if res.Err == nil {
			out.DataUsed = true
			break
		}
	}

	var sb strings.Builder
	total := 0
	for i, b := range blocks {
		cost := len(b.text)
		if i > 0 {
			cost += 2
		}
		if maxChars > 0 && total+cost > maxChars {
			for _, dropped := range blocks[i:] {
				out.Dropped = append(out.Dropped, dropped.label)
			}
			break
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(b.text)
		total += cost
	}
	out.Text = sb.String()
	return out
}

func renderResult(res ToolResult) contextBlock {
	label := fmt.Sprintf("%s %s", res.Tool, res.Symbol)
	if res.Err != nil {
		return contextBlock{
			label: label,
			text:  fmt.Sprintf("### %s\n[data unavailable: %s]", label, failureReason(res.Err)),
		}
	}

	body, err := json.Marshal(renderView(res.Payload))
	if err != nil {
		return contextBlock{
			label: label,
			text:  fmt.Sprintf("### %s\n[data unavailable: unserializable payload]", label),
		}
	}
	return contextBlock{
		label: label,
		text:  fmt.Sprintf("### %s\n%s", label, body),
	}
}

// renderView swaps bulky payloads for compact views before serialization.
func renderView(payload any) any {
	hist, ok := payload.(*dataflows.HistoricalPrices)
	if !ok || hist == nil {
		return payload
	}

	recent := hist.Bars
	if len(recent) > recentBarLimit {
		recent = recent[len(recent)-recentBarLimit:]
	}
	return struct {
		Symbol        string               `json:"symbol"`
		Period        string               `json:"period"`
		PeriodStart   decimal.Decimal      `json:"period_start_close"`
		PeriodEnd     decimal.Decimal      `json:"period_end_close"`
		ChangePercent decimal.Decimal      `json:"period_change_percent"`
		BarCount      int                  `json:"bar_count"`
		RecentBars    []dataflows.PriceBar `json:"recent_bars"`
	}{
		Symbol:        hist.Symbol,
		Period:        hist.Period,
		PeriodStart:   hist.PeriodStart,
		PeriodEnd:     hist.PeriodEnd,
		ChangePercent: hist.ChangePercent,
		BarCount:      len(hist.Bars),
		RecentBars:    recent,
	}
}

func renderHistory(history []ChatExchange) contextBlock {
	var sb strings.Builder
	sb.WriteString("### conversation_history")
	for _, ex := range history {
		fmt.Fprintf(&sb, "\nUser: %s\nAssistant: %s", ex.Query, ex.Response)
	}
	return contextBlock{label: "conversation_history", text: sb.String()}
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
