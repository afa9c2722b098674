package agent

import (
	"fmt"
	"strings"
	"time"
)

const apologyText = "I'm sorry, I wasn't able to complete that request. Please try again in a moment."

// systemPreamble is the fixed instruction block sent with every synthesis
// call: analyst persona, the watchlist restriction, and the current date so
// the model does not reason from its training cutoff.
func systemPreamble(now time.Time) string {
	quarter := (int(now.Month())-1)/3 + 1
	return fmt.Sprintf(`You are an expert financial analyst assistant for a stock watchlist application.
You may only discuss the stocks on the user's watchlist; every answer must be grounded in the market data provided below.
When a data block is marked unavailable, acknowledge the gap instead of guessing.
Today's date is %s (Q%d %d). Use it when reasoning about earnings dates, quarters, and recency.
Keep answers concise and factual, and remind the user that this is not financial advice when giving an outlook.`,
		now.Format("January 2, 2006"), quarter, now.Year())
}

func buildUserPrompt(contextText string, notes []string, queryText string) string {
	var sb strings.Builder
	if contextText != "" {
		sb.WriteString("Market data context:\n\n")
		sb.WriteString(contextText)
		sb.WriteString("\n\n")
	}
	for _, note := range notes {
		fmt.Fprintf(&sb, "Note: %s\n", note)
	}
	if len(notes) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(queryText)
	return sb.String()
}
