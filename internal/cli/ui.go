package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/manas15/Financial-Agent/internal/watchlist"
)

// UI styles
var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true).
			MarginBottom(1)

	answerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(1, 2).
			Width(80)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	symbolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// displayWelcomeBanner shows the welcome banner.
func displayWelcomeBanner() {
	banner := `
╔══════════════════════════════════════════════════════════════╗
║                  📈 Financial Agent v` + appVersion + `                     ║
║           Watchlist-grounded stock research assistant         ║
╚══════════════════════════════════════════════════════════════╝`

	fmt.Println(bannerStyle.Render(banner))
	fmt.Println(taglineStyle.Render("Ask about quotes, performance, financials, news, earnings, and analyst views."))
	fmt.Println("💡 Commands: 'watchlist' to list symbols, 'add <SYM>' / 'remove <SYM>' to edit, 'exit' to quit.")
	fmt.Println()
}

// displayWatchlist prints the caller's tracked symbols with live quotes.
func displayWatchlist(entries []watchlist.Entry) {
	if len(entries) == 0 {
		fmt.Println(warnStyle.Render("⚠️  Watchlist is empty. Queries fall back to the demo symbols (AAPL, MSFT, GOOGL, AMZN, TSLA)."))
		return
	}

	fmt.Println(infoStyle.Render("👀 Watchlist:"))
	for _, e := range entries {
		line := fmt.Sprintf("  %s", symbolStyle.Render(fmt.Sprintf("%-6s", e.Symbol)))
		if e.Name != "" {
			line += fmt.Sprintf(" %-28s", truncateString(e.Name, 28))
		}
		if e.Price != nil {
			line += fmt.Sprintf(" $%s", e.Price.StringFixed(2))
		}
		if e.ChangePercent != nil {
			pct := e.ChangePercent.StringFixed(2) + "%"
			if e.ChangePercent.IsNegative() {
				line += " " + downStyle.Render(pct)
			} else {
				line += " " + upStyle.Render("+"+pct)
			}
		}
		fmt.Println(line)
	}
}

// displayAnswer renders one assistant reply with its grounding footer.
func displayAnswer(response string, dataUsed bool, errorKind string) {
	fmt.Println(answerStyle.Render(response))

	switch {
	case errorKind != "":
		fmt.Println(errorStyle.Render("❌ " + errorKind))
	case dataUsed:
		fmt.Println(metaStyle.Render("📊 grounded in live market data"))
	default:
		fmt.Println(warnStyle.Render("⚠️  answered without fresh market data"))
	}
	fmt.Println()
}

func displayError(err error) {
	fmt.Println(errorStyle.Render("❌ Error: " + err.Error()))
}

func displaySuccess(message string) {
	fmt.Println(upStyle.Render("✅ " + message))
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func clearScreen() {
	fmt.Print("\033[2J\033[H")
}
