package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"github.com/manas15/Financial-Agent/internal/agent"
	"github.com/manas15/Financial-Agent/internal/config"
)

type chatOptions struct {
	User    string
	Ticker  string
	Session string
}

// newChatCmd creates the chat command.
func newChatCmd() *cobra.Command {
	opts := chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the research agent in the terminal",
		Long: `Start an interactive research conversation. Answers are grounded in the
watchlist of the given user; an empty watchlist falls back to the demo
symbols.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Ticker, "ticker", "", "Focus ticker for the conversation")
	cmd.Flags().StringVar(&opts.User, "user", "default", "User whose watchlist scopes answers")
	cmd.Flags().StringVar(&opts.Session, "session", "", "Resume an existing session ID")
	return cmd
}

func runChat(cmd *cobra.Command, opts chatOptions) error {
	cfg := config.Load()
	configureChatLogging(cfg.Debug)

	app, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()

	displayWelcomeBanner()
	if entries, err := app.Watchlist.List(ctx, opts.User); err != nil {
		displayError(err)
	} else {
		displayWatchlist(entries)
	}
	fmt.Println()

	sessionID := opts.Session
	for {
		var line string
		if err := survey.AskOne(&survey.Input{Message: "You:"}, &line); err != nil {
			if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
				fmt.Println("👋 Goodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch strings.ToLower(fields[0]) {
		case "exit", "quit", "q":
			fmt.Println("👋 Goodbye!")
			return nil

		case "help", "?":
			fmt.Println("💡 Ask anything about your watchlist, e.g. \"TSLA earnings\" or \"compare AAPL vs MSFT\".")
			fmt.Println("   watchlist        - show tracked symbols with quotes")
			fmt.Println("   add <SYMBOL>     - track a symbol")
			fmt.Println("   remove <SYMBOL>  - stop tracking a symbol")
			fmt.Println("   clear            - clear the screen")
			fmt.Println("   exit             - quit")
			continue

		case "watchlist", "wl":
			entries, err := app.Watchlist.List(ctx, opts.User)
			if err != nil {
				displayError(err)
				continue
			}
			displayWatchlist(entries)
			continue

		case "add":
			if len(fields) < 2 {
				displayError(errors.New("usage: add <SYMBOL>"))
				continue
			}
			sym, err := app.Watchlist.Add(ctx, opts.User, fields[1])
			if err != nil {
				displayError(err)
				continue
			}
			displaySuccess(sym + " added to watchlist")
			continue

		case "remove", "rm":
			if len(fields) < 2 {
				displayError(errors.New("usage: remove <SYMBOL>"))
				continue
			}
			if err := app.Watchlist.Remove(ctx, opts.User, fields[1]); err != nil {
				displayError(err)
				continue
			}
			displaySuccess(strings.ToUpper(fields[1]) + " removed from watchlist")
			continue

		case "clear", "cls":
			clearScreen()
			continue
		}

		fmt.Println(metaStyle.Render("🔎 researching..."))
		ex := app.Agent.Chat(ctx, agent.Query{
			Text:        line,
			FocalTicker: opts.Ticker,
			CallerID:    opts.User,
			SessionID:   sessionID,
		})
		sessionID = ex.SessionID
		displayAnswer(ex.Response, ex.DataUsed, ex.ErrorKind)
	}
}
