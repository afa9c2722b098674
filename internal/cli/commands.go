// Package cli wires the commands of the financial-agent binary.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/manas15/Financial-Agent/internal/config"
)

const appVersion = "0.1.0"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "financial-agent",
		Short: "Financial Agent - watchlist-grounded stock research",
		Long: `Financial Agent answers stock research questions grounded in live market
data. Every answer is scoped to the caller's watchlist and synthesized by a
language model from quotes, history, financials, news, and analyst data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: start the terminal chat.
			return runChat(cmd, chatOptions{User: "default"})
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Financial Agent v" + appVersion)
			fmt.Println("Watchlist-grounded stock research, powered by Large Language Models")
		},
	}
}

// newConfigCmd creates the config command.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(config.Load())
		},
	})

	return configCmd
}

// showConfig displays the effective configuration.
func showConfig(cfg *config.Config) {
	fmt.Println("📋 Financial Agent Configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("HTTP Address:         %s\n", cfg.HTTPAddr)
	fmt.Printf("CORS Origins:         %s\n", cfg.CORSAllowedOrigins)
	fmt.Printf("Data Directory:       %s\n", cfg.DataDir)
	fmt.Printf("Database Path:        %s\n", cfg.DBPath)
	fmt.Println()
	fmt.Printf("LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Printf("LLM Model:            %s\n", cfg.LLMModel)
	fmt.Printf("LLM Base URL:         %s\n", cfg.LLMBaseURL)
	fmt.Printf("Max Tokens:           %d\n", cfg.LLMMaxTokens)
	fmt.Printf("Temperature:          %.2f\n", cfg.LLMTemperature)
	fmt.Println()
	fmt.Printf("Tool Timeout:         %s\n", cfg.ToolTimeout)
	fmt.Printf("Synthesis Timeout:    %s\n", cfg.SynthesisTimeout)
	fmt.Printf("Max Concurrent Tools: %d\n", cfg.MaxConcurrentTools)
	fmt.Printf("Context Max Chars:    %d\n", cfg.ContextMaxChars)
	fmt.Println()
	fmt.Printf("Fetch Article Body:   %t\n", cfg.FetchArticleBody)
	fmt.Printf("Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
	fmt.Println()

	fmt.Println("🔌 API Configuration:")
	fmt.Println("─────────────────────")
	if cfg.LLMAPIKey() != "" {
		fmt.Printf("LLM API (%s):     ✅ Configured\n", cfg.LLMProvider)
	} else {
		fmt.Printf("LLM API (%s):     ❌ Not configured\n", cfg.LLMProvider)
	}
	if cfg.FinnhubAPIKey != "" {
		fmt.Println("Finnhub API:          ✅ Configured")
	} else {
		fmt.Println("Finnhub API:          ❌ Not configured (news falls back to Yahoo)")
	}
}

// configureLogging sets the global zerolog output. The server logs JSON in
// production and pretty console lines in debug; the terminal chat stays quiet
// below warnings so log lines do not interleave with the conversation.
func configureLogging(debug, console bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func configureChatLogging(debug bool) {
	configureLogging(debug, true)
	if !debug {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
