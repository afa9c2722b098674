package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable for the service. Values come from the
// environment (a .env file is honored when present); DefaultConfig holds the
// defaults used when a variable is unset.
type Config struct {
	HTTPAddr           string
	CORSAllowedOrigins string

	DataDir string
	DBPath  string

	LLMProvider    string // "openai" (any OpenAI-compatible backend) or "deepseek"
	LLMModel       string
	LLMBaseURL     string
	OpenAIAPIKey   string
	DeepSeekAPIKey string
	LLMMaxTokens   int
	LLMTemperature float64

	FinnhubAPIKey  string
	FinnhubBaseURL string

	ToolTimeout        time.Duration
	SynthesisTimeout   time.Duration
	MaxConcurrentTools int
	ContextMaxChars    int

	FetchArticleBody bool
	CacheEnabled     bool

	Debug bool
}

func DefaultConfig() *Config {
	dataDir := filepath.Join(".", "data")

	return &Config{
		HTTPAddr:           ":8000",
		CORSAllowedOrigins: "*",

		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, "financial_agent.db"),

		LLMProvider:    "openai",
		LLMModel:       "gpt-4o-mini",
		LLMBaseURL:     "https://api.openai.com/v1",
		LLMMaxTokens:   2000,
		LLMTemperature: 0.1,

		FinnhubBaseURL: "https://finnhub.io/api/v1",

		ToolTimeout:        10 * time.Second,
		SynthesisTimeout:   45 * time.Second,
		MaxConcurrentTools: 4,
		ContextMaxChars:    24000,

		FetchArticleBody: false,
		CacheEnabled:     true,

		Debug: false,
	}
}

// Load returns the defaults overridden by the environment. A .env file in
// the working directory is loaded first when it exists.
func Load() *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.HTTPAddr = envStr("HTTP_ADDR", cfg.HTTPAddr)
	cfg.CORSAllowedOrigins = envStr("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)

	cfg.DataDir = envStr("DATA_DIR", cfg.DataDir)
	cfg.DBPath = envStr("DB_PATH", filepath.Join(cfg.DataDir, "financial_agent.db"))

	cfg.LLMProvider = envStr("LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = envStr("LLM_MODEL", cfg.LLMModel)
	cfg.LLMBaseURL = envStr("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.OpenAIAPIKey = envStr("OPENAI_API_KEY", "")
	cfg.DeepSeekAPIKey = envStr("DEEPSEEK_API_KEY", "")
	cfg.LLMMaxTokens = envInt("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	cfg.LLMTemperature = envFloat("LLM_TEMPERATURE", cfg.LLMTemperature)

	cfg.FinnhubAPIKey = envStr("FINNHUB_API_KEY", "")
	cfg.FinnhubBaseURL = envStr("FINNHUB_BASE_URL", cfg.FinnhubBaseURL)

	cfg.ToolTimeout = envDuration("TOOL_TIMEOUT", cfg.ToolTimeout)
	cfg.SynthesisTimeout = envDuration("SYNTHESIS_TIMEOUT", cfg.SynthesisTimeout)
	cfg.MaxConcurrentTools = envInt("MAX_CONCURRENT_TOOLS", cfg.MaxConcurrentTools)
	cfg.ContextMaxChars = envInt("CONTEXT_MAX_CHARS", cfg.ContextMaxChars)

	cfg.FetchArticleBody = envBool("FETCH_ARTICLE_BODY", cfg.FetchArticleBody)
	cfg.CacheEnabled = envBool("CACHE_ENABLED", cfg.CacheEnabled)

	cfg.Debug = envBool("DEBUG", cfg.Debug)

	return cfg
}

// LLMAPIKey returns the key matching the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == "deepseek" {
		return c.DeepSeekAPIKey
	}
	return c.OpenAIAPIKey
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Join(c.DataDir, "cache")}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
