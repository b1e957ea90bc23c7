package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dyike/CortexCommittee/internal/models"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	HistoryDB    string `json:"history_db"`
	PolicyFile   string `json:"policy_file"`

	// LLM gateway
	LLMProvider    string `json:"llm_provider"`
	LLMModel       string `json:"llm_model"`
	LLMBaseURL     string `json:"llm_base_url"`
	LLMAPIKey      string `json:"llm_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	LLMTimeoutSec  int    `json:"llm_timeout_sec"`
	LLMMaxTokens   int    `json:"llm_max_tokens"`
	LLMMaxAttempts int    `json:"llm_max_attempts"`

	// Data adapters
	SentimentAPIURL string `json:"sentiment_api_url"`
	SentimentAPIKey string `json:"sentiment_api_key"`
	StockAPIURL     string `json:"stock_api_url"`
	DataTimeoutSec  int    `json:"data_timeout_sec"`
	NewsEnabled     bool   `json:"news_enabled"`
	NewsLocale      string `json:"news_locale"`
	QuotesEnabled   bool   `json:"quotes_enabled"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// Committee
	MaxIterations int `json:"max_iterations"`
	FanoutLimit   int `json:"fanout_limit"`

	CacheEnabled    bool `json:"cache_enabled"`
	CacheTTLMinutes int  `json:"cache_ttl_minutes"`

	Debug bool `json:"debug"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	return DefaultConfigFromEnv(currentDir)
}

// DefaultConfigFromEnv is DefaultConfigWithRoot overlaid with .env and the process environment.
func DefaultConfigFromEnv(root string) *Config {
	cfg := DefaultConfigWithRoot(root)

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()
	return cfg
}

// DefaultConfigWithRoot returns the built-in defaults with every directory placed under root.
// The environment is not consulted.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		ResultsDir:   filepath.Join(root, "results"),
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		HistoryDB:    filepath.Join(root, "data", "committee.db"),

		LLMProvider:    "openai",
		LLMModel:       "deepseek-v3",
		LLMBaseURL:     "http://localhost:8002/v1",
		LLMTimeoutSec:  60,
		LLMMaxAttempts: 3,

		SentimentAPIURL: "http://localhost:8000",
		StockAPIURL:     "http://localhost:8001",
		DataTimeoutSec:  30,
		NewsEnabled:     true,
		NewsLocale:      "en-US",
		QuotesEnabled:   true,

		MaxIterations: 3,
		FanoutLimit:   0,

		CacheEnabled:    true,
		CacheTTLMinutes: 30,

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}
}

func (c *Config) loadFromEnv() {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.Atoi(val); err == nil {
				*dst = v
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.ParseBool(val); err == nil {
				*dst = v
			}
		}
	}

	setString("PROJECT_DIR", &c.ProjectDir)
	setString("RESULTS_DIR", &c.ResultsDir)
	setString("DATA_DIR", &c.DataDir)
	setString("DATA_CACHE_DIR", &c.DataCacheDir)
	setString("COMMITTEE_HISTORY_DB", &c.HistoryDB)
	setString("COMMITTEE_POLICY_FILE", &c.PolicyFile)

	setString("LLM_PROVIDER", &c.LLMProvider)
	setString("LLM_MODEL", &c.LLMModel)
	setString("LLM_BASE_URL", &c.LLMBaseURL)
	setString("LLM_API_KEY", &c.LLMAPIKey)
	setString("DEEPSEEK_API_KEY", &c.DeepSeekAPIKey)
	setInt("LLM_TIMEOUT_SEC", &c.LLMTimeoutSec)
	setInt("LLM_MAX_TOKENS", &c.LLMMaxTokens)
	setInt("LLM_MAX_ATTEMPTS", &c.LLMMaxAttempts)

	setString("SENTIMENT_API_URL", &c.SentimentAPIURL)
	setString("SENTIMENT_API_KEY", &c.SentimentAPIKey)
	setString("STOCK_API_URL", &c.StockAPIURL)
	setInt("DATA_TIMEOUT_SEC", &c.DataTimeoutSec)
	setBool("NEWS_ENABLED", &c.NewsEnabled)
	setString("NEWS_LOCALE", &c.NewsLocale)
	setBool("QUOTES_ENABLED", &c.QuotesEnabled)

	setString("LONGPORT_APP_KEY", &c.LongportAppKey)
	setString("LONGPORT_APP_SECRET", &c.LongportAppSecret)
	setString("LONGPORT_ACCESS_TOKEN", &c.LongportAccessToken)

	setInt("COMMITTEE_MAX_ITERATIONS", &c.MaxIterations)
	setInt("COMMITTEE_FANOUT_LIMIT", &c.FanoutLimit)
	setBool("CACHE_ENABLED", &c.CacheEnabled)
	setInt("CACHE_TTL_MINUTES", &c.CacheTTLMinutes)

	setBool("COMMITTEE_DEBUG", &c.Debug)
	setBool("EINO_DEBUG_ENABLED", &c.EinoDebugEnabled)
	setInt("EINO_DEBUG_PORT", &c.EinoDebugPort)
}

func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxIterations > models.MaxIterationsCeiling {
		return fmt.Errorf("max_iterations must not exceed %d, got %d", models.MaxIterationsCeiling, c.MaxIterations)
	}
	if c.FanoutLimit < 0 {
		return fmt.Errorf("fanout_limit must not be negative, got %d", c.FanoutLimit)
	}
	switch strings.ToLower(c.LLMProvider) {
	case "openai", "deepseek":
	default:
		return fmt.Errorf("unsupported llm_provider %q", c.LLMProvider)
	}
	if c.LLMMaxAttempts <= 0 {
		return fmt.Errorf("llm_max_attempts must be positive, got %d", c.LLMMaxAttempts)
	}
	if c.EinoDebugEnabled && (c.EinoDebugPort <= 0 || c.EinoDebugPort > 65535) {
		return fmt.Errorf("eino_debug_port out of range: %d", c.EinoDebugPort)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir}
	if c.HistoryDB != "" {
		dirs = append(dirs, filepath.Dir(c.HistoryDB))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
