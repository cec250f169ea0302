package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	ConfigPathEnv     = "SECFEED_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	ollamaURLEnv      = "OLLAMA_URL"
	ollamaModelEnv    = "OLLAMA_MODEL"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Source        SourceConfig       `yaml:"source"`
	LLM           LLMConfig          `yaml:"llm"`
	Ranking       RankingConfig      `yaml:"ranking"`
	Notifications NotificationConfig `yaml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig selects the SQL dialect and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when ingestion should run. Scheduled runs stop at
// the first stored article unless FullCrawl is set.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
	Timezone       string `yaml:"timezone"`
	RunOnStart     bool   `yaml:"runOnStart"`
	FullCrawl      bool   `yaml:"fullCrawl"`

	// MaxPages bounds each scheduled run; zero falls back to source.maxPages.
	MaxPages int            `yaml:"maxPages"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SourceConfig describes the news site crawl.
type SourceConfig struct {
	Scanner        string        `yaml:"scanner"`
	BaseURL        string        `yaml:"baseUrl"`
	StartURL       string        `yaml:"startUrl"`
	MaxPages       int           `yaml:"maxPages"`
	UntilSaved     bool          `yaml:"untilSaved"`
	FetchDelay     time.Duration `yaml:"fetchDelay"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	UserAgent      string        `yaml:"userAgent"`
}

// LLMConfig selects the model backend and the scorer budgets.
type LLMConfig struct {
	Backend          string        `yaml:"backend"`
	Ollama           OllamaConfig  `yaml:"ollama"`
	ChatGPT          ChatGPTConfig `yaml:"chatgpt"`
	ScoringBudget    int           `yaml:"scoringBudget"`
	SummaryBudget    int           `yaml:"summaryBudget"`
	SummarySentences int           `yaml:"summarySentences"`
	ScoringTimeout   time.Duration `yaml:"scoringTimeout"`
	SummaryTimeout   time.Duration `yaml:"summaryTimeout"`
}

// OllamaConfig points at a local Ollama server.
type OllamaConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// RankingConfig holds the relevance weights and result limits.
type RankingConfig struct {
	JobWeight      float64 `yaml:"jobWeight"`
	InterestWeight float64 `yaml:"interestWeight"`
	DefaultLimit   int     `yaml:"defaultLimit"`
	MaxLimit       int     `yaml:"maxLimit"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to run the bot.
type TelegramConfig struct {
	BotToken string        `yaml:"botToken"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig sets the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration from the env-provided path and applies environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(ConfigPathEnv))
}

// LoadFile reads YAML configuration (if path is set) and applies environment overrides.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(ollamaURLEnv); v != "" {
		c.LLM.Ollama.Endpoint = v
	}
	if v := os.Getenv(ollamaModelEnv); v != "" {
		c.LLM.Ollama.Model = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.LLM.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.LLM.ChatGPT.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.RunOnStart {
		base.Scheduler.RunOnStart = true
	}
	if override.Scheduler.FullCrawl {
		base.Scheduler.FullCrawl = true
	}
	if override.Scheduler.MaxPages > 0 {
		base.Scheduler.MaxPages = override.Scheduler.MaxPages
	}

	base.Source = mergeSource(base.Source, override.Source)
	base.LLM = mergeLLM(base.LLM, override.LLM)

	if override.Ranking.JobWeight > 0 || override.Ranking.InterestWeight > 0 {
		base.Ranking.JobWeight = override.Ranking.JobWeight
		base.Ranking.InterestWeight = override.Ranking.InterestWeight
	}
	if override.Ranking.DefaultLimit > 0 {
		base.Ranking.DefaultLimit = override.Ranking.DefaultLimit
	}
	if override.Ranking.MaxLimit > 0 {
		base.Ranking.MaxLimit = override.Ranking.MaxLimit
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.Timeout > 0 {
		base.Notifications.Telegram.Timeout = override.Notifications.Telegram.Timeout
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if override.HTTP.ReadTimeout > 0 {
		base.HTTP.ReadTimeout = override.HTTP.ReadTimeout
	}
	if override.HTTP.WriteTimeout > 0 {
		base.HTTP.WriteTimeout = override.HTTP.WriteTimeout
	}
	if override.HTTP.ShutdownTimeout > 0 {
		base.HTTP.ShutdownTimeout = override.HTTP.ShutdownTimeout
	}
	if len(override.HTTP.AllowedOrigins) > 0 {
		base.HTTP.AllowedOrigins = override.HTTP.AllowedOrigins
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func mergeSource(base, override SourceConfig) SourceConfig {
	if override.Scanner != "" {
		base.Scanner = override.Scanner
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.StartURL != "" {
		base.StartURL = override.StartURL
	}
	if override.MaxPages > 0 {
		base.MaxPages = override.MaxPages
	}
	if override.UntilSaved {
		base.UntilSaved = true
	}
	if override.FetchDelay > 0 {
		base.FetchDelay = override.FetchDelay
	}
	if override.RequestTimeout > 0 {
		base.RequestTimeout = override.RequestTimeout
	}
	if override.UserAgent != "" {
		base.UserAgent = override.UserAgent
	}
	return base
}

func mergeLLM(base, override LLMConfig) LLMConfig {
	if override.Backend != "" {
		base.Backend = override.Backend
	}
	if override.Ollama.Endpoint != "" {
		base.Ollama.Endpoint = override.Ollama.Endpoint
	}
	if override.Ollama.Model != "" {
		base.Ollama.Model = override.Ollama.Model
	}
	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}
	if override.ScoringBudget > 0 {
		base.ScoringBudget = override.ScoringBudget
	}
	if override.SummaryBudget > 0 {
		base.SummaryBudget = override.SummaryBudget
	}
	if override.SummarySentences > 0 {
		base.SummarySentences = override.SummarySentences
	}
	if override.ScoringTimeout > 0 {
		base.ScoringTimeout = override.ScoringTimeout
	}
	if override.SummaryTimeout > 0 {
		base.SummaryTimeout = override.SummaryTimeout
	}
	return base
}

// Default returns the built-in configuration.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "articles.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 * * * *", Timezone: defaultTimezone, location: tz},
		Source: SourceConfig{
			Scanner:        "thehackernews",
			BaseURL:        "https://thehackernews.com",
			StartURL:       "https://thehackernews.com/search?max-results=120&start=1",
			UntilSaved:     false,
			FetchDelay:     time.Second,
			RequestTimeout: 20 * time.Second,
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0 Safari/537.36",
		},
		LLM: LLMConfig{
			Backend: "ollama",
			Ollama: OllamaConfig{
				Endpoint: "http://localhost:11434",
				Model:    "llama3.1:8b",
			},
			ChatGPT: ChatGPTConfig{
				Endpoint:     "https://api.openai.com/v1/chat/completions",
				Model:        "gpt-4o-mini",
				SystemPrompt: "You are an expert content analyzer for security news.",
			},
			ScoringBudget:    3000,
			SummaryBudget:    4000,
			SummarySentences: 3,
			ScoringTimeout:   120 * time.Second,
			SummaryTimeout:   60 * time.Second,
		},
		Ranking: RankingConfig{
			JobWeight:      0.4,
			InterestWeight: 0.6,
			DefaultLimit:   10,
			MaxLimit:       100,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", Timeout: 10 * time.Second},
		},
		HTTP: HTTPConfig{
			Addr:            ":5000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
