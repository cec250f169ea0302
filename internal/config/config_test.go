package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		ConfigPathEnv, databaseDriverEnv, databaseDSNEnv, ollamaURLEnv, ollamaModelEnv,
		chatGPTAPIKeyEnv, chatGPTModelEnv, telegramTokenEnv, httpAddrEnv, logLevelEnv,
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadFile("")
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, "thehackernews", cfg.Source.Scanner)
	assert.Equal(t, "ollama", cfg.LLM.Backend)
	assert.Equal(t, 0.4, cfg.Ranking.JobWeight)
	assert.Equal(t, 0.6, cfg.Ranking.InterestWeight)
	assert.Equal(t, 10, cfg.Ranking.DefaultLimit)
	assert.Equal(t, ":5000", cfg.HTTP.Addr)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Scheduler.FullCrawl)
	assert.Zero(t, cfg.Scheduler.MaxPages)
	assert.False(t, cfg.Source.UntilSaved)
	assert.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
}

func TestLoadFileMergesYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://secfeed@localhost/secfeed?sslmode=disable
scheduler:
  cronExpression: "*/30 * * * *"
  timezone: Europe/Berlin
  runOnStart: true
  fullCrawl: true
  maxPages: 2
source:
  maxPages: 5
  untilSaved: true
  fetchDelay: 2s
llm:
  backend: openai
  chatgpt:
    model: gpt-4.1-mini
  summarySentences: 2
ranking:
  jobWeight: 0.5
  interestWeight: 0.5
  maxLimit: 50
http:
  addr: ":8080"
  allowedOrigins: ["chrome-extension://abc"]
logging:
  level: warn
  format: json
`)

	cfg := LoadFile(path)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "*/30 * * * *", cfg.Scheduler.CronExpression)
	assert.True(t, cfg.Scheduler.RunOnStart)
	assert.True(t, cfg.Scheduler.FullCrawl)
	assert.Equal(t, 2, cfg.Scheduler.MaxPages)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, 5, cfg.Source.MaxPages)
	assert.True(t, cfg.Source.UntilSaved)
	assert.Equal(t, 2*time.Second, cfg.Source.FetchDelay)
	assert.Equal(t, "https://thehackernews.com", cfg.Source.BaseURL)
	assert.Equal(t, "openai", cfg.LLM.Backend)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.ChatGPT.Model)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.LLM.ChatGPT.Endpoint)
	assert.Equal(t, 2, cfg.LLM.SummarySentences)
	assert.Equal(t, 3000, cfg.LLM.ScoringBudget)
	assert.Equal(t, 0.5, cfg.Ranking.JobWeight)
	assert.Equal(t, 0.5, cfg.Ranking.InterestWeight)
	assert.Equal(t, 10, cfg.Ranking.DefaultLimit)
	assert.Equal(t, 50, cfg.Ranking.MaxLimit)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"chrome-extension://abc"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFileEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(databaseDSNEnv, "/var/lib/secfeed/articles.db")
	t.Setenv(ollamaModelEnv, "qwen2.5:7b")
	t.Setenv(telegramTokenEnv, "123:abc")
	t.Setenv(httpAddrEnv, "127.0.0.1:9000")
	t.Setenv(logLevelEnv, "debug")

	path := writeConfig(t, "http:\n  addr: \":8080\"\n")
	cfg := LoadFile(path)

	assert.Equal(t, "/var/lib/secfeed/articles.db", cfg.Database.DSN)
	assert.Equal(t, "qwen2.5:7b", cfg.LLM.Ollama.Model)
	assert.Equal(t, "123:abc", cfg.Notifications.Telegram.BotToken)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadUsesPathFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(ConfigPathEnv, writeConfig(t, "source:\n  maxPages: 7\n"))

	assert.Equal(t, 7, Load().Source.MaxPages)
}

func TestLoadFileFallsBackOnBadInput(t *testing.T) {
	clearEnv(t)

	missing := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, Default().HTTP.Addr, missing.HTTP.Addr)

	broken := LoadFile(writeConfig(t, "http: [unterminated"))
	assert.Equal(t, Default().Database, broken.Database)

	badZone := LoadFile(writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))
	assert.Equal(t, "UTC", badZone.Scheduler.Location().String())
}
