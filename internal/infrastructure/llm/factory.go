package llm

import (
	"fmt"
	"strings"

	"SecFeed/internal/config"
	"SecFeed/internal/ports"
)

// NewCompleter picks the backend named in config.
func NewCompleter(cfg config.LLMConfig) (ports.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "ollama":
		return NewOllamaClient(cfg.Ollama, nil), nil
	case "chatgpt", "openai":
		return NewChatGPTClient(cfg.ChatGPT, nil), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}
