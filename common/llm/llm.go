package llm

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

var nameInvalidChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config holds LLM client configuration.
type Config struct {
	Provider   string        // "openai" or "anthropic"
	APIKey     string        // Required: API key for the provider
	BaseURL    string        // Optional: custom API endpoint
	Model      string        // Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-5-20250514")
	MaxTokens  int           // Default completion limit when a request sets none
	Timeout    time.Duration // Per-request timeout, 0 = SDK default
	MaxRetries int           // SDK-level retries, 0 = none
}

// ChatClient produces a plain-text completion over a conversation.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Model() string
}

type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64 // nil = model default
}

// Message represents a conversation message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Name    string // Optional: participant name (user messages only)
	Content string
}

type ChatResponse struct {
	Content          string
	FinishReason     string // "stop", "length"
	PromptTokens     int
	CompletionTokens int
}

// NewChatClient selects the provider from cfg.Provider, defaulting to OpenAI.
func NewChatClient(cfg Config) (ChatClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// SanitizeName converts a username to a valid OpenAI name parameter.
// The name must match ^[a-zA-Z0-9_-]{1,64}$.
func SanitizeName(username string) string {
	sanitized := nameInvalidChars.ReplaceAllString(username, "_")
	if len(sanitized) > 64 {
		sanitized = sanitized[:64]
	}
	return sanitized
}

func Temp(t float64) *float64 {
	return &t
}
