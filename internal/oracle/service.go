package oracle

import (
	"context"

	"github.com/askdb/askdb/internal/schema"
)

// Service defines the interface to the external text-generation oracle.
// Errors it returns are transport failures, never domain failures.
type Service interface {
	Complete(ctx context.Context, req GenerationRequest) (*Completion, error)
	Configure(config Config) error
}

// GenerationRequest carries one composed prompt to the oracle. It is created
// per user question and never persisted.
type GenerationRequest struct {
	Question    string            `json:"question"`
	Schema      schema.Descriptor `json:"-"`
	Prompt      string            `json:"prompt"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

// Completion is the oracle's free-form response text
type Completion struct {
	Text string `json:"text"`
}

// Config represents oracle service configuration
type Config struct {
	Provider string `json:"provider"` // groq, openai, ollama
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
}

// Provider constants for supported oracle backends
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)
