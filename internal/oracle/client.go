package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/errors"
)

// Client implements the Service interface over HTTP for the supported
// providers. Groq exposes an OpenAI-compatible API, so both share a code path.
type Client struct {
	config     Config
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a new oracle client with the given configuration and
// per-call timeout bound.
func NewClient(config Config, timeout time.Duration) *Client {
	return &Client{
		config:  config,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configure updates the client configuration
func (c *Client) Configure(config Config) error {
	if config.Provider == "" {
		return fmt.Errorf("provider is required")
	}

	if config.Model == "" {
		return fmt.Errorf("model is required")
	}

	switch config.Provider {
	case ProviderGroq:
		if config.APIKey == "" {
			return fmt.Errorf("API key is required for Groq provider")
		}
		if config.BaseURL == "" {
			config.BaseURL = "https://api.groq.com/openai/v1"
		}
	case ProviderOpenAI:
		if config.APIKey == "" {
			return fmt.Errorf("API key is required for OpenAI provider")
		}
		if config.BaseURL == "" {
			config.BaseURL = "https://api.openai.com/v1"
		}
	case ProviderOllama:
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
	default:
		return fmt.Errorf("unsupported provider: %s", config.Provider)
	}

	c.config = config

	return nil
}

// Complete sends the composed prompt to the configured provider and returns
// the raw response text. The call is bounded by the client's timeout and is
// cancellable through ctx.
func (c *Client) Complete(ctx context.Context, req GenerationRequest) (*Completion, error) {
	if c.config.Provider == "" {
		return nil, errors.New(errors.ErrTypeConfig, "oracle client not configured")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	switch c.config.Provider {
	case ProviderGroq, ProviderOpenAI:
		return c.completeChat(ctx, req)
	case ProviderOllama:
		return c.completeOllama(ctx, req)
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported provider: %s", c.config.Provider)
	}
}

// chatRequest is the OpenAI-compatible chat completion request body
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// completeChat handles Groq and OpenAI chat completion calls
func (c *Client) completeChat(ctx context.Context, req GenerationRequest) (*Completion, error) {
	reqBody := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	respBody, err := c.post(ctx, "/chat/completions", reqBody, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
	})
	if err != nil {
		return nil, err
	}

	var response chatResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeOracleUnavailable, "failed to parse oracle response")
	}

	if response.Error != nil {
		return nil, errors.Newf(errors.ErrTypeOracleUnavailable, "oracle API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return nil, errors.New(errors.ErrTypeOracleUnavailable, "oracle returned no choices")
	}

	return &Completion{Text: strings.TrimSpace(response.Choices[0].Message.Content)}, nil
}

// ollamaRequest is the Ollama generate request body
type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// completeOllama handles Ollama generate calls
func (c *Client) completeOllama(ctx context.Context, req GenerationRequest) (*Completion, error) {
	reqBody := ollamaRequest{
		Model:  c.config.Model,
		Prompt: req.Prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	respBody, err := c.post(ctx, "/api/generate", reqBody, nil)
	if err != nil {
		return nil, err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeOracleUnavailable, "failed to parse oracle response")
	}

	if response.Error != "" {
		return nil, errors.Newf(errors.ErrTypeOracleUnavailable, "oracle API error: %s", response.Error)
	}

	return &Completion{Text: strings.TrimSpace(response.Response)}, nil
}

// post makes an HTTP request to the provider and classifies failures
func (c *Client) post(ctx context.Context, endpoint string, reqBody interface{}, headers map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal oracle request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to create oracle request")
	}

	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, errors.Wrap(err, errors.ErrTypeOracleTimeout, "oracle call exceeded timeout")
		}

		return nil, errors.Wrap(err, errors.ErrTypeOracleUnavailable, "failed to reach oracle")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeOracleUnavailable, "failed to read oracle response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(
			errors.ErrTypeOracleUnavailable,
			"oracle request failed with status %d: %s",
			resp.StatusCode,
			string(body),
		)
	}

	return body, nil
}

// isTimeout reports whether an HTTP failure was caused by the bounded wait
// elapsing rather than a transport fault.
func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
