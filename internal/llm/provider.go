package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

type Message struct {
	Role    string
	Content string
}

type CompletionResponse struct {
	Content      string
	FinishReason string
	ModelName    string
	Usage        Usage
	Latency      time.Duration
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StatusError is returned by the HTTP providers for non-200 responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsRetryable reports whether a failed completion is worth retrying: rate
// limits, server errors and network timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

type Client struct {
	providers       map[string]Provider
	defaultProvider string
	defaultModel    string
	timeout         time.Duration
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	c := &Client{
		providers:       make(map[string]Provider),
		defaultProvider: cfg.DefaultProvider,
		defaultModel:    cfg.JudgeModel,
		timeout:         cfg.Timeout,
	}

	if cfg.OllamaBaseURL != "" {
		c.providers["ollama"] = NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel)
	}

	if cfg.OpenAIAPIKey != "" {
		c.providers["openai"] = NewOpenAIProvider(cfg.OpenAIAPIKey)
	}

	if cfg.AnthropicAPIKey != "" {
		c.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicAPIKey)
	}

	if cfg.OpenRouterAPIKey != "" {
		c.providers["openrouter"] = NewOpenRouterProvider(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	}

	return c.init()
}

// NewClientWithProviders is used when providers are built by the caller.
func NewClientWithProviders(defaultProvider string, timeout time.Duration, providers ...Provider) (*Client, error) {
	c := &Client{
		providers:       make(map[string]Provider, len(providers)),
		defaultProvider: defaultProvider,
		timeout:         timeout,
	}
	for _, p := range providers {
		c.providers[p.Name()] = p
	}
	return c.init()
}

func (c *Client) init() (*Client, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}

	if _, ok := c.providers[c.defaultProvider]; !ok {
		names := make([]string, 0, len(c.providers))
		for name := range c.providers {
			names = append(names, name)
		}
		sort.Strings(names)
		c.defaultProvider = names[0]
	}

	return c, nil
}

func (c *Client) DefaultProvider() string {
	return c.defaultProvider
}

func (c *Client) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return c.CompleteWithProvider(ctx, c.defaultProvider, req)
}

func (c *Client) CompleteWithProvider(ctx context.Context, providerName string, req *CompletionRequest) (*CompletionResponse, error) {
	provider, ok := c.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", providerName)
	}

	if req.Model == "" && c.defaultModel != "" {
		r := *req
		r.Model = c.defaultModel
		req = &r
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	return provider.Complete(ctx, req)
}
