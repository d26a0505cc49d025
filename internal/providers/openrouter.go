package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	openRouterDefaultModel = "qwen/qwen2.5-vl-72b-instruct"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	// Rate limiting
	RPS        float64       // Requests per second (default: 5)
	MaxRetries int           // Max retry attempts (default: 3)
	RetryDelay time.Duration // Base delay between retries (default: 1s)
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	// Rate limiting
	rps        float64
	maxRetries int
	retryDelay time.Duration
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openRouterDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.RPS == 0 {
		cfg.RPS = 5.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rps:        cfg.RPS,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Model returns the default model.
func (c *OpenRouterClient) Model() string {
	return c.defaultModel
}

// RequestsPerSecond returns the RPS limit for rate limiting.
func (c *OpenRouterClient) RequestsPerSecond() float64 {
	return c.rps
}

// MaxRetries returns the maximum retry attempts.
func (c *OpenRouterClient) MaxRetries() int {
	return c.maxRetries
}

// Chat sends a chat completion request. Images are sent as image_url
// content parts after the text of their message.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Usage:       &openRouterUsageRequest{Include: true},
	}

	for _, m := range req.Messages {
		orMsg := openRouterMessage{Role: m.Role}
		if m.HasImages() {
			content := []openRouterContent{
				{Type: "text", Text: m.Content},
			}
			for _, u := range m.imageURLs() {
				content = append(content, openRouterContent{
					Type:     "image_url",
					ImageURL: &openRouterImageURL{URL: u},
				})
			}
			orMsg.Content = content
		} else {
			orMsg.Content = m.Content
		}
		orReq.Messages = append(orReq.Messages, orMsg)
	}

	if req.ResponseFormat != nil {
		orReq.ResponseFormat = &openRouterResponseFormat{Type: req.ResponseFormat.Type}
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenRouterName,
	}

	orResp, attempts, httpErr := c.doRequest(ctx, "/chat/completions", &orReq)
	result.Attempts = attempts
	if httpErr != nil {
		result.ErrorType = "http_error"
		result.ErrorMessage = httpErr.Error()
		result.ExecutionTime = time.Since(start)
		return result, httpErr
	}

	if orResp.Error != nil {
		err := fmt.Errorf("OpenRouter API error: %s", orResp.Error.Message)
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	if len(orResp.Choices) == 0 {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	choice := orResp.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		switch c := choice.Message.Content.(type) {
		case string:
			content = c
		default:
			b, err := json.Marshal(c)
			if err != nil {
				result.ErrorType = "content_marshal_error"
				result.ErrorMessage = fmt.Sprintf("failed to marshal content: %v", err)
				result.ExecutionTime = time.Since(start)
				return result, fmt.Errorf("failed to marshal content: %w", err)
			}
			content = string(b)
		}
	}

	result.Success = true
	result.Content = content
	result.ModelUsed = orResp.Model
	result.FinishReason = choice.FinishReason
	result.PromptTokens = orResp.Usage.PromptTokens
	result.CompletionTokens = orResp.Usage.CompletionTokens
	result.TotalTokens = orResp.Usage.TotalTokens
	result.CostUSD = orResp.Usage.Cost
	result.ExecutionTime = time.Since(start)

	return result, nil
}

// Verify interface
var _ LLMClient = (*OpenRouterClient)(nil)
