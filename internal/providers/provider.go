package providers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// LLMClient is the interface for vision chat completion requests.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`

	// Images are attached as data URIs, ImageURLs are passed through as-is.
	Images    [][]byte `json:"-"`
	ImageURLs []string `json:"-"`
}

// HasImages reports whether the message carries any image parts.
func (m Message) HasImages() bool {
	return len(m.Images) > 0 || len(m.ImageURLs) > 0
}

// imageURLs returns every image of the message as a URL, inline images first.
func (m Message) imageURLs() []string {
	urls := make([]string, 0, len(m.Images)+len(m.ImageURLs))
	for _, img := range m.Images {
		urls = append(urls, DataURI(img))
	}
	return append(urls, m.ImageURLs...)
}

// DataURI encodes image bytes as a base64 data URI, sniffing the media type.
func DataURI(img []byte) string {
	mediaType := http.DetectContentType(img)
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/jpeg"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(img)
}

// Response format types
const (
	ResponseFormatText       = "text"
	ResponseFormatJSONObject = "json_object"
)

// ResponseFormat specifies the output format.
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content string `json:"content"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider     string `json:"provider"`
	ModelUsed    string `json:"model_used"`
	FinishReason string `json:"finish_reason,omitempty"`

	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
