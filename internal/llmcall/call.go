// Package llmcall provides LLM call recording and querying for traceability.
// Every inference call is recorded with its prompt key and hash, the image it
// was about, the raw response and metrics.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/ieltsmeta/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	RequestID string `json:"request_id,omitempty"`
	ImageRef  string `json:"image_ref,omitempty"`

	// Prompt traceability
	PromptKey     string `json:"prompt_key"`
	PromptHash    string `json:"prompt_hash,omitempty"` // SHA-256 of the exact prompt text used
	SchemaVersion string `json:"schema_version,omitempty"`

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Token usage
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
	Attempts     int     `json:"attempts"`

	// Response
	Response string `json:"response"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	// Context references (all optional)
	RequestID string
	ImageRef  string

	// Prompt identification (required for traceability)
	PromptKey     string
	PromptHash    string
	SchemaVersion string

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64

	// Err is the transport error, when the provider returned one.
	Err error
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:            uuid.New().String(),
		Timestamp:     time.Now(),
		LatencyMs:     int(result.ExecutionTime.Milliseconds()),
		RequestID:     opts.RequestID,
		ImageRef:      opts.ImageRef,
		PromptKey:     opts.PromptKey,
		PromptHash:    opts.PromptHash,
		SchemaVersion: opts.SchemaVersion,
		Provider:      result.Provider,
		Model:         result.ModelUsed,
		Temperature:   opts.Temperature,
		InputTokens:   result.PromptTokens,
		OutputTokens:  result.CompletionTokens,
		CostUSD:       result.CostUSD,
		Attempts:      result.Attempts,
		Response:      result.Content,
		Success:       result.Success && opts.Err == nil,
	}
	if call.RequestID == "" {
		call.RequestID = result.RequestID
	}

	if !call.Success {
		call.Error = result.ErrorMessage
		if call.Error == "" && opts.Err != nil {
			call.Error = opts.Err.Error()
		}
	}

	return call
}
