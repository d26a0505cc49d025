package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing and offline runs.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// Handler, when set, produces the response text per request and takes
	// precedence over ResponseText.
	Handler func(ctx context.Context, req *ChatRequest) (string, error)

	RPS float64

	// State
	requestCount atomic.Int64
	inFlight     atomic.Int64
	maxInFlight  atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      10 * time.Millisecond,
		ResponseText: "{}",
		RPS:          100,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// RequestsPerSecond returns the RPS limit for rate limiting.
func (c *MockClient) RequestsPerSecond() float64 {
	return c.RPS
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.maxInFlight.Load()
		if n <= peak || c.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.ShouldFail {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = fmt.Sprintf("mock client failed after %d requests", c.FailAfter)
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	// Simulate latency
	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		result.ErrorType = "context_cancelled"
		result.ErrorMessage = ctx.Err().Error()
		result.ExecutionTime = time.Since(start)
		return result, ctx.Err()
	}

	text := c.ResponseText
	if c.Handler != nil {
		var err error
		text, err = c.Handler(ctx, req)
		if err != nil {
			result.ErrorType = "mock_failure"
			result.ErrorMessage = err.Error()
			result.ExecutionTime = time.Since(start)
			return result, err
		}
	}

	result.Success = true
	result.Content = text
	result.FinishReason = "stop"
	result.ExecutionTime = time.Since(start)

	// Simulate token counting
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(text) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// MaxInFlight returns the highest number of concurrent Chat calls observed.
func (c *MockClient) MaxInFlight() int64 {
	return c.maxInFlight.Load()
}

// Reset resets the request counters.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.maxInFlight.Store(0)
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
