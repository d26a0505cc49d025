package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// doRequest makes an HTTP request to OpenRouter with retry logic. It returns
// the number of attempts made alongside the response.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, orReq *openRouterRequest) (*openRouterResponse, int, error) {
	var lastErr error
	var retryAfter time.Duration
	lastStatus := 0

	attempt := 0
	for ; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt, err
		}

		// Inject nonce for retries on 413/422 (makes request "different")
		if attempt > 0 && lastErr != nil {
			c.injectNonce(orReq, attempt)
		}

		bodyBytes, err := json.Marshal(orReq)
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/ieltsmeta")
		req.Header.Set("X-Title", "ieltsmeta")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, attempt + 1, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.sleepWithJitter(ctx, attempt, 0)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			c.sleepWithJitter(ctx, attempt, 0)
			continue
		}

		if c.shouldRetry(resp.StatusCode) {
			lastStatus = resp.StatusCode
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			lastErr = fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, string(respBody))
			c.sleepWithJitter(ctx, attempt, retryAfter)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, attempt + 1, fmt.Errorf("OpenRouter error (status %d): %s", resp.StatusCode, string(respBody))
		}

		var orResp openRouterResponse
		if err := json.Unmarshal(respBody, &orResp); err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		// Check for retryable response-level issues (API returned 200 but with error or empty choices)
		if retryable, err := c.shouldRetryResponse(&orResp); retryable {
			lastStatus = 0
			lastErr = err
			c.sleepWithJitter(ctx, attempt, 0)
			continue
		}

		return &orResp, attempt + 1, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, attempt, err
	}
	if lastStatus == http.StatusTooManyRequests {
		return nil, attempt, &RateLimitError{
			Message:    fmt.Sprintf("OpenRouter rate limited after %d attempts", attempt),
			RetryAfter: retryAfter,
			StatusCode: lastStatus,
		}
	}
	return nil, attempt, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// shouldRetry returns true for status codes that should be retried.
func (c *OpenRouterClient) shouldRetry(statusCode int) bool {
	switch statusCode {
	case 413: // Payload Too Large - retry with nonce
		return true
	case 422: // Unprocessable Entity - retry with nonce (often cache/format issues)
		return true
	case 429: // Rate Limited
		return true
	default:
		// Retry on server errors (500+), Cloudflare 52x included
		return statusCode >= 500
	}
}

// shouldRetryResponse checks if a 200 OK response has retryable content issues.
func (c *OpenRouterClient) shouldRetryResponse(resp *openRouterResponse) (bool, error) {
	if resp.Error != nil {
		code := fmt.Sprintf("%v", resp.Error.Code)
		switch code {
		case "overloaded", "rate_limit_exceeded", "503", "502", "500":
			return true, fmt.Errorf("OpenRouter API error (retryable): %s", resp.Error.Message)
		}
		// Non-retryable API errors (content_filter, invalid_request, etc.)
		return false, nil
	}

	// Empty choices - likely transient, worth retrying
	if len(resp.Choices) == 0 {
		return true, fmt.Errorf("empty choices in response (model=%s, id=%s)", resp.Model, resp.ID)
	}

	return false, nil
}

// injectNonce appends a unique comment to the text of the last user message
// so the retried request is not served from a cache.
func (c *OpenRouterClient) injectNonce(req *openRouterRequest, attempt int) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		nonce := uuid.New().String()[:16]
		comment := fmt.Sprintf("\n<!-- retry_%d_id: %s -->", attempt, nonce)

		switch content := req.Messages[i].Content.(type) {
		case string:
			req.Messages[i].Content = content + comment
		case []openRouterContent:
			for j := range content {
				if content[j].Type == "text" {
					content[j].Text += comment
					break
				}
			}
		}
		return
	}
}

// sleepWithJitter sleeps with exponential backoff and jitter, respecting
// context cancellation. A server-provided retryAfter wins when longer.
func (c *OpenRouterClient) sleepWithJitter(ctx context.Context, attempt int, retryAfter time.Duration) {
	if attempt >= c.maxRetries-1 {
		return
	}

	baseDelay := c.retryDelay * time.Duration(1<<attempt)
	if baseDelay > 10*time.Second {
		baseDelay = 10 * time.Second
	}

	// Add jitter: -20% to +30%
	delay := time.Duration(float64(baseDelay) * (0.8 + 0.5*float64(time.Now().UnixNano()%1000)/1000))
	if retryAfter > delay {
		delay = retryAfter
	}

	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
