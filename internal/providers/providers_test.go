package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model: "test-model",
			Messages: []Message{
				{Role: "user", Content: "test"},
			},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("handler", func(t *testing.T) {
		c := NewMockClient()
		c.Handler = func(ctx context.Context, req *ChatRequest) (string, error) {
			if len(req.Messages) == 2 && req.Messages[1].HasImages() {
				return `{"ok":true}`, nil
			}
			return "", errors.New("no image")
		}

		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "sys"},
				{Role: "user", Content: "look", ImageURLs: []string{"https://example.com/a.png"}},
			},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != `{"ok":true}` {
			t.Errorf("Content = %q, want %q", result.Content, `{"ok":true}`)
		}

		result, err = c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "no image"}},
		})
		if err == nil {
			t.Fatal("expected handler error")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("failure", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true

		result, err := c.Chat(context.Background(), &ChatRequest{})
		if err == nil {
			t.Error("expected error, got nil")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("fail after N", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 2

		for i := 0; i < 2; i++ {
			if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
				t.Fatalf("request %d should succeed: %v", i+1, err)
			}
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Error("third request should fail")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = 5 * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Chat(ctx, &ChatRequest{})
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("tracks max in flight", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = 20 * time.Millisecond

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Chat(context.Background(), &ChatRequest{})
			}()
		}
		wg.Wait()

		if got := c.MaxInFlight(); got < 2 {
			t.Errorf("MaxInFlight = %d, want >= 2", got)
		}
		c.Reset()
		if c.RequestCount() != 0 || c.MaxInFlight() != 0 {
			t.Error("Reset did not clear counters")
		}
	})
}

func TestDataURI(t *testing.T) {
	got := DataURI(pngHeader)
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	if got != want {
		t.Errorf("DataURI = %q, want %q", got, want)
	}

	// Unknown bytes fall back to jpeg
	if got := DataURI([]byte("plain text")); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("DataURI(text) = %q, want image/jpeg prefix", got)
	}
}

func TestMessage_imageURLs(t *testing.T) {
	m := Message{
		Images:    [][]byte{pngHeader},
		ImageURLs: []string{"https://example.com/chart.png"},
	}
	urls := m.imageURLs()
	if len(urls) != 2 {
		t.Fatalf("len(imageURLs) = %d, want 2", len(urls))
	}
	if !strings.HasPrefix(urls[0], "data:image/png;base64,") {
		t.Errorf("urls[0] = %q, want data URI first", urls[0])
	}
	if urls[1] != "https://example.com/chart.png" {
		t.Errorf("urls[1] = %q, want remote URL", urls[1])
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows initial burst", func(t *testing.T) {
		limiter := NewRateLimiter(10)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("try consume", func(t *testing.T) {
		limiter := NewRateLimiter(1)

		if !limiter.TryConsume() {
			t.Error("first TryConsume should succeed")
		}
		if limiter.TryConsume() {
			t.Error("second TryConsume should fail with an empty bucket")
		}
	})

	t.Run("status", func(t *testing.T) {
		limiter := NewRateLimiter(60.0)

		status := limiter.Status()
		if status.RequestsPerSecond != 60.0 {
			t.Errorf("RequestsPerSecond = %f, want 60.0", status.RequestsPerSecond)
		}
		if status.TokensLimit != 60 {
			t.Errorf("TokensLimit = %d, want 60", status.TokensLimit)
		}
		if status.TokensAvailable <= 0 {
			t.Error("expected positive tokens available")
		}
	})

	t.Run("fractional rate has burst of one", func(t *testing.T) {
		limiter := NewRateLimiter(0.5)
		if got := limiter.Status().TokensLimit; got != 1 {
			t.Errorf("TokensLimit = %d, want 1", got)
		}
	})

	t.Run("record 429 drains bucket", func(t *testing.T) {
		limiter := NewRateLimiter(1)

		limiter.Record429(time.Second)

		status := limiter.Status()
		if status.Last429Time.IsZero() {
			t.Error("Last429Time should be set")
		}
		if limiter.TryConsume() {
			t.Error("TryConsume should fail after drain")
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		limiter.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := limiter.Wait(ctx)
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(100)

		var wg sync.WaitGroup
		var errs atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					errs.Add(1)
				}
			}()
		}
		wg.Wait()

		if errs.Load() > 0 {
			t.Errorf("had %d errors", errs.Load())
		}
		if got := limiter.Status().TotalConsumed; got != 10 {
			t.Errorf("TotalConsumed = %d, want 10", got)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
