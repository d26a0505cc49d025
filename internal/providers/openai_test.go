package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIClient_Chat(t *testing.T) {
	t.Run("vision request", func(t *testing.T) {
		var body map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			raw, _ := io.ReadAll(r.Body)
			json.Unmarshal(raw, &body)

			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"created": 1700000000,
				"model": "gpt-4o-2024-08-06",
				"choices": [{
					"index": 0,
					"message": {"role": "assistant", "content": "{\"schema_version\":\"task1_v1\"}"},
					"finish_reason": "stop"
				}],
				"usage": {"prompt_tokens": 1200, "completion_tokens": 300, "total_tokens": 1500}
			}`)
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 1,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "You extract metadata."},
				{Role: "user", Content: "Analyze", ImageURLs: []string{"https://example.com/chart.png"}},
			},
			MaxTokens:      2048,
			ResponseFormat: &ResponseFormat{Type: ResponseFormatJSONObject},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Content != `{"schema_version":"task1_v1"}` {
			t.Errorf("Content = %q", result.Content)
		}
		if result.ModelUsed != "gpt-4o-2024-08-06" {
			t.Errorf("ModelUsed = %q", result.ModelUsed)
		}
		if result.PromptTokens != 1200 || result.TotalTokens != 1500 {
			t.Errorf("tokens = %d/%d, want 1200/1500", result.PromptTokens, result.TotalTokens)
		}

		if body["model"] != "gpt-4o" {
			t.Errorf("model = %v, want gpt-4o", body["model"])
		}
		rf, _ := body["response_format"].(map[string]any)
		if rf["type"] != "json_object" {
			t.Errorf("response_format = %v, want json_object", body["response_format"])
		}
		msgs, _ := body["messages"].([]any)
		if len(msgs) != 2 {
			t.Fatalf("messages = %d, want 2", len(msgs))
		}
		user, _ := msgs[1].(map[string]any)
		parts, _ := user["content"].([]any)
		if len(parts) != 2 {
			t.Fatalf("user content parts = %d, want 2", len(parts))
		}
		img, _ := parts[1].(map[string]any)
		if img["type"] != "image_url" {
			t.Errorf("parts[1].type = %v, want image_url", img["type"])
		}
	})

	t.Run("API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error": {"message": "invalid image", "type": "invalid_request_error"}}`)
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, MaxRetries: 1})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "400") {
			t.Errorf("error = %v, want status 400", err)
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})
}

func TestNewOpenAIClient_Defaults(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	if client.Name() != OpenAIName {
		t.Errorf("Name() = %s, want %s", client.Name(), OpenAIName)
	}
	if client.Model() != openAIDefaultModel {
		t.Errorf("Model() = %s, want %s", client.Model(), openAIDefaultModel)
	}
	if client.RequestsPerSecond() != 5.0 {
		t.Errorf("RequestsPerSecond() = %v, want 5", client.RequestsPerSecond())
	}
}
