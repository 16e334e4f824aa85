package assistant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/whatease/backend/internal/config"
	"github.com/whatease/backend/internal/service/assistant"
)

func bridgeConfig(baseURL string) config.AssistantConfig {
	return config.AssistantConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "llama-3.1-8b-instant",
		MaxTokens:   150,
		Temperature: 0.7,
		Timeout:     2 * time.Second,
		Identity:    "whatease@bot.local",
	}
}

func completionsStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestBridgeReply(t *testing.T) {
	var gotPrompt string
	server := completionsStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) == 2 {
			gotPrompt = req.Messages[1].Content
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hi there"}},
			},
		})
	})

	cache := assistant.NewContextCache()
	bridge := assistant.NewBridge(bridgeConfig(server.URL), cache)

	reply := bridge.Reply(context.Background(), "a@x.com", "hello")
	if reply != "hi there" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if !strings.Contains(gotPrompt, "User: hello") || !strings.HasSuffix(gotPrompt, "Bot:") {
		t.Fatalf("unexpected prompt: %q", gotPrompt)
	}

	window := cache.Window("a@x.com")
	if len(window) != 2 || window[0] != "hello" || window[1] != "hi there" {
		t.Fatalf("unexpected window: %v", window)
	}
}

func TestBridgePromptLabelsParity(t *testing.T) {
	var gotPrompt string
	server := completionsStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			gotPrompt = req.Messages[1].Content
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	})

	cache := assistant.NewContextCache()
	cache.Add("a@x.com", "first question")
	cache.Add("a@x.com", "first answer")
	bridge := assistant.NewBridge(bridgeConfig(server.URL), cache)

	bridge.Reply(context.Background(), "a@x.com", "second question")

	wantLines := []string{
		"User: first question",
		"Bot: first answer",
		"User: second question",
		"User: second question",
		"Bot:",
	}
	for _, line := range wantLines {
		if !strings.Contains(gotPrompt, line) {
			t.Fatalf("prompt missing %q:\n%s", line, gotPrompt)
		}
	}
}

func TestBridgeUpstreamAPIError(t *testing.T) {
	server := completionsStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit reached",
				"type":    "rate_limit_error",
			},
		})
	})

	cache := assistant.NewContextCache()
	bridge := assistant.NewBridge(bridgeConfig(server.URL), cache)

	reply := bridge.Reply(context.Background(), "a@x.com", "hello")
	if !strings.Contains(reply, "API Error") || !strings.Contains(reply, "rate limit reached") {
		t.Fatalf("expected upstream message in fallback, got %q", reply)
	}

	// The fallback still lands in the context window.
	window := cache.Window("a@x.com")
	if len(window) != 2 || window[1] != reply {
		t.Fatalf("fallback not cached: %v", window)
	}
}

func TestBridgeUnreachableUpstream(t *testing.T) {
	cache := assistant.NewContextCache()
	// Closed port: the request fails before any HTTP exchange.
	bridge := assistant.NewBridge(bridgeConfig("http://127.0.0.1:1"), cache)

	reply := bridge.Reply(context.Background(), "a@x.com", "hello")
	if !strings.Contains(reply, "Request Error") {
		t.Fatalf("expected request error fallback, got %q", reply)
	}
}

func TestBridgeEmptyChoices(t *testing.T) {
	server := completionsStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	bridge := assistant.NewBridge(bridgeConfig(server.URL), assistant.NewContextCache())

	reply := bridge.Reply(context.Background(), "a@x.com", "hello")
	if reply != "Sorry, I couldn't understand that." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}
