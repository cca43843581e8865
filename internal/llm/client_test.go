package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graei/mindcore/internal/config"
)

func testClient(url string) *Client {
	cfg := config.DefaultConfig()
	cfg.Provider.APIKey = "test-key"
	cfg.Provider.BaseURL = url
	return NewClient(cfg)
}

func TestCompleteSendsSystemPrompt(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  hello back  "}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	out, err := c.Complete(context.Background(), "be kind", []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello back" {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(msgs))
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be kind" {
		t.Errorf("unexpected first message %v", first)
	}
}

func TestCompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected http 429 error, got %v", err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestCompleteMissingKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider.APIKey = ""
	c := NewClient(cfg)
	if _, err := c.Complete(context.Background(), "", nil); err == nil {
		t.Error("expected error without api key")
	}
}
