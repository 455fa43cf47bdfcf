package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionBody(content string) string {
	msg, _ := json.Marshal(content)
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion","created":1,"model":"mistral:7b","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, msg)
}

func TestClientTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if req.Messages[1].Content != "Translate from English to Hindi: hello" {
			t.Fatalf("unexpected user prompt: %q", req.Messages[1].Content)
		}
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Fatalf("expected temperature 0, got %v", req.Temperature)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("नमस्ते"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "mistral:7b", time.Second)
	got, err := client.Translate(context.Background(), "hello", "English", "Hindi")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "नमस्ते" {
		t.Fatalf("unexpected translation: %q", got)
	}
}

func TestClientTranslateKeepsFirstNonEmptyLine(t *testing.T) {
	raw := "\n\nनमस्ते\nThat is how you greet someone in Hindi."
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(raw))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "mistral:7b", time.Second)
	got, err := client.Translate(context.Background(), "hello", "English", "Hindi")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "नमस्ते" {
		t.Fatalf("expected first non-empty line, got %q", got)
	}
	if got == raw {
		t.Fatal("raw multi-line response leaked through")
	}
}

func TestClientTranslateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"model not loaded","type":"server_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "mistral:7b", time.Second)
	if _, err := client.Translate(context.Background(), "hello", "English", "Hindi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClientTranslateEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("  \n\n  "))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "mistral:7b", time.Second)
	if _, err := client.Translate(context.Background(), "hello", "English", "Hindi"); err == nil {
		t.Fatal("expected error for an empty completion")
	}
}

func TestClientTranslateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"mistral:7b","choices":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "mistral:7b", time.Second)
	if _, err := client.Translate(context.Background(), "hello", "English", "Hindi"); err == nil {
		t.Fatal("expected error for a response with no choices")
	}
}

func TestClientTranslateTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, "", "mistral:7b", time.Second)
	if _, err := client.Translate(context.Background(), "hello", "English", "Hindi"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestClientSetsAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected Authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("hola"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", "mistral:7b", time.Second)
	if _, err := client.Translate(context.Background(), "hello", "English", "Spanish"); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
}

func TestClientTranslateContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and can
		// observe the client disconnect; otherwise r.Context() is never
		// cancelled and the deferred server.Close() deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "mistral:7b", time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Translate(ctx, "hello", "English", "Hindi"); err == nil {
		t.Fatal("expected timeout error")
	}
}
