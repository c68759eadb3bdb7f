package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
)

func completionBody(content string) string {
	return fmt.Sprintf(`{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": %q}}]
}`, content)
}

// TestGenerate_Success checks that a completion is returned as a ChatCompletion.
func TestGenerate_Success(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody(`{"text":"hi"}`))
	}))
	defer srv.Close()

	p, err := New("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := p.Generate(context.Background(), text.Prompt{System: "sys", User: "hello", Temperature: 0.7})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	cc, ok := resp.(provider.ChatCompletion)
	if !ok {
		t.Fatalf("expected ChatCompletion, got %T", resp)
	}
	if cc.Content != `{"text":"hi"}` || cc.FinishReason != "stop" || cc.Model != "gpt-4o-mini" {
		t.Errorf("unexpected completion: %+v", cc)
	}
	if !strings.Contains(gotBody, `"temperature":0.7`) || !strings.Contains(gotBody, `"system"`) {
		t.Errorf("request body missing fields: %s", gotBody)
	}
}

// TestGenerate_RateLimited checks 429 mapping and that the SDK does not retry.
func TestGenerate_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "4")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	p, _ := NewGroq("gsk-test", "llama-3.1-8b-instant", WithBaseURL(srv.URL))
	_, err := p.Generate(context.Background(), text.Prompt{User: "x"})

	var se *provider.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *provider.StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != 429 || se.RetryAfter != 4*time.Second || se.Provider != "groq" {
		t.Errorf("unexpected StatusError: %+v", se)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

// TestGenerate_EmptyContent checks that a blank answer is ErrEmptyResponse.
func TestGenerate_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("   "))
	}))
	defer srv.Close()

	p, _ := New("sk-test", "gpt-4o-mini", WithBaseURL(srv.URL))
	_, err := p.Generate(context.Background(), text.Prompt{User: "x"})
	if !errors.Is(err, provider.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "m"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := New("k", ""); err == nil {
		t.Error("expected error for empty model")
	}
	p, _ := NewGroq("k", "m")
	if p.name != "groq" || p.Limits().MaxInputChars != 12_000 {
		t.Errorf("unexpected groq defaults: name=%s limits=%+v", p.name, p.Limits())
	}
}
