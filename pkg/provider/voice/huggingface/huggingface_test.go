package huggingface

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
)

// TestSynthesize checks audio and error payload handling.
func TestSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good/model":
			w.Header().Set("Content-Type", "audio/flac")
			_, _ = io.WriteString(w, "fLaC....")
		case "/json/model":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"error":"bad input"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	good, _ := New("hf", WithBaseURL(srv.URL), WithModel("good/model"))
	blob, err := good.Synthesize(context.Background(), "hi", voice.Profile{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if blob.MIMEType != "audio/flac" || string(blob.Data) != "fLaC...." {
		t.Errorf("unexpected blob %s %q", blob.MIMEType, blob.Data)
	}

	jsonResp, _ := New("hf", WithBaseURL(srv.URL), WithModel("json/model"))
	if _, err := jsonResp.Synthesize(context.Background(), "hi", voice.Profile{}); !errors.Is(err, provider.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}

	missing, _ := New("hf", WithBaseURL(srv.URL), WithModel("missing/model"))
	if _, err := missing.Synthesize(context.Background(), "hi", voice.Profile{}); provider.StatusCodeOf(err) != 404 {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestAudioMIME(t *testing.T) {
	tests := map[string]string{
		"":                         defaultAudioMIME,
		"audio/wav":                "audio/wav",
		"audio/mpeg; charset=x":    "audio/mpeg",
		"application/octet-stream": defaultAudioMIME,
		"application/json":         "",
	}
	for in, want := range tests {
		if got := audioMIME(in); got != want {
			t.Errorf("audioMIME(%q) = %q, want %q", in, got, want)
		}
	}
}
