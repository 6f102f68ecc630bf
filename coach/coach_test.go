package coach

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/config"
)

var sampleGaps = compare.GapSet{
	{Metric: "hedge_pct", Value: 1},
	{Metric: "wpm", Value: -1},
	{Metric: "pitch_IQR_Hz", Value: -0.5},
}

const reply = "Here are your tips:\n1. Slow down a little.\n\n- Use fewer fillers like \"just\".\n• Vary your pitch more.\n4) Breathe."

func TestClean(t *testing.T) {
	got := Clean(splitLines(reply))
	want := []string{
		"Here are your tips:",
		"Slow down a little.",
		"Use fewer fillers like \"just\".",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Clean = %q, want %q", got, want)
	}

	got = Clean([]string{"  ", "1. ", "2) Pause between ideas", "-"})
	if !reflect.DeepEqual(got, []string{"Pause between ideas"}) {
		t.Fatalf("Clean = %q", got)
	}
}

func TestGapLines(t *testing.T) {
	want := "hedge_pct: 1.00\nwpm: -1.00\npitch_IQR_Hz: -0.50"
	if got := GapLines(sampleGaps); got != want {
		t.Fatalf("GapLines = %q", got)
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New(context.Background(), config.Coach{Strategy: "telepathy"}, nil)
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("got %v", err)
	}
}

func TestRESTRequiresURL(t *testing.T) {
	if _, err := New(context.Background(), config.Coach{Strategy: REST}, nil); err == nil {
		t.Fatal("expected an error without coach.url")
	}
}

func TestEmptyGapsSkipBackend(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"tips":["x"]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: REST, URL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	tips, err := c.Advise(context.Background(), compare.GapSet{})
	if err != nil {
		t.Fatal(err)
	}
	if tips == nil || len(tips) != 0 {
		t.Fatalf("tips = %#v, want empty", tips)
	}
	if calls.Load() != 0 {
		t.Fatal("backend called for an empty gap set")
	}
}

func TestREST(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req restReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !strings.Contains(req.Prompt, "wpm: -1.00") {
			http.Error(w, "bad prompt", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"tips":["1. One","- Two","","Three","Four"]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: REST, URL: srv.URL, AuthToken: "s3cret"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tips, err := c.Advise(context.Background(), sampleGaps)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tips, []string{"One", "Two", "Three"}) {
		t.Fatalf("tips = %q", tips)
	}
}

func TestBackendFailures(t *testing.T) {
	cases := []struct {
		name      string
		handler   http.HandlerFunc
		malformed bool
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}, false},
		{"body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}, true},
		{"shape", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"tips":"one string"}`))
		}, true},
		{"empty object", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}, true},
		{"error object", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
		}, true},
	}
	for _, strategy := range []string{REST, Ollama} {
		for _, tc := range cases {
			t.Run(strategy+"/"+tc.name, func(t *testing.T) {
				srv := httptest.NewServer(tc.handler)
				defer srv.Close()

				c, err := New(context.Background(), config.Coach{Strategy: strategy, URL: srv.URL, BaseURL: srv.URL}, nil)
				if err != nil {
					t.Fatal(err)
				}
				tips, err := c.Advise(context.Background(), sampleGaps)
				if err == nil {
					t.Fatalf("expected error, got tips %q", tips)
				}
				if got := errors.Is(err, ErrMalformedResponse); got != tc.malformed {
					t.Fatalf("malformed = %v for %v", got, err)
				}
			})
		}
	}
}

func TestRESTEmptyTipsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tips":[]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: REST, URL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tips, err := c.Advise(context.Background(), sampleGaps)
	if err != nil || len(tips) != 0 {
		t.Fatalf("tips = %q, err = %v", tips, err)
	}
}

func TestEmptyModelOutput(t *testing.T) {
	cases := []struct {
		strategy string
		body     string
	}{
		{OpenAI, `{"id":"chatcmpl-1","object":"chat.completion","created":0,"model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  "}}]}`},
		{Gemini, `{"candidates":[{"content":{"role":"model","parts":[{"text":""}]},"finishReason":"STOP"}]}`},
		{Ollama, `{"model":"llama3.1","message":{"role":"assistant","content":""},"done":true}`},
	}
	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, err := New(context.Background(), config.Coach{Strategy: tc.strategy, APIKey: "test", BaseURL: srv.URL}, nil)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.Advise(context.Background(), sampleGaps); !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("got %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: REST, URL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Advise(context.Background(), sampleGaps); err == nil {
		t.Fatal("expected a timeout")
	}
}

func TestOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/api/chat" || req.Stream || req.Model != "llama3.1" || len(req.Messages) != 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   req.Model,
			Message: ollamaMessage{Role: "assistant", Content: reply},
			Done:    true,
		})
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: Ollama, BaseURL: srv.URL, Temperature: 0.3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tips, err := c.Advise(context.Background(), sampleGaps)
	if err != nil {
		t.Fatal(err)
	}
	if len(tips) != 3 || tips[1] != "Slow down a little." {
		t.Fatalf("tips = %q", tips)
	}
}

func TestLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req localReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Parameters.MaxNewTokens != localNewTokens || !strings.HasPrefix(req.Inputs, "You are a concise speech coach.") {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[{"generated_text":"- Speak up\n- Smile"}]`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: Local, URL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tips, err := c.Advise(context.Background(), sampleGaps)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tips, []string{"Speak up", "Smile"}) {
		t.Fatalf("tips = %q", tips)
	}
}

func TestLocalEmptyGenerations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: Local, URL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Advise(context.Background(), sampleGaps); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("got %v", err)
	}
}

func TestOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["model"] != "gpt-4o-mini" || req["max_tokens"] != float64(120) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "1. Pause more\n2. Smile"},
			}},
		})
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: OpenAI, APIKey: "test", BaseURL: srv.URL, MaxTokens: 120}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tips, err := c.Advise(context.Background(), sampleGaps)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tips, []string{"Pause more", "Smile"}) {
		t.Fatalf("tips = %q", tips)
	}
}

func TestGemini(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"* Slow down\n* Lower your pitch"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), config.Coach{Strategy: Gemini, APIKey: "test", BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tips, err := c.Advise(context.Background(), sampleGaps)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tips, []string{"Slow down", "Lower your pitch"}) {
		t.Fatalf("tips = %q", tips)
	}
}
