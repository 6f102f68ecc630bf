package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/config"
)

const defaultOllamaURL = "http://localhost:11434"

// ollamaCoach uses the native /api/chat endpoint of a local Ollama server.
type ollamaCoach struct {
	http        *clients.HTTP
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func newOllama(cfg config.Coach, h *clients.HTTP) *ollamaCoach {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.1"
	}
	return &ollamaCoach{
		http:        h,
		baseURL:     base,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens(cfg),
	}
}

func (o *ollamaCoach) generate(ctx context.Context, gaps compare.GapSet) ([]string, error) {
	req := ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: GapLines(gaps)},
		},
		Options: map[string]any{
			"temperature": o.temperature,
			"num_predict": o.maxTokens,
		},
	}
	var out ollamaChatResponse
	if err := o.http.PostJSON(ctx, "ollama chat", o.baseURL+"/api/chat", nil, req, &out); err != nil {
		return nil, err
	}
	if out.Message.Role != "assistant" {
		return nil, fmt.Errorf("%w: unexpected role %q", ErrMalformedResponse, out.Message.Role)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty message", ErrMalformedResponse)
	}
	return splitLines(out.Message.Content), nil
}

func (o *ollamaCoach) close() error {
	o.http.Client().CloseIdleConnections()
	return nil
}
