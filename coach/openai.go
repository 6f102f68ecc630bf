package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/config"
)

// openaiCoach calls a chat-completions endpoint. BaseURL lets it target any
// compatible server.
type openaiCoach struct {
	http        *clients.HTTP
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

func newOpenAI(cfg config.Coach, h *clients.HTTP) *openaiCoach {
	opts := []option.RequestOption{
		option.WithHTTPClient(h.Client()),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openaiCoach{
		http:        h,
		client:      openai.NewClient(opts...),
		model:       model,
		maxTokens:   int64(maxTokens(cfg)),
		temperature: cfg.Temperature,
	}
}

func (o *openaiCoach) generate(ctx context.Context, gaps compare.GapSet) ([]string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(GapLines(gaps)),
		},
		MaxTokens: openai.Int(o.maxTokens),
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrMalformedResponse)
	}
	return splitLines(content), nil
}

func (o *openaiCoach) close() error {
	o.http.Client().CloseIdleConnections()
	return nil
}

func maxTokens(cfg config.Coach) int {
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return 120
}
