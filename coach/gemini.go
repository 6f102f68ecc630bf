package coach

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/config"
)

type geminiCoach struct {
	http   *clients.HTTP
	client *genai.Client
	model  string
	cfg    *genai.GenerateContentConfig
}

func newGemini(ctx context.Context, cfg config.Coach, h *clients.HTTP) (*geminiCoach, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: h.Client(),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		MaxOutputTokens:   int32(maxTokens(cfg)),
	}
	if cfg.Temperature > 0 {
		gc.Temperature = genai.Ptr(float32(cfg.Temperature))
	}
	return &geminiCoach{http: h, client: client, model: model, cfg: gc}, nil
}

func (g *geminiCoach) generate(ctx context.Context, gaps compare.GapSet) ([]string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(GapLines(gaps)), g.cfg)
	if err != nil {
		return nil, fmt.Errorf("genai generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty candidate", ErrMalformedResponse)
	}
	return splitLines(text), nil
}

func (g *geminiCoach) close() error {
	g.http.Client().CloseIdleConnections()
	return nil
}
