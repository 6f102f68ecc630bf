package coach

import (
	"context"
	"errors"
	"fmt"

	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/config"
)

// localNewTokens bounds the seq2seq model's output.
const localNewTokens = 60

// localCoach drives a self-hosted text2text model behind an inference
// server speaking the Hugging Face {inputs, parameters} protocol.
type localCoach struct {
	http  *clients.HTTP
	url   string
	model string
}

type localReq struct {
	Inputs     string      `json:"inputs"`
	Parameters localParams `json:"parameters"`
	Model      string      `json:"model,omitempty"`
}

type localParams struct {
	MaxNewTokens int `json:"max_new_tokens"`
}

type localGen struct {
	GeneratedText string `json:"generated_text"`
}

func newLocal(cfg config.Coach, h *clients.HTTP) (*localCoach, error) {
	url := cfg.URL
	if url == "" {
		url = cfg.BaseURL
	}
	if url == "" {
		return nil, errors.New("coach.url is required")
	}
	model := cfg.Model
	if model == "" {
		model = "google/flan-t5-base"
	}
	return &localCoach{http: h, url: url, model: model}, nil
}

func (l *localCoach) generate(ctx context.Context, gaps compare.GapSet) ([]string, error) {
	req := localReq{
		Inputs:     Prompt(gaps),
		Parameters: localParams{MaxNewTokens: localNewTokens},
		Model:      l.model,
	}
	var out []localGen
	if err := l.http.PostJSON(ctx, "local coach", l.url, nil, req, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no generations", ErrMalformedResponse)
	}
	return splitLines(out[0].GeneratedText), nil
}

func (l *localCoach) close() error {
	l.http.Client().CloseIdleConnections()
	return nil
}
