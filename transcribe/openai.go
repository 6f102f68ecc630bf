package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/maastricht-university/speakidol/audio"
	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/config"
)

// OpenAI transcribes with a Whisper-style /audio/transcriptions endpoint,
// asking for verbose_json so segment timings come back.
type OpenAI struct {
	client   openai.Client
	model    string
	language string
}

func NewOpenAI(cfg config.Transcriber, h *clients.HTTP) *OpenAI {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if h != nil {
		opts = append(opts, option.WithHTTPClient(h.Client()))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model, language: cfg.Language}
}

type verboseTranscript struct {
	Text     string    `json:"text"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

func (o *OpenAI) Transcribe(ctx context.Context, clip *audio.Clip) ([]Segment, error) {
	var buf bytes.Buffer
	if err := audio.EncodeWAV(&buf, clip.Samples, clip.SampleRate); err != nil {
		return nil, err
	}
	params := openai.AudioTranscriptionNewParams{
		File:                   openai.File(&buf, "clip.wav", "audio/wav"),
		Model:                  o.model,
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}
	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcribe: %w", err)
	}

	var vt verboseTranscript
	if raw := resp.RawJSON(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &vt); err != nil {
			return nil, fmt.Errorf("openai transcribe decode: %w", err)
		}
	}
	if len(vt.Segments) > 0 {
		return vt.Segments, nil
	}
	if strings.TrimSpace(resp.Text) == "" {
		return []Segment{}, nil
	}
	end := vt.Duration
	if end == 0 {
		end = clip.Duration()
	}
	return []Segment{{Text: resp.Text, Start: 0, End: end}}, nil
}
