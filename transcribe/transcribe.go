// Package transcribe turns a clip into timed text segments. The pipeline
// depends only on the Transcriber interface; backends are picked by name.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maastricht-university/speakidol/audio"
	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/config"
)

type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"` // sec
	End   float64 `json:"end"`   // sec
}

type Transcriber interface {
	Transcribe(ctx context.Context, clip *audio.Clip) ([]Segment, error)
}

// Join concatenates segment texts with single spaces, in order. No segments
// is an empty transcript.
func Join(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// New returns the backend named by cfg.Backend: "service" posts to the ASR
// service at svc.URL, "openai" calls a Whisper-compatible API.
func New(cfg config.Transcriber, svc config.Service, h *clients.HTTP) (Transcriber, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "service":
		if svc.URL == "" {
			return nil, fmt.Errorf("transcribe: services.asr.url is required")
		}
		return &Service{HTTP: h, URL: svc.URL, Language: cfg.Language}, nil
	case "openai":
		return NewOpenAI(cfg, h), nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q", cfg.Backend)
	}
}

// Service is the HTTP ASR service backend.
type Service struct {
	HTTP     *clients.HTTP
	URL      string
	Language string
}

func (s *Service) Transcribe(ctx context.Context, clip *audio.Clip) ([]Segment, error) {
	path, cleanup, err := onDisk(clip)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	resp, err := s.HTTP.ASR(ctx, s.URL, path, s.Language)
	if err != nil {
		return nil, err
	}
	segs := make([]Segment, 0, len(resp.Segments))
	for _, sg := range resp.Segments {
		segs = append(segs, Segment{Text: sg.Text, Start: sg.Start, End: sg.End})
	}
	return segs, nil
}

// onDisk returns a WAV path for clip, writing a temporary file when the clip
// has not been written yet.
func onDisk(clip *audio.Clip) (string, func(), error) {
	if clip.Path != "" {
		return clip.Path, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "speakidol-asr-")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "clip.wav")
	if err := audio.WriteWAVFile(path, clip.Samples, clip.SampleRate); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	return path, func() { _ = os.RemoveAll(dir) }, nil
}
