package persona

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/speakidol/audio"
	"github.com/maastricht-university/speakidol/features"
)

// Segment counting follows the usual onset-splitter framing: 2048-sample
// frames, 512 hop, 60 dB below peak counts as silence.
const (
	segFrame = 2048
	segHop   = 512
	segTopDB = 60
)

// EmbedFunc returns the voice embedding of a WAV file.
type EmbedFunc func(ctx context.Context, wavPath string) ([]float64, error)

// Builder is the offline batch that turns one reference recording per
// persona into a Profile.
type Builder struct {
	Store      Store
	Embed      EmbedFunc // optional; profiles get no embedding without it
	Prosody    features.ProsodyOptions
	SampleRate int
	Version    string
	Log        logrus.FieldLogger
}

// BuildDir builds a profile for every *.wav in dir and stores it. The id is
// the lower-cased file stem.
func (b *Builder) BuildDir(ctx context.Context, dir string) ([]*Profile, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("persona: no .wav files in %s", dir)
	}
	sort.Strings(paths)

	out := make([]*Profile, 0, len(paths))
	for _, p := range paths {
		prof, err := b.Build(ctx, p)
		if err != nil {
			return out, fmt.Errorf("persona %s: %w", filepath.Base(p), err)
		}
		if err := b.Store.Put(ctx, prof); err != nil {
			return out, fmt.Errorf("persona %s: store: %w", prof.ID, err)
		}
		b.log().WithFields(logrus.Fields{
			"persona":    prof.ID,
			"mean_pitch": prof.Prosody.MeanPitch,
			"wpm":        prof.Prosody.WPM,
			"embed_dims": len(prof.Embedding),
		}).Info("persona built")
		out = append(out, prof)
	}
	return out, nil
}

// Build computes one profile without storing it.
func (b *Builder) Build(ctx context.Context, wavPath string) (*Profile, error) {
	rate := b.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	clip, err := audio.Load(wavPath, rate)
	if err != nil {
		return nil, err
	}

	prof := &Profile{
		ID:      NormalizeID(strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))),
		Version: b.version(),
		Audio:   wavPath,
	}

	pm := features.ProsodyMetrics(clip, b.Prosody)
	if mp := pm[features.MeanPitch]; !math.IsNaN(mp) {
		prof.Prosody.MeanPitch = mp
	} else {
		b.log().WithField("persona", prof.ID).Warn("no voiced frames; mean_pitch left at 0")
	}
	if d := clip.Duration(); d > 0 {
		segs := audio.SplitTopDB(clip.Samples, segFrame, segHop, segTopDB)
		prof.Prosody.WPM = float64(len(segs)) / (d / 60)
	}

	if b.Embed != nil {
		vec, err := b.Embed(ctx, wavPath)
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		prof.Embedding = vec
	}
	return prof, nil
}

func (b *Builder) version() string {
	if b.Version != "" {
		return b.Version
	}
	return time.Now().UTC().Format("20060102T150405Z")
}

func (b *Builder) log() logrus.FieldLogger {
	if b.Log != nil {
		return b.Log
	}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return l
}
