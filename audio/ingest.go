package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/speakidol/config"
)

// Options controls Preprocess.
type Options struct {
	SampleRate      int     // target rate, Hz
	PauseThreshold  float64 // seconds; pauses strictly longer than this are removed
	KeepSilence     float64 // seconds of guard kept around each segment
	SilenceOffsetDB float64 // silence threshold relative to the clip's dBFS
	HeadroomDB      float64 // peak normalization headroom
}

func DefaultOptions() Options {
	return Options{
		SampleRate:      16000,
		PauseThreshold:  0.25,
		KeepSilence:     0.1,
		SilenceOffsetDB: 16,
		HeadroomDB:      0.1,
	}
}

// OptionsFrom takes the configured values; unset ones keep their defaults.
func OptionsFrom(cfg config.Audio) Options {
	o := DefaultOptions()
	if cfg.SampleRate > 0 {
		o.SampleRate = cfg.SampleRate
	}
	if cfg.PauseThreshold > 0 {
		o.PauseThreshold = cfg.PauseThreshold
	}
	if cfg.KeepSilence > 0 {
		o.KeepSilence = cfg.KeepSilence
	}
	if cfg.SilenceOffsetDB > 0 {
		o.SilenceOffsetDB = cfg.SilenceOffsetDB
	}
	if cfg.HeadroomDB > 0 {
		o.HeadroomDB = cfg.HeadroomDB
	}
	return o
}

// Preprocessor cleans raw recordings and writes them into OutDir.
type Preprocessor struct {
	Opts   Options
	OutDir string
	Log    logrus.FieldLogger
}

func NewPreprocessor(opts Options, outDir string, log logrus.FieldLogger) *Preprocessor {
	if log == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		log = l
	}
	return &Preprocessor{Opts: opts, OutDir: outDir, Log: log}
}

// CleanPath is where the cleaned version of src is written.
func (p *Preprocessor) CleanPath(src string) string {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(p.OutDir, stem+"_clean.wav")
}

// Preprocess decodes src, converts it to mono at the target rate, normalizes
// its peak, removes long pauses and writes the result into OutDir.
func (p *Preprocessor) Preprocess(src string) (*Clip, error) {
	dec, err := ReadWAVFile(src)
	if err != nil {
		return nil, err
	}
	if dec.Frames() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, src)
	}

	mono := Mixdown(dec.Channels)
	rs, err := Resample(mono, dec.SampleRate, p.Opts.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("%w: %s resampled to nothing", ErrEmpty, src)
	}

	Normalize(rs, p.Opts.HeadroomDB)
	cleaned := p.trim(rs)

	clip := &Clip{Samples: cleaned, SampleRate: p.Opts.SampleRate}
	if p.OutDir != "" {
		if err := os.MkdirAll(p.OutDir, 0o755); err != nil {
			return nil, err
		}
		clip.Path = p.CleanPath(src)
		if err := WriteWAVFile(clip.Path, clip.Samples, clip.SampleRate); err != nil {
			return nil, err
		}
	}

	p.Log.WithFields(logrus.Fields{
		"src":         src,
		"in_rate":     dec.SampleRate,
		"in_chans":    len(dec.Channels),
		"in_seconds":  float64(dec.Frames()) / float64(dec.SampleRate),
		"out_seconds": clip.Duration(),
	}).Debug("preprocessed clip")
	return clip, nil
}

// trim drops pauses. A clip that is silence throughout is returned untouched
// so its duration survives.
func (p *Preprocessor) trim(x []float64) []float64 {
	rate := float64(p.Opts.SampleRate)
	minLen := int(math.Round(p.Opts.PauseThreshold*rate)) + 1
	guard := int(math.Round(p.Opts.KeepSilence * rate))
	step := max(1, p.Opts.SampleRate/1000)

	level := DBFS(RMS(x))
	if math.IsInf(level, -1) {
		return x
	}
	thresh := fromDB(level - p.Opts.SilenceOffsetDB)

	chunks := SplitOnSilence(x, minLen, step, guard, thresh)
	if len(chunks) == 0 {
		return x
	}
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]float64, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Normalize scales x in place so that its peak sits headroomDB below full
// scale. Silent input is left alone.
func Normalize(x []float64, headroomDB float64) {
	peak := Peak(x)
	if peak == 0 {
		return
	}
	gain := fromDB(-headroomDB) / peak
	for i := range x {
		x[i] *= gain
	}
}

// Load decodes path into a mono clip at rate without any cleaning.
func Load(path string, rate int) (*Clip, error) {
	dec, err := ReadWAVFile(path)
	if err != nil {
		return nil, err
	}
	if dec.Frames() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	rs, err := Resample(Mixdown(dec.Channels), dec.SampleRate, rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return &Clip{Samples: rs, SampleRate: rate, Path: path}, nil
}
