package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/maastricht-university/speakidol/audio"
	"github.com/maastricht-university/speakidol/config"
)

// ProsodyOptions tunes the pitch tracker and the perturbation measures.
type ProsodyOptions struct {
	PitchFloor       float64 // Hz
	PitchCeiling     float64 // Hz
	TimeStep         float64 // seconds between frames
	VoicingThreshold float64 // minimum normalized correlation for a voiced frame
	SilenceThreshold float64 // minimum frame RMS as a fraction of the clip peak
	OctaveCost       float64 // per-octave preference for higher f0 candidates
}

func DefaultProsodyOptions() ProsodyOptions {
	return ProsodyOptions{
		PitchFloor:       75,
		PitchCeiling:     500,
		TimeStep:         0.01,
		VoicingThreshold: 0.45,
		SilenceThreshold: 0.03,
		OctaveCost:       0.01,
	}
}

// ProsodyOptionsFrom fills zero fields of cfg with defaults.
func ProsodyOptionsFrom(cfg config.Prosody) ProsodyOptions {
	o := DefaultProsodyOptions()
	if cfg.PitchFloor > 0 {
		o.PitchFloor = cfg.PitchFloor
	}
	if cfg.PitchCeiling > 0 {
		o.PitchCeiling = cfg.PitchCeiling
	}
	if cfg.TimeStep > 0 {
		o.TimeStep = cfg.TimeStep
	}
	if cfg.VoicingThreshold > 0 {
		o.VoicingThreshold = cfg.VoicingThreshold
	}
	if cfg.SilenceThreshold > 0 {
		o.SilenceThreshold = cfg.SilenceThreshold
	}
	if cfg.OctaveCost > 0 {
		o.OctaveCost = cfg.OctaveCost
	}
	return o
}

// ProsodyMetrics computes duration, pitch statistics and local jitter and
// shimmer for clip. Metrics that need voiced speech are NaN when none is
// found.
func ProsodyMetrics(clip *audio.Clip, opts ProsodyOptions) MetricSet {
	ms := MetricSet{
		Duration:  0,
		MeanPitch: math.NaN(),
		PitchIQR:  math.NaN(),
		Jitter:    math.NaN(),
		Shimmer:   math.NaN(),
	}
	if clip == nil || clip.SampleRate <= 0 || len(clip.Samples) == 0 {
		return ms
	}
	ms[Duration] = clip.Duration()

	pt := newPitchTracker(clip.SampleRate, audio.Peak(clip.Samples), opts)
	frames := pt.track(clip.Samples)

	var f0 []float64
	for _, f := range frames {
		if f.Voiced {
			f0 = append(f0, f.F0)
		}
	}
	if len(f0) == 0 {
		return ms
	}
	sort.Float64s(f0)
	ms[MeanPitch] = stat.Mean(f0, nil)
	ms[PitchIQR] = stat.Quantile(0.75, stat.Empirical, f0, nil) -
		stat.Quantile(0.25, stat.Empirical, f0, nil)

	pulses := findPulses(clip.Samples, clip.SampleRate, frames, pt.window)
	ms[Jitter] = localJitter(pulses)
	ms[Shimmer] = localShimmer(pulses)
	return ms
}
