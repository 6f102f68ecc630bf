package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Mixdown collapses all channels into one by averaging.
func Mixdown(channels [][]float64) []float64 {
	switch len(channels) {
	case 0:
		return nil
	case 1:
		out := make([]float64, len(channels[0]))
		copy(out, channels[0])
		return out
	}
	n := len(channels[0])
	out := make([]float64, n)
	scale := 1 / float64(len(channels))
	for _, ch := range channels {
		for i := 0; i < n && i < len(ch); i++ {
			out[i] += ch[i] * scale
		}
	}
	return out
}

// Resample converts mono samples from srcRate to dstRate.
func Resample(samples []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate == dstRate || len(samples) == 0 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	out, err := r.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	return out, nil
}
