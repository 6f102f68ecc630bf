// Package audio turns uploaded recordings into clean, analysis-ready clips:
// mono, fixed sample rate, peak-normalized, with long pauses removed.
package audio

import (
	"errors"
	"math"
)

var (
	// ErrUnreadable is returned when the source cannot be opened or decoded.
	ErrUnreadable = errors.New("audio: unreadable source")
	// ErrEmpty is returned when the source decodes to zero frames.
	ErrEmpty = errors.New("audio: no audio frames")
)

// Clip is a finite single-channel waveform. Samples are in [-1, 1].
// Path is the on-disk location of the clip when it has been written.
type Clip struct {
	Samples    []float64
	SampleRate int
	Path       string
}

// Duration in seconds. A clip with no samples has zero duration.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Peak returns the largest absolute sample value.
func Peak(x []float64) float64 {
	p := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > p {
			p = a
		}
	}
	return p
}

// RMS of x; zero for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s / float64(len(x)))
}

// DBFS converts a linear amplitude to decibels relative to full scale.
// Zero maps to -Inf.
func DBFS(amp float64) float64 {
	if amp <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(amp)
}

func fromDB(db float64) float64 { return math.Pow(10, db/20) }
