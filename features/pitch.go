package features

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PitchFrame is one analysis frame of the pitch track.
type PitchFrame struct {
	Start    int     // first sample of the window
	Time     float64 // window centre, seconds
	F0       float64 // Hz, 0 when unvoiced
	Strength float64 // normalized correlation at the chosen lag
	Voiced   bool
}

// pitchTracker estimates f0 per frame with a normalized autocorrelation.
type pitchTracker struct {
	rate      int
	window    int
	hop       int
	minLag    int
	maxLag    int
	nfft      int
	opts      ProsodyOptions
	silenceAt float64
}

func newPitchTracker(rate int, peak float64, opts ProsodyOptions) *pitchTracker {
	r := float64(rate)
	window := int(math.Round(3 / opts.PitchFloor * r))
	pt := &pitchTracker{
		rate:      rate,
		window:    window,
		hop:       max(1, int(math.Round(opts.TimeStep*r))),
		minLag:    max(2, int(math.Floor(r/opts.PitchCeiling))),
		maxLag:    min(window/2, int(math.Ceil(r/opts.PitchFloor))),
		opts:      opts,
		silenceAt: opts.SilenceThreshold * peak,
	}
	n := 1
	for n < 2*window {
		n <<= 1
	}
	pt.nfft = n
	return pt
}

// track runs the tracker over x. Clips shorter than one window yield no
// frames.
func (pt *pitchTracker) track(x []float64) []PitchFrame {
	if len(x) < pt.window || pt.maxLag <= pt.minLag {
		return nil
	}
	var frames []PitchFrame
	for s := 0; s+pt.window <= len(x); s += pt.hop {
		f := pt.frame(x[s : s+pt.window])
		f.Start = s
		f.Time = (float64(s) + float64(pt.window)/2) / float64(pt.rate)
		frames = append(frames, f)
	}
	return frames
}

func (pt *pitchTracker) frame(seg []float64) PitchFrame {
	w := len(seg)

	var mean, energy float64
	for _, v := range seg {
		mean += v
		energy += v * v
	}
	mean /= float64(w)
	rms := math.Sqrt(energy / float64(w))

	buf := make([]float64, pt.nfft)
	for i, v := range seg {
		buf[i] = v - mean
	}
	ac := autocorrelate(buf)

	// prefix energies give both overlap terms of the normalization
	sq := make([]float64, w+1)
	for i := 0; i < w; i++ {
		sq[i+1] = sq[i] + buf[i]*buf[i]
	}
	norm := func(lag int) float64 {
		e1 := sq[w-lag]
		e2 := sq[w] - sq[lag]
		if e1 <= 0 || e2 <= 0 {
			return 0
		}
		return ac[lag] / math.Sqrt(e1*e2)
	}

	lo, hi := pt.minLag-1, pt.maxLag+1
	r := make([]float64, hi-lo+1)
	for lag := lo; lag <= hi; lag++ {
		r[lag-lo] = norm(lag)
	}

	best := PitchFrame{}
	bestScore := math.Inf(-1)
	for lag := pt.minLag; lag <= pt.maxLag; lag++ {
		prev, cur, next := r[lag-1-lo], r[lag-lo], r[lag+1-lo]
		if !(cur > prev && cur >= next) || cur <= 0 {
			continue
		}
		delta, peak := parabolic(prev, cur, next)
		exact := float64(lag) + delta
		score := peak - pt.opts.OctaveCost*math.Log2(pt.opts.PitchFloor*exact/float64(pt.rate))
		if score > bestScore {
			bestScore = score
			best.F0 = float64(pt.rate) / exact
			best.Strength = peak
		}
	}

	best.Voiced = best.F0 > 0 &&
		best.Strength >= pt.opts.VoicingThreshold &&
		rms >= pt.silenceAt &&
		best.F0 >= pt.opts.PitchFloor && best.F0 <= pt.opts.PitchCeiling
	if !best.Voiced {
		best.F0 = 0
	}
	return best
}

// autocorrelate returns the raw linear autocorrelation of x, which must be
// zero padded to at least twice its signal length.
func autocorrelate(x []float64) []float64 {
	spectrum := fft.FFTReal(x)
	for i, c := range spectrum {
		spectrum[i] = c * cmplx.Conj(c)
	}
	inv := fft.IFFT(spectrum)
	out := make([]float64, len(inv))
	for i, c := range inv {
		out[i] = real(c)
	}
	return out
}

// parabolic fits a parabola through three equally spaced points and returns
// the vertex offset from the middle point and its height.
func parabolic(a, b, c float64) (float64, float64) {
	den := a - 2*b + c
	if den == 0 {
		return 0, b
	}
	d := 0.5 * (a - c) / den
	if d > 0.5 || d < -0.5 {
		return 0, b
	}
	return d, b - 0.25*(a-c)*d
}
