package features

import "math"

// Perturbation tolerances for jitter and shimmer.
const (
	shortestPeriod   = 0.0001 // s
	longestPeriod    = 0.02   // s
	maxPeriodFactor  = 1.3
	maxAmplitudeFact = 1.6
)

type pulse struct {
	t   float64 // seconds
	amp float64
	run int // voiced run the pulse belongs to
}

// findPulses places one glottal pulse per period inside each voiced run of
// frames. Within a run pulses share the polarity of the first one and each
// next pulse is searched between 0.8 and 1.2 local periods after the
// previous.
func findPulses(x []float64, rate int, frames []PitchFrame, window int) []pulse {
	var out []pulse
	run := 0
	for i := 0; i < len(frames); {
		if !frames[i].Voiced {
			i++
			continue
		}
		j := i
		for j < len(frames) && frames[j].Voiced {
			j++
		}
		out = append(out, pulsesInRun(x, rate, frames[i:j], window, run)...)
		run++
		i = j
	}
	return out
}

func pulsesInRun(x []float64, rate int, run []PitchFrame, window, id int) []pulse {
	start := run[0].Start
	end := min(len(x), run[len(run)-1].Start+window)
	if end <= start {
		return nil
	}
	hop := 1
	if len(run) > 1 {
		hop = max(1, run[1].Start-run[0].Start)
	}
	period := func(p int) float64 {
		k := (p - start - window/2) / hop
		k = max(0, min(len(run)-1, k))
		return float64(rate) / run[k].F0
	}

	// seed at the largest excursion within the first period
	t0 := int(math.Round(period(start)))
	seed := start
	for i := start; i < min(end, start+t0); i++ {
		if math.Abs(x[i]) > math.Abs(x[seed]) {
			seed = i
		}
	}
	sign := 1.0
	if x[seed] < 0 {
		sign = -1
	}

	var out []pulse
	p := seed
	for {
		out = append(out, pulse{t: refine(x, p, rate), amp: math.Abs(x[p]), run: id})
		t := period(p)
		lo := p + int(math.Round(0.8*t))
		hi := p + int(math.Round(1.2*t))
		if lo >= end {
			break
		}
		hi = min(hi, end-1)
		next := lo
		for i := lo; i <= hi; i++ {
			if sign*x[i] > sign*x[next] {
				next = i
			}
		}
		if next <= p {
			break
		}
		p = next
	}
	return out
}

// refine returns the sub-sample time of the extremum at p, in seconds.
func refine(x []float64, p, rate int) float64 {
	if p <= 0 || p >= len(x)-1 {
		return float64(p) / float64(rate)
	}
	d, _ := parabolic(x[p-1], x[p], x[p+1])
	return (float64(p) + d) / float64(rate)
}

func validPeriod(p float64) bool {
	return p >= shortestPeriod && p <= longestPeriod
}

func ratioWithin(a, b, factor float64) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	return math.Max(a, b)/math.Min(a, b) <= factor
}

// localJitter is the mean absolute difference between consecutive periods
// divided by the mean period. NaN when fewer than two usable periods exist.
func localJitter(ps []pulse) float64 {
	var periods []float64
	var sumDiff, sumPeriod float64
	var nDiff, nPeriod int
	for i := 0; i+1 < len(ps); i++ {
		if ps[i].run != ps[i+1].run {
			periods = periods[:0]
			continue
		}
		p := ps[i+1].t - ps[i].t
		if !validPeriod(p) {
			periods = periods[:0]
			continue
		}
		sumPeriod += p
		nPeriod++
		if n := len(periods); n > 0 && ratioWithin(periods[n-1], p, maxPeriodFactor) {
			sumDiff += math.Abs(p - periods[n-1])
			nDiff++
		}
		periods = append(periods, p)
	}
	if nDiff == 0 || nPeriod < 2 {
		return math.NaN()
	}
	return (sumDiff / float64(nDiff)) / (sumPeriod / float64(nPeriod))
}

// localShimmer is the mean absolute difference between the amplitudes of
// consecutive pulses divided by the mean amplitude.
func localShimmer(ps []pulse) float64 {
	var sumDiff, sumAmp float64
	var nDiff, nAmp int
	for i := 0; i+1 < len(ps); i++ {
		a, b := ps[i], ps[i+1]
		if a.run != b.run || !validPeriod(b.t-a.t) {
			continue
		}
		if i+2 < len(ps) && ps[i+2].run == a.run {
			if !ratioWithin(b.t-a.t, ps[i+2].t-b.t, maxPeriodFactor) {
				continue
			}
		}
		sumAmp += a.amp
		nAmp++
		if ratioWithin(a.amp, b.amp, maxAmplitudeFact) {
			sumDiff += math.Abs(a.amp - b.amp)
			nDiff++
		}
	}
	if nDiff < 2 || nAmp == 0 {
		return math.NaN()
	}
	return (sumDiff / float64(nDiff)) / (sumAmp / float64(nAmp))
}
