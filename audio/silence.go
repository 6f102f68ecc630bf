package audio

// Span is a half-open sample range [Start, End).
type Span struct {
	Start, End int
}

func (s Span) Len() int { return s.End - s.Start }

// DetectSilence returns the runs of audio whose RMS, measured over a sliding
// window of minLen samples moved step samples at a time, stays at or below
// thresh. Only runs at least minLen long are reported.
func DetectSilence(x []float64, minLen, step int, thresh float64) []Span {
	if minLen <= 0 || len(x) < minLen {
		return nil
	}
	if step <= 0 {
		step = 1
	}

	// prefix sums of squares so every window RMS is O(1)
	sq := make([]float64, len(x)+1)
	for i, v := range x {
		sq[i+1] = sq[i] + v*v
	}
	thresh2 := thresh * thresh

	var starts []int
	last := len(x) - minLen
	for i := 0; i <= last; i += step {
		if (sq[i+minLen]-sq[i])/float64(minLen) <= thresh2 {
			starts = append(starts, i)
		}
	}
	// make sure the tail window is examined when step does not land on it
	if last%step != 0 && (sq[len(x)]-sq[last])/float64(minLen) <= thresh2 {
		starts = append(starts, last)
	}
	if len(starts) == 0 {
		return nil
	}

	var out []Span
	cur := Span{Start: starts[0], End: starts[0] + minLen}
	for _, s := range starts[1:] {
		if s <= cur.End {
			cur.End = s + minLen
			continue
		}
		out = append(out, cur)
		cur = Span{Start: s, End: s + minLen}
	}
	return append(out, cur)
}

// NonSilent returns the complement of DetectSilence over x.
func NonSilent(x []float64, minLen, step int, thresh float64) []Span {
	silent := DetectSilence(x, minLen, step, thresh)
	var out []Span
	prev := 0
	for _, s := range silent {
		if s.Start > prev {
			out = append(out, Span{Start: prev, End: s.Start})
		}
		prev = s.End
	}
	if prev < len(x) {
		out = append(out, Span{Start: prev, End: len(x)})
	}
	return out
}

// SplitOnSilence removes pauses of at least minLen samples and keeps guard
// samples of context on either side of every retained segment. Guards that
// would overlap the neighbouring segment's guard are split at the midpoint.
func SplitOnSilence(x []float64, minLen, step, guard int, thresh float64) [][]float64 {
	spans := NonSilent(x, minLen, step, thresh)
	if len(spans) == 0 {
		return nil
	}
	padded := make([]Span, len(spans))
	for i, s := range spans {
		padded[i] = Span{Start: max(0, s.Start-guard), End: min(len(x), s.End+guard)}
	}
	for i := 1; i < len(padded); i++ {
		if padded[i].Start < padded[i-1].End {
			mid := (spans[i-1].End + spans[i].Start) / 2
			padded[i-1].End = mid
			padded[i].Start = mid
		}
	}
	chunks := make([][]float64, 0, len(padded))
	for _, s := range padded {
		if s.Len() > 0 {
			chunks = append(chunks, x[s.Start:s.End])
		}
	}
	return chunks
}

// SplitTopDB returns the non-silent spans of x, treating as silence every
// window whose RMS sits more than topDB below the peak.
func SplitTopDB(x []float64, frame, hop int, topDB float64) []Span {
	peak := Peak(x)
	if peak == 0 {
		return nil
	}
	return NonSilent(x, frame, hop, peak*fromDB(-topDB))
}
