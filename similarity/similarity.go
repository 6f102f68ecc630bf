// Package similarity scores how close a user's voice is to a persona's
// using the voice embedding and two prosody ratios, and turns the result
// into rule-based advice.
package similarity

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/maastricht-university/speakidol/features"
	"github.com/maastricht-university/speakidol/persona"
)

// Metric keys.
const (
	VoiceEmbedding = "voice_embedding"
	SpeechRate     = "speech_rate"
	PitchMatch     = "pitch_match"
)

// ratioCap bounds both prosody ratios.
const ratioCap = 2.0

var ErrDimension = errors.New("similarity: embedding length mismatch")

type Result struct {
	Similarity float64            `json:"-"`
	Metrics    features.MetricSet `json:"metrics"`
}

// Percent is the similarity rounded to one decimal, in percent.
func (r *Result) Percent() float64 {
	return math.Round(r.Similarity*1000) / 10
}

// Cosine returns the cosine similarity of a and b. Zero vectors give NaN.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return math.NaN(), ErrDimension
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return math.NaN(), nil
	}
	return floats.Dot(a, b) / (na * nb), nil
}

// Compare scores the user's embedding and prosody against p. Both sides'
// prosody is read from the mean_pitch_Hz and wpm metrics.
func Compare(userVec []float64, user features.MetricSet, p *persona.Profile) (*Result, error) {
	sim, err := Cosine(userVec, p.Embedding)
	if err != nil {
		return nil, err
	}
	ref := p.Metrics()
	return &Result{
		Similarity: sim,
		Metrics: features.MetricSet{
			VoiceEmbedding: sim,
			SpeechRate:     cappedRatio(user.Get(features.WPM), ref.Get(features.WPM)),
			PitchMatch:     cappedRatio(user.Get(features.MeanPitch), ref.Get(features.MeanPitch)),
		},
	}, nil
}

func cappedRatio(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	return math.Min(num/den, ratioCap)
}

// RuleTips maps the similarity metrics to fixed advice. Missing metrics
// produce no tip.
func RuleTips(m features.MetricSet) []string {
	var tips []string
	switch r := m.Get(SpeechRate); {
	case r < 0.8:
		tips = append(tips, "Speak faster to match energy.")
	case r > 1.2:
		tips = append(tips, "Slow down slightly for clarity.")
	}
	switch r := m.Get(PitchMatch); {
	case r < 0.8:
		tips = append(tips, "Raise average pitch to convey excitement.")
	case r > 1.2:
		tips = append(tips, "Lower pitch for a calmer tone.")
	}
	if m.Get(VoiceEmbedding) < 0.6 {
		tips = append(tips, "Mimic the persona’s phrasing and word choice.")
	}
	return tips
}
