// Package compare normalizes a user's metrics against a persona's, scores
// both sides and picks the largest gaps for coaching.
package compare

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/maastricht-university/speakidol/features"
)

// ErrEmptyUnion is returned when neither side carries any metric.
var ErrEmptyUnion = errors.New("compare: no metrics to compare")

// Weights is the fixed importance table for the composite score. Metrics
// outside it are displayed but do not count.
var Weights = map[string]float64{
	features.WPM:      0.25,
	features.PitchIQR: 0.20,
	features.HedgePct: 0.20,
	features.TTR:      0.15,
	features.Jitter:   0.10,
	features.Shimmer:  0.10,
}

// EqualValue is the normalized value of both sides when they are equal.
const EqualValue = 0.0

type Row struct {
	Metric      string  `json:"metric"`
	User        float64 `json:"user"`
	Persona     float64 `json:"persona"`
	NormUser    float64 `json:"norm_user"`
	NormPersona float64 `json:"norm_persona"`
	Weight      float64 `json:"weight"`
}

// Missing reports whether either side lacks a comparable value.
func (r Row) Missing() bool {
	return math.IsNaN(r.NormUser) || math.IsNaN(r.NormPersona)
}

// MarshalJSON encodes missing values as null.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Metric      string   `json:"metric"`
		User        *float64 `json:"user"`
		Persona     *float64 `json:"persona"`
		NormUser    *float64 `json:"norm_user"`
		NormPersona *float64 `json:"norm_persona"`
		Weight      float64  `json:"weight"`
	}{r.Metric, nullable(r.User), nullable(r.Persona), nullable(r.NormUser), nullable(r.NormPersona), r.Weight})
}

func nullable(v float64) *float64 {
	if !finite(v) {
		return nil
	}
	return &v
}

// Table is the result of Diff. Rows follow canonical metric order.
type Table struct {
	Rows         []Row   `json:"rows"`
	UserScore    float64 `json:"user_score"`
	PersonaScore float64 `json:"persona_score"`
}

// Row returns the row for metric, if present.
func (t *Table) Row(metric string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Metric == metric {
			return r, true
		}
	}
	return Row{}, false
}

// Diff min-max normalizes every metric in the union of both sets across the
// two values and computes a weighted score per side. A metric that is NaN or
// absent on either side is kept as a row with NaN normalized values and is
// left out of the scores.
func Diff(user, persona features.MetricSet) (*Table, error) {
	keys := features.UnionKeys(user, persona)
	if len(keys) == 0 {
		return nil, ErrEmptyUnion
	}

	t := &Table{Rows: make([]Row, 0, len(keys))}
	for _, k := range keys {
		u, p := user.Get(k), persona.Get(k)
		nu, np := normalizePair(u, p)
		row := Row{Metric: k, User: u, Persona: p, NormUser: nu, NormPersona: np, Weight: Weights[k]}
		if !row.Missing() {
			t.UserScore += row.Weight * nu
			t.PersonaScore += row.Weight * np
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func normalizePair(a, b float64) (float64, float64) {
	if !finite(a) || !finite(b) {
		return math.NaN(), math.NaN()
	}
	lo, hi := math.Min(a, b), math.Max(a, b)
	if hi == lo {
		return EqualValue, EqualValue
	}
	return (a - lo) / (hi - lo), (b - lo) / (hi - lo)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
