// Package features turns a clip and its transcript into a flat set of named
// numeric metrics. Prosodic metrics come from the waveform, linguistic ones
// from the transcript.
package features

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Metric keys. The order of Vocabulary is the canonical display order and the
// tie-break order used when ranking gaps.
const (
	WPM           = "wpm"
	PitchIQR      = "pitch_IQR_Hz"
	HedgePct      = "hedge_pct"
	TTR           = "ttr"
	Jitter        = "jitter_local"
	Shimmer       = "shimmer_local"
	Duration      = "duration_s"
	MeanPitch     = "mean_pitch_Hz"
	Words         = "words"
	FleschKincaid = "flesch_kincaid"
	Sentiment     = "sentiment"
)

var Vocabulary = []string{
	WPM, PitchIQR, HedgePct, TTR, Jitter, Shimmer,
	Duration, MeanPitch, Words, FleschKincaid, Sentiment,
}

var vocabRank = func() map[string]int {
	m := make(map[string]int, len(Vocabulary))
	for i, k := range Vocabulary {
		m[k] = i
	}
	return m
}()

// MetricSet maps metric names to values. NaN means the metric could not be
// computed and must be treated as missing.
type MetricSet map[string]float64

// Get returns the value for key, or NaN when the key is absent.
func (m MetricSet) Get(key string) float64 {
	if v, ok := m[key]; ok {
		return v
	}
	return math.NaN()
}

// Keys returns the keys of m in canonical order: known vocabulary first, then
// anything else alphabetically.
func (m MetricSet) Keys() []string {
	return OrderKeys(keysOf(m))
}

// Merge returns the union of all sets as a new MetricSet. When the same key
// appears more than once, the right-most set wins. Inputs are not modified.
func Merge(sets ...MetricSet) MetricSet {
	out := MetricSet{}
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// UnionKeys returns the keys present in any of the sets, canonically ordered.
func UnionKeys(sets ...MetricSet) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, s := range sets {
		for k := range s {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	return OrderKeys(keys)
}

// OrderKeys sorts keys in place into canonical order and returns them.
func OrderKeys(keys []string) []string {
	sort.SliceStable(keys, func(i, j int) bool {
		ri, iok := vocabRank[keys[i]]
		rj, jok := vocabRank[keys[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return keys[i] < keys[j]
	})
	return keys
}

func keysOf(m MetricSet) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// MarshalJSON writes keys in canonical order and encodes NaN/Inf as null.
func (m MetricSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v := m[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads null values back as NaN.
func (m *MetricSet) UnmarshalJSON(b []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(MetricSet, len(raw))
	for k, v := range raw {
		if v == nil {
			out[k] = math.NaN()
			continue
		}
		out[k] = *v
	}
	*m = out
	return nil
}
