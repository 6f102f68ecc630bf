package features

import (
	"encoding/json"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/maastricht-university/speakidol/audio"
)

func sineClip(freq, seconds float64, rate int, amp float64) *audio.Clip {
	n := int(seconds * float64(rate))
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return &audio.Clip{Samples: x, SampleRate: rate}
}

func TestProsodySine(t *testing.T) {
	ms := ProsodyMetrics(sineClip(200, 1, 16000, 0.5), DefaultProsodyOptions())

	if got := ms[Duration]; math.Abs(got-1) > 1e-9 {
		t.Fatalf("duration = %v", got)
	}
	if got := ms[MeanPitch]; math.Abs(got-200) > 1 {
		t.Fatalf("mean pitch = %v, want 200", got)
	}
	if got := ms[PitchIQR]; got > 1 {
		t.Fatalf("pitch IQR = %v, want ~0", got)
	}
	if got := ms[Jitter]; math.IsNaN(got) || got > 1e-3 {
		t.Fatalf("jitter = %v, want ~0", got)
	}
	if got := ms[Shimmer]; math.IsNaN(got) || got > 1e-3 {
		t.Fatalf("shimmer = %v, want ~0", got)
	}
}

func TestProsodyUnvoiced(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	noise := make([]float64, 16000)
	for i := range noise {
		noise[i] = rng.Float64()*2 - 1
	}

	cases := map[string]*audio.Clip{
		"silence": {Samples: make([]float64, 16000), SampleRate: 16000},
		"noise":   {Samples: noise, SampleRate: 16000},
	}
	for name, clip := range cases {
		t.Run(name, func(t *testing.T) {
			ms := ProsodyMetrics(clip, DefaultProsodyOptions())
			if ms[Duration] != 1 {
				t.Fatalf("duration = %v", ms[Duration])
			}
			for _, k := range []string{MeanPitch, PitchIQR, Jitter, Shimmer} {
				if !math.IsNaN(ms[k]) {
					t.Errorf("%s = %v, want NaN", k, ms[k])
				}
			}
		})
	}
}

func TestProsodyEmptyClip(t *testing.T) {
	ms := ProsodyMetrics(&audio.Clip{SampleRate: 16000}, DefaultProsodyOptions())
	if ms[Duration] != 0 {
		t.Fatalf("duration = %v", ms[Duration])
	}
	if !math.IsNaN(ms[MeanPitch]) {
		t.Fatalf("mean pitch = %v", ms[MeanPitch])
	}
}

func TestLanguageMetrics(t *testing.T) {
	ms := LanguageMetrics("I just think, maybe, we should just go. Sort of!", 30)

	if ms[Words] != 10 {
		t.Fatalf("words = %v", ms[Words])
	}
	if ms[WPM] != 20 {
		t.Fatalf("wpm = %v", ms[WPM])
	}
	// "just" repeats once
	if got, want := ms[TTR], 9.0/10; math.Abs(got-want) > 1e-12 {
		t.Fatalf("ttr = %v, want %v", got, want)
	}
	if got, want := ms[HedgePct], 4.0/10; math.Abs(got-want) > 1e-12 {
		t.Fatalf("hedge_pct = %v, want %v", got, want)
	}
	if math.IsNaN(ms[FleschKincaid]) {
		t.Fatal("flesch_kincaid is NaN")
	}
}

func TestLanguageMetricsEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "...!"} {
		ms := LanguageMetrics(text, 10)
		for _, k := range []string{Words, WPM, TTR, FleschKincaid, HedgePct} {
			if ms[k] != 0 {
				t.Errorf("%q: %s = %v, want 0", text, k, ms[k])
			}
		}
	}
}

func TestLanguageMetricsZeroDuration(t *testing.T) {
	ms := LanguageMetrics("hello there", 0)
	if math.IsInf(ms[WPM], 0) || math.IsNaN(ms[WPM]) {
		t.Fatalf("wpm = %v", ms[WPM])
	}
}

func TestTokenizeFoldsCase(t *testing.T) {
	got := Tokenize("Don't STOP, don't stop")
	want := []string{"don't", "stop", "don't", "stop"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
}

func TestCountSyllables(t *testing.T) {
	cases := map[string]int{
		"cat":       1,
		"make":      1,
		"table":     2,
		"banana":    3,
		"rhythm":    1,
		"beautiful": 3,
	}
	for w, want := range cases {
		if got := CountSyllables(w); got != want {
			t.Errorf("CountSyllables(%q) = %d, want %d", w, got, want)
		}
	}
}

func TestMergeRightWins(t *testing.T) {
	a := MetricSet{WPM: 100, Duration: 3}
	b := MetricSet{WPM: 140, Words: 7}
	got := Merge(a, b)
	if got[WPM] != 140 || got[Duration] != 3 || got[Words] != 7 {
		t.Fatalf("merge = %v", got)
	}
	if a[WPM] != 100 {
		t.Fatal("merge modified its input")
	}
}

func TestUnionKeysOrder(t *testing.T) {
	got := UnionKeys(MetricSet{"zeta": 1, Words: 1}, MetricSet{WPM: 1, "alpha": 1})
	want := []string{WPM, Words, "alpha", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
}

func TestMetricSetJSONNull(t *testing.T) {
	ms := MetricSet{WPM: 120, MeanPitch: math.NaN()}
	b, err := json.Marshal(ms)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"wpm":120,"mean_pitch_Hz":null}` {
		t.Fatalf("json = %s", b)
	}

	var back MetricSet
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back[WPM] != 120 || !math.IsNaN(back[MeanPitch]) {
		t.Fatalf("decoded %v", back)
	}
	if !strings.Contains(string(b), "null") {
		t.Fatal("NaN must encode as null")
	}
}
