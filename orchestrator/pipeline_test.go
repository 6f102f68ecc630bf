package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/speakidol/audio"
	"github.com/maastricht-university/speakidol/compare"
	cfg "github.com/maastricht-university/speakidol/config"
	"github.com/maastricht-university/speakidol/features"
	"github.com/maastricht-university/speakidol/persona"
	"github.com/maastricht-university/speakidol/storage"
	"github.com/maastricht-university/speakidol/transcribe"
)

const rate = 16000

// scriptedASR returns text by which side of the run the clip belongs to.
type scriptedASR struct {
	mu      sync.Mutex
	user    string
	persona string
	err     error
	calls   int
}

func (s *scriptedASR) Transcribe(_ context.Context, clip *audio.Clip) ([]transcribe.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	text := s.user
	if strings.Contains(clip.Path, string(filepath.Separator)+"persona"+string(filepath.Separator)) {
		text = s.persona
	}
	if text == "" {
		return []transcribe.Segment{}, nil
	}
	return []transcribe.Segment{{Text: text, Start: 0, End: clip.Duration()}}, nil
}

type fakeCoach struct {
	tips  []string
	err   error
	calls int
	gaps  compare.GapSet
}

func (f *fakeCoach) Advise(_ context.Context, gaps compare.GapSet) ([]string, error) {
	f.calls++
	f.gaps = gaps
	return f.tips, f.err
}

func (f *fakeCoach) Close() error { return nil }

type fixture struct {
	cfg   *cfg.Root
	asr   *scriptedASR
	coach *fakeCoach
	store *persona.JSONStore
	user  string
}

func tone(seconds float64) []float64 {
	x := make([]float64, int(seconds*rate))
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*200*float64(i)/rate)
	}
	return x
}

func newFixture(t *testing.T, userSamples []float64) *fixture {
	t.Helper()
	dir := t.TempDir()
	c := &cfg.Root{}
	c.Paths = cfg.Paths{
		Data:    filepath.Join(dir, "data"),
		Reports: filepath.Join(dir, "reports"),
		Outputs: filepath.Join(dir, "outputs"),
	}
	c.Personas.AudioDir = filepath.Join(dir, "personas")
	if err := os.MkdirAll(c.Personas.AudioDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := audio.WriteWAVFile(filepath.Join(c.Personas.AudioDir, "ada.wav"), tone(2), rate); err != nil {
		t.Fatal(err)
	}
	store, err := persona.OpenJSON(filepath.Join(dir, "personas_meta.json"))
	if err != nil {
		t.Fatal(err)
	}
	err = store.Put(context.Background(), &persona.Profile{
		ID:        "ada",
		Embedding: []float64{1, 0},
		Prosody:   persona.Prosody{MeanPitch: 200, WPM: 90},
	})
	if err != nil {
		t.Fatal(err)
	}
	user := filepath.Join(dir, "upload.wav")
	if err := audio.WriteWAVFile(user, userSamples, rate); err != nil {
		t.Fatal(err)
	}
	return &fixture{
		cfg:   c,
		asr:   &scriptedASR{persona: "hello there friend"},
		coach: &fakeCoach{tips: []string{"Speak up."}},
		store: store,
		user:  user,
	}
}

func (f *fixture) pipeline(files storage.FileStore) *Pipeline {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	return NewPipeline(f.cfg, Deps{
		Log:         log,
		Transcriber: f.asr,
		Personas:    f.store,
		Coach:       f.coach,
		Files:       files,
	})
}

func (f *fixture) run(t *testing.T, files storage.FileStore) (*Result, error) {
	t.Helper()
	return f.pipeline(files).Run(context.Background(), Request{AudioPath: f.user, PersonaID: "Ada", RunID: "run1"})
}

func stageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func TestRunSilentClipEmptyTranscript(t *testing.T) {
	f := newFixture(t, make([]float64, 10*rate))
	res, err := f.run(t, nil)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(res.User.Duration-10) > 1e-6 {
		t.Fatalf("user duration = %v", res.User.Duration)
	}
	if res.User.Transcript != "" {
		t.Fatalf("transcript = %q", res.User.Transcript)
	}
	for _, k := range []string{features.MeanPitch, features.PitchIQR} {
		if !math.IsNaN(res.User.Metrics[k]) {
			t.Errorf("user %s = %v, want NaN", k, res.User.Metrics[k])
		}
	}
	for _, k := range []string{features.Words, features.WPM, features.TTR, features.HedgePct} {
		if res.User.Metrics[k] != 0 {
			t.Errorf("user %s = %v, want 0", k, res.User.Metrics[k])
		}
	}
	if len(res.Gaps) == 0 || len(res.Gaps) > compare.DefaultGaps {
		t.Fatalf("gaps = %v", res.Gaps)
	}
	for _, g := range res.Gaps {
		if math.IsNaN(g.Value) {
			t.Fatalf("NaN gap ranked: %v", res.Gaps)
		}
		if r, _ := res.Table.Row(g.Metric); r.Missing() {
			t.Fatalf("missing metric %s ranked", g.Metric)
		}
	}
	if f.coach.calls != 1 || len(res.Tips) != 1 {
		t.Fatalf("coach calls = %d, tips = %v", f.coach.calls, res.Tips)
	}

	html, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "n/a") {
		t.Fatal("report should tag missing prosody as n/a")
	}
	if res.ReportPath != filepath.Join(f.cfg.Paths.Reports, "run1.html") {
		t.Fatalf("report path = %q", res.ReportPath)
	}
	for _, name := range []string{"user.json", "persona.json", "comparison.json"} {
		if _, err := os.Stat(filepath.Join(f.cfg.Paths.Outputs, "run1", name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestRunKeepsSidesDistinct(t *testing.T) {
	f := newFixture(t, tone(4))
	f.asr.user = "maybe I just think so"
	res, err := f.run(t, nil)
	if err != nil {
		t.Fatal(err)
	}
	u, p := res.User.Metrics, res.Reference.Metrics
	if u[features.Words] != 5 || p[features.Words] != 3 {
		t.Fatalf("words user=%v persona=%v", u[features.Words], p[features.Words])
	}
	if u[features.HedgePct] == p[features.HedgePct] {
		t.Fatal("user and persona hedge ratios should differ")
	}
	if math.Abs(u[features.Duration]-4) > 0.01 || math.Abs(p[features.Duration]-2) > 0.01 {
		t.Fatalf("durations user=%v persona=%v", u[features.Duration], p[features.Duration])
	}
	u[features.Words] = 99
	if p[features.Words] == 99 {
		t.Fatal("metric sets share storage")
	}

	b, err := os.ReadFile(filepath.Join(res.OutputDir, "persona.json"))
	if err != nil {
		t.Fatal(err)
	}
	var side struct {
		ID      string              `json:"id"`
		Metrics map[string]*float64 `json:"metrics"`
	}
	if err := json.Unmarshal(b, &side); err != nil {
		t.Fatal(err)
	}
	if side.ID != "ada" || side.Metrics[features.Words] == nil || *side.Metrics[features.Words] != 3 {
		t.Fatalf("persona.json = %s", b)
	}
}

func TestRunUnknownPersonaFailsFirst(t *testing.T) {
	f := newFixture(t, tone(1))
	res, err := f.pipeline(nil).Run(context.Background(), Request{
		AudioPath: "/does/not/exist.wav",
		PersonaID: "nobody",
	})
	if res != nil || !errors.Is(err, persona.ErrNotFound) || stageOf(err) != StagePersona {
		t.Fatalf("got %v, %v", res, err)
	}
	if f.asr.calls != 0 {
		t.Fatal("transcriber ran before persona lookup")
	}
}

func TestRunIngestFailure(t *testing.T) {
	f := newFixture(t, tone(1))
	f.user = filepath.Join(t.TempDir(), "missing.wav")
	_, err := f.run(t, nil)
	if stageOf(err) != StageIngest || !errors.Is(err, audio.ErrUnreadable) {
		t.Fatalf("got %v", err)
	}
}

func TestRunTranscriptionFailure(t *testing.T) {
	f := newFixture(t, tone(1))
	f.asr.err = errors.New("asr down")
	_, err := f.run(t, nil)
	if stageOf(err) != StageTranscription || !strings.Contains(err.Error(), "asr down") {
		t.Fatalf("got %v", err)
	}
}

func TestRunCoachFailureLeavesNothing(t *testing.T) {
	f := newFixture(t, tone(1))
	f.coach.err = errors.New("model unavailable")
	res, err := f.run(t, nil)
	if res != nil || stageOf(err) != StageCoaching {
		t.Fatalf("got %v, %v", res, err)
	}
	if got := err.Error(); !strings.HasPrefix(got, "coaching: ") {
		t.Fatalf("error = %q", got)
	}
	for _, p := range []string{
		filepath.Join(f.cfg.Paths.Reports, "run1.html"),
		filepath.Join(f.cfg.Paths.Outputs, "run1"),
		filepath.Join(f.cfg.Paths.Data, "clean", "run1"),
	} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s exists after a failed run", p)
		}
	}
}

func TestRunCollaborators(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		switch r.URL.Path {
		case "/detect":
			_, _ = w.Write([]byte(`{"polarity":0.5}`))
		case "/embed":
			_, _ = w.Write([]byte(`{"embedding":[1,0]}`))
		case "/clone":
			if r.FormValue("style") != "ada" || r.FormValue("text") == "" {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte("RIFFclone"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newFixture(t, tone(2))
	f.asr.user = "great work everyone"
	f.cfg.Services.Sentiment.URL = srv.URL
	f.cfg.Services.Embedding.URL = srv.URL
	f.cfg.Services.Clone.URL = srv.URL
	files, err := storage.NewLocal(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.run(t, files)
	if err != nil {
		t.Fatal(err)
	}
	if res.User.Metrics[features.Sentiment] != 0.5 {
		t.Fatalf("sentiment = %v", res.User.Metrics[features.Sentiment])
	}
	if res.Similarity == nil || res.Similarity.Percent() != 100 {
		t.Fatalf("similarity = %+v", res.Similarity)
	}
	if res.CloneError != "" {
		t.Fatal(res.CloneError)
	}
	b, err := os.ReadFile(res.CloneAudio)
	if err != nil || string(b) != "RIFFclone" {
		t.Fatalf("clone %q: %q, %v", res.CloneAudio, b, err)
	}
	if _, err := os.Stat(res.Upload); err != nil {
		t.Fatalf("upload: %v", err)
	}
	html, _ := os.ReadFile(res.ReportPath)
	if !strings.Contains(string(html), "100.0%") {
		t.Fatal("report should show the similarity")
	}
	if hits["/detect"] != 2 || hits["/embed"] != 1 || hits["/clone"] != 1 {
		t.Fatalf("hits = %v", hits)
	}
}

func TestRunCloneFailureKeepsReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tts crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newFixture(t, tone(1))
	f.asr.user = "hello"
	f.cfg.Services.Clone.URL = srv.URL
	files, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.run(t, files)
	if err != nil {
		t.Fatal(err)
	}
	if res.CloneError == "" || res.CloneAudio != "" {
		t.Fatalf("clone = %q, error = %q", res.CloneAudio, res.CloneError)
	}
	if _, err := os.Stat(res.ReportPath); err != nil {
		t.Fatal(err)
	}
}

func TestStageError(t *testing.T) {
	err := fail(StageRender, os.ErrPermission)
	if err.Error() != "render: permission denied" || !errors.Is(err, os.ErrPermission) {
		t.Fatalf("got %v", err)
	}
}
