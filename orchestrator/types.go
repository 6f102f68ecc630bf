package orchestrator

import (
	"fmt"

	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/features"
	"github.com/maastricht-university/speakidol/similarity"
)

// Stage names a pipeline step. A failed run reports the stage it died in.
type Stage string

const (
	StagePersona       Stage = "persona"
	StageIngest        Stage = "ingest"
	StageTranscription Stage = "transcription"
	StageExtraction    Stage = "extraction"
	StageComparison    Stage = "comparison"
	StageCoaching      Stage = "coaching"
	StageRender        Stage = "render"
)

// StageError tags the cause of a failed run with its stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Request is one analysis run.
type Request struct {
	AudioPath string
	PersonaID string
	RunID     string // generated when empty
}

// Side is everything extracted from one speaker's clip.
type Side struct {
	ID         string             `json:"id,omitempty"`
	Audio      string             `json:"audio"`
	Duration   float64            `json:"duration_s"`
	Transcript string             `json:"transcript"`
	Metrics    features.MetricSet `json:"metrics"`
}

// Result is a completed run.
type Result struct {
	RunID      string             `json:"run_id"`
	Persona    string             `json:"persona"`
	User       Side               `json:"-"`
	Reference  Side               `json:"-"`
	Table      *compare.Table     `json:"table"`
	Gaps       compare.GapSet     `json:"gaps"`
	Tips       []string           `json:"tips"`
	Similarity *similarity.Result `json:"similarity,omitempty"`
	RuleTips   []string           `json:"rule_tips,omitempty"`
	ReportPath string             `json:"report"`
	OutputDir  string             `json:"-"`

	// Follow-up artifacts. Their failure never fails the run.
	CloneAudio string `json:"clone_audio,omitempty"`
	CloneError string `json:"clone_error,omitempty"`
	Upload     string `json:"upload,omitempty"`
}
