package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maastricht-university/speakidol/audio"
	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/coach"
	"github.com/maastricht-university/speakidol/compare"
	cfg "github.com/maastricht-university/speakidol/config"
	"github.com/maastricht-university/speakidol/features"
	"github.com/maastricht-university/speakidol/persona"
	"github.com/maastricht-university/speakidol/report"
	"github.com/maastricht-university/speakidol/storage"
	"github.com/maastricht-university/speakidol/transcribe"
)

// Deps are the long-lived handles a Pipeline runs on. Files may be nil,
// which disables the clone and upload follow-ups.
type Deps struct {
	Log         logrus.FieldLogger
	HTTP        *clients.HTTP
	Transcriber transcribe.Transcriber
	Personas    persona.Store
	Coach       coach.Strategy
	Files       storage.FileStore
}

// Pipeline runs analyses. It keeps no per-run state, so one Pipeline may
// serve concurrent runs.
type Pipeline struct {
	cfg     *cfg.Root
	http    *clients.HTTP
	log     logrus.FieldLogger
	prosody features.ProsodyOptions
	tr      transcribe.Transcriber
	store   persona.Store
	coach   coach.Strategy
	files   storage.FileStore
	reports *report.Renderer
	now     func() time.Time
}

func NewPipeline(c *cfg.Root, d Deps) *Pipeline {
	if d.HTTP == nil {
		d.HTTP = clients.NewHTTP()
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &Pipeline{
		cfg:     c,
		http:    d.HTTP,
		log:     d.Log,
		prosody: features.ProsodyOptionsFrom(c.Prosody),
		tr:      d.Transcriber,
		store:   d.Personas,
		coach:   d.Coach,
		files:   d.Files,
		reports: &report.Renderer{Dir: c.Paths.Reports},
		now:     time.Now,
	}
}

// Run takes one recording through ingest, transcription, extraction,
// comparison, coaching and rendering. The persona is resolved before any
// audio is touched. A failure returns a *StageError and leaves no report
// or run outputs behind.
func (p *Pipeline) Run(ctx context.Context, req Request) (_ *Result, err error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	id := persona.NormalizeID(req.PersonaID)
	log := p.log.WithFields(logrus.Fields{"run_id": runID, "persona": id})

	prof, err := p.store.Load(ctx, id)
	if err != nil {
		return nil, fail(StagePersona, err)
	}

	cleanDir := filepath.Join(p.cfg.Paths.Data, "clean", runID)
	defer func() {
		if err != nil {
			_ = os.RemoveAll(cleanDir)
		}
	}()

	// ingest
	opts := audio.OptionsFrom(p.cfg.Audio)
	userClip, err := audio.NewPreprocessor(opts, filepath.Join(cleanDir, "user"), log).Preprocess(req.AudioPath)
	if err != nil {
		return nil, fail(StageIngest, err)
	}
	refAudio := p.personaAudio(prof, id)
	refClip, err := audio.NewPreprocessor(opts, filepath.Join(cleanDir, "persona"), log).Preprocess(refAudio)
	if err != nil {
		return nil, fail(StageIngest, err)
	}
	log.WithFields(logrus.Fields{
		"stage":     StageIngest,
		"user_s":    userClip.Duration(),
		"persona_s": refClip.Duration(),
	}).Info("ingested")

	// transcribe
	userSegs, err := p.tr.Transcribe(ctx, userClip)
	if err != nil {
		return nil, fail(StageTranscription, err)
	}
	refSegs, err := p.tr.Transcribe(ctx, refClip)
	if err != nil {
		return nil, fail(StageTranscription, err)
	}
	res := &Result{
		RunID:   runID,
		Persona: id,
		User: Side{
			Audio:      req.AudioPath,
			Duration:   userClip.Duration(),
			Transcript: transcribe.Join(userSegs),
		},
		Reference: Side{
			ID:         id,
			Audio:      refAudio,
			Duration:   refClip.Duration(),
			Transcript: transcribe.Join(refSegs),
		},
	}
	log.WithFields(logrus.Fields{
		"stage":            StageTranscription,
		"user_segments":    len(userSegs),
		"persona_segments": len(refSegs),
	}).Debug("transcribed")

	// both sides are extracted independently and joined before comparing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ms, err := p.extract(gctx, userClip, res.User.Transcript)
		res.User.Metrics = ms
		return err
	})
	g.Go(func() error {
		ms, err := p.extract(gctx, refClip, res.Reference.Transcript)
		res.Reference.Metrics = ms
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, fail(StageExtraction, err)
	}

	table, err := compare.Diff(res.User.Metrics, res.Reference.Metrics)
	if err != nil {
		return nil, fail(StageComparison, err)
	}
	res.Table = table
	res.Gaps = compare.SelectGaps(table, compare.DefaultGaps)
	log.WithFields(logrus.Fields{
		"stage":         StageComparison,
		"user_score":    table.UserScore,
		"persona_score": table.PersonaScore,
		"gaps":          res.Gaps.String(),
	}).Info("compared")

	res.Tips, err = p.coach.Advise(ctx, res.Gaps)
	if err != nil {
		return nil, fail(StageCoaching, err)
	}

	res.Similarity, res.RuleTips = p.voiceMatch(ctx, log, userClip, res.User.Metrics, prof)

	data := report.Data{
		RunID:       runID,
		Persona:     id,
		Table:       table,
		Tips:        res.Tips,
		Transcript:  res.User.Transcript,
		RadarImage:  p.radarImage(ctx, log, runID, table),
		GeneratedAt: p.now(),
	}
	if res.Similarity != nil {
		pct := res.Similarity.Percent()
		data.Similarity = &pct
	}
	res.ReportPath, err = p.reports.Render(data)
	if err != nil {
		return nil, fail(StageRender, err)
	}
	res.OutputDir, err = persist(p.cfg.Paths.Outputs, res, data.GeneratedAt)
	if err != nil {
		_ = os.Remove(res.ReportPath)
		return nil, fail(StageRender, err)
	}
	log.WithFields(logrus.Fields{"stage": StageRender, "report": res.ReportPath}).Info("run complete")

	p.followUp(ctx, log, req.AudioPath, res)
	return res, nil
}

// personaAudio is the profile's recorded source, or <audio_dir>/<id>.wav.
func (p *Pipeline) personaAudio(prof *persona.Profile, id string) string {
	if prof.Audio != "" {
		return prof.Audio
	}
	return filepath.Join(p.cfg.Personas.AudioDir, id+".wav")
}
