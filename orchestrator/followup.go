package orchestrator

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/speakidol/audio"
	"github.com/maastricht-university/speakidol/features"
	"github.com/maastricht-university/speakidol/persona"
	"github.com/maastricht-university/speakidol/similarity"
	"github.com/maastricht-university/speakidol/storage"
)

// voiceMatch scores the voice embedding against the persona when an
// embedding service is configured. It is advisory: failures are logged and
// the run carries on without it.
func (p *Pipeline) voiceMatch(ctx context.Context, log logrus.FieldLogger, clip *audio.Clip, user features.MetricSet, prof *persona.Profile) (*similarity.Result, []string) {
	url := p.cfg.Services.Embedding.URL
	if url == "" {
		return nil, nil
	}
	if len(prof.Embedding) == 0 {
		log.Warn("persona has no embedding, skipping similarity")
		return nil, nil
	}
	vec, err := p.http.Embed(ctx, url, clip.Path)
	if err != nil {
		log.WithError(err).Warn("embedding failed, skipping similarity")
		return nil, nil
	}
	res, err := similarity.Compare(vec, user, prof)
	if err != nil {
		log.WithError(err).Warn("similarity failed")
		return nil, nil
	}
	log.WithField("similarity_pct", res.Percent()).Info("voice similarity")
	return res, similarity.RuleTips(res.Metrics)
}

// followUp clones the user's transcript in the persona's voice and logs the
// raw upload. Both happen after the report exists and never fail the run.
func (p *Pipeline) followUp(ctx context.Context, log logrus.FieldLogger, src string, res *Result) {
	if p.files == nil {
		return
	}
	if url := p.cfg.Services.Clone.URL; url != "" && res.User.Transcript != "" {
		loc, err := p.clone(ctx, url, src, res)
		if err != nil {
			log.WithError(err).Warn("voice clone failed")
			res.CloneError = err.Error()
		} else {
			res.CloneAudio = loc
			log.WithField("clone", loc).Info("voice clone stored")
		}
	}

	raw, err := os.ReadFile(src)
	if err == nil {
		res.Upload, err = storage.Put(ctx, p.files, "uploads/"+uuid.NewString()+".wav", raw)
	}
	if err != nil {
		log.WithError(err).Warn("upload log failed")
	}
}

func (p *Pipeline) clone(ctx context.Context, url, src string, res *Result) (string, error) {
	wav, err := p.http.Clone(ctx, url, res.User.Transcript, res.Persona, src)
	if err != nil {
		return "", err
	}
	return storage.Put(ctx, p.files, "clones/"+uuid.NewString()+".wav", wav)
}
