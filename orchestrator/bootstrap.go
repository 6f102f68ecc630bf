package orchestrator

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/coach"
	cfg "github.com/maastricht-university/speakidol/config"
	"github.com/maastricht-university/speakidol/persona"
	"github.com/maastricht-university/speakidol/storage"
	"github.com/maastricht-university/speakidol/transcribe"
)

// Bootstrap opens every long-lived handle once, before any run is served.
// Close releases them.
func Bootstrap(ctx context.Context, c *cfg.Root, log logrus.FieldLogger) (*Pipeline, error) {
	h := clients.NewHTTP()
	tr, err := transcribe.New(c.Transcriber, c.Services.ASR, h)
	if err != nil {
		return nil, err
	}
	store, err := persona.Open(c.Personas)
	if err != nil {
		return nil, err
	}
	ch, err := coach.New(ctx, c.Coach, nil)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	files, err := storage.Open(ctx, c.Storage)
	if err != nil {
		_ = ch.Close()
		_ = store.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"transcriber": c.Transcriber.Backend,
		"coach":       ch.Name(),
		"personas":    c.Personas.Store,
		"storage":     c.Storage.Backend,
	}).Debug("pipeline ready")

	return NewPipeline(c, Deps{
		Log:         log,
		HTTP:        h,
		Transcriber: tr,
		Personas:    store,
		Coach:       ch,
		Files:       files,
	}), nil
}

// Close releases the coach backend and the persona store.
func (p *Pipeline) Close() error {
	var errs []error
	if p.coach != nil {
		errs = append(errs, p.coach.Close())
	}
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	return errors.Join(errs...)
}

