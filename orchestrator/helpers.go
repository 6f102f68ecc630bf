package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/speakidol/audio"
	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/features"
	"github.com/maastricht-university/speakidol/report"
)

// extract computes one side's metrics: prosody, then language, then the
// optional sentiment polarity. Later sets win on key collisions.
func (p *Pipeline) extract(ctx context.Context, clip *audio.Clip, text string) (ms features.MetricSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	prosody := features.ProsodyMetrics(clip, p.prosody)
	lang := features.LanguageMetrics(text, clip.Duration())
	senti, err := p.sentiment(ctx, text)
	if err != nil {
		return nil, err
	}
	return features.Merge(prosody, lang, senti), nil
}

// sentiment is 0 without a configured service or without text.
func (p *Pipeline) sentiment(ctx context.Context, text string) (features.MetricSet, error) {
	url := p.cfg.Services.Sentiment.URL
	if url == "" || strings.TrimSpace(text) == "" {
		return features.MetricSet{features.Sentiment: 0}, nil
	}
	resp, err := p.http.Sentiment(ctx, url, text)
	if err != nil {
		return nil, err
	}
	return features.MetricSet{features.Sentiment: resp.Polarity}, nil
}

// radarImage asks the visualization service for the chart. Any failure
// falls back to the inline chart.
func (p *Pipeline) radarImage(ctx context.Context, log logrus.FieldLogger, runID string, t *compare.Table) string {
	url := p.cfg.Services.Visualization.URL
	if url == "" {
		return ""
	}
	resp, err := p.http.GenerateRadar(ctx, url, p.radarRequest(runID, report.Axes(t)))
	if err != nil {
		log.WithError(err).Warn("radar service failed, using inline chart")
		return ""
	}
	return resp.Path
}

func (p *Pipeline) radarRequest(runID string, axes []compare.Row) clients.RadarReq {
	req := clients.RadarReq{StudentName: runID, OutputDir: p.cfg.Paths.Reports}
	for _, r := range axes {
		req.Categories = append(req.Categories, r.Metric)
		req.Values = append(req.Values, r.NormUser)
		req.ReferenceValues = append(req.ReferenceValues, r.NormPersona)
	}
	return req
}
