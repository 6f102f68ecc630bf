// Package persona holds the precomputed reference-speaker profiles. Profiles
// are built offline by Builder and are read-only while serving requests.
package persona

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/maastricht-university/speakidol/config"
	"github.com/maastricht-university/speakidol/features"
)

// ErrNotFound is returned when no profile exists for an id.
var ErrNotFound = errors.New("persona: not found")

type Prosody struct {
	MeanPitch float64 `json:"mean_pitch"`
	WPM       float64 `json:"wpm"`
}

// Profile is one persona record.
type Profile struct {
	ID        string    `json:"id,omitempty"`
	Version   string    `json:"version,omitempty"`
	Embedding []float64 `json:"embedding"`
	Prosody   Prosody   `json:"prosody"`
	// Audio is the reference recording the profile was built from.
	Audio string `json:"audio,omitempty"`
}

// Metrics returns the stored prosody as a MetricSet. Zero values are
// reported as missing.
func (p *Profile) Metrics() features.MetricSet {
	ms := features.MetricSet{
		features.MeanPitch: p.Prosody.MeanPitch,
		features.WPM:       p.Prosody.WPM,
	}
	for k, v := range ms {
		if v == 0 {
			ms[k] = math.NaN()
		}
	}
	return ms
}

// Store is the persona catalogue.
type Store interface {
	Load(ctx context.Context, id string) (*Profile, error)
	Put(ctx context.Context, p *Profile) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// NormalizeID lower-cases and trims a persona id so lookups are
// case-insensitive.
func NormalizeID(id string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(id))
}

// Open returns the store selected by cfg.Store.
func Open(cfg config.Personas) (Store, error) {
	switch strings.ToLower(cfg.Store) {
	case "", "json":
		return OpenJSON(cfg.Path)
	case "badger":
		return OpenBadger(BadgerOptions{Dir: cfg.Path})
	default:
		return nil, fmt.Errorf("persona: unknown store %q", cfg.Store)
	}
}
