// Package coach turns the largest metric gaps into at most three short tips.
// A Strategy is picked once by name at startup; every variant talks to a
// different text-generation backend but shares prompt building and reply
// cleanup.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/compare"
	"github.com/maastricht-university/speakidol/config"
)

var (
	ErrUnknownStrategy   = errors.New("coach: unknown strategy")
	ErrMalformedResponse = errors.New("coach: malformed response")
)

// Strategy names.
const (
	OpenAI = "openai"
	Gemini = "gemini"
	Local  = "local"
	REST   = "rest"
	Ollama = "ollama"
)

var Strategies = []string{OpenAI, Gemini, Local, REST, Ollama}

// Strategy produces coaching tips for a GapSet. Close releases whatever
// backend connection the strategy holds.
type Strategy interface {
	Advise(ctx context.Context, gaps compare.GapSet) ([]string, error)
	Close() error
}

// backend is the per-variant call. It returns raw lines; Coach cleans them.
type backend interface {
	generate(ctx context.Context, gaps compare.GapSet) ([]string, error)
	close() error
}

// Coach is the Strategy every variant is served through.
type Coach struct {
	name    string
	timeout time.Duration
	b       backend
}

// New builds the strategy named by cfg.Strategy.
func New(ctx context.Context, cfg config.Coach, h *clients.HTTP) (*Coach, error) {
	if h == nil {
		h = clients.NewHTTPTimeout(cfg.Timeout)
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Strategy))
	if name == "" {
		name = OpenAI
	}
	var (
		b   backend
		err error
	)
	switch name {
	case OpenAI:
		b = newOpenAI(cfg, h)
	case Gemini:
		b, err = newGemini(ctx, cfg, h)
	case Local:
		b, err = newLocal(cfg, h)
	case REST:
		b, err = newREST(cfg, h)
	case Ollama:
		b = newOllama(cfg, h)
	default:
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownStrategy, cfg.Strategy, strings.Join(Strategies, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("coach %s: %w", name, err)
	}
	return &Coach{name: name, timeout: cfg.Timeout, b: b}, nil
}

func (c *Coach) Name() string { return c.name }

// Advise returns at most three cleaned tips. No gaps means no tips and no
// backend call.
func (c *Coach) Advise(ctx context.Context, gaps compare.GapSet) ([]string, error) {
	if len(gaps) == 0 {
		return []string{}, nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	lines, err := c.b.generate(ctx, gaps)
	if err != nil {
		if errors.Is(err, clients.ErrDecode) && !errors.Is(err, ErrMalformedResponse) {
			err = fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return nil, fmt.Errorf("%s coach: %w", c.name, err)
	}
	return Clean(lines), nil
}

func (c *Coach) Close() error { return c.b.close() }
