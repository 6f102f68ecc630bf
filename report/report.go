// Package report renders the per-run HTML artifact: the comparison table,
// a radar chart of normalized metrics and the coaching tips.
package report

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/maastricht-university/speakidol/compare"
)

//go:embed template.html
var pageSrc string

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"num": Num,
}).Parse(pageSrc))

// Data is everything one report shows.
type Data struct {
	RunID       string
	Persona     string
	Table       *compare.Table
	Tips        []string
	Transcript  string
	Similarity  *float64 // percent; nil hides the line
	RadarImage  string   // rendered by the visualization service, if any
	GeneratedAt time.Time
}

// Num formats a metric value for display. Missing values read "n/a".
func Num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

type view struct {
	Data
	Radar     template.HTML
	HasSim    bool
	Sim       float64
	Generated string
}

// Renderer writes reports as <Dir>/<run_id>.html.
type Renderer struct {
	Dir string
}

// Path is where the report for runID lives.
func (r *Renderer) Path(runID string) string {
	return filepath.Join(r.Dir, runID+".html")
}

// Render writes the report and returns its path. The page is built in
// memory first so a failure never leaves a partial file behind.
func (r *Renderer) Render(d Data) (string, error) {
	if d.RunID == "" {
		return "", errors.New("report: empty run id")
	}
	if d.Table == nil {
		return "", errors.New("report: no comparison table")
	}
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now()
	}
	v := view{
		Data:      d,
		HasSim:    d.Similarity != nil && !math.IsNaN(*d.Similarity),
		Generated: d.GeneratedAt.Format(time.RFC3339),
	}
	if v.HasSim {
		v.Sim = *d.Similarity
	}
	if d.RadarImage == "" {
		v.Radar = Radar(d.Table)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("report: render: %w", err)
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	path := r.Path(d.RunID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("report: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("report: write: %w", err)
	}
	return path, nil
}
