package orchestrator

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/maastricht-university/speakidol/compare"
)

// ComparisonBundle is comparison.json.
type ComparisonBundle struct {
	RunID         string         `json:"run_id"`
	Persona       string         `json:"persona"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Table         *compare.Table `json:"table"`
	Gaps          compare.GapSet `json:"gaps"`
	Tips          []string       `json:"tips"`
	SimilarityPct *float64       `json:"similarity_pct,omitempty"`
	RuleTips      []string       `json:"rule_tips,omitempty"`
	Report        string         `json:"report"`
}

func mkRunDir(outputsRoot, runID string) (string, error) {
	dir := filepath.Join(outputsRoot, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// persist writes user.json, persona.json and comparison.json under
// <outputsRoot>/<run_id>. A failed write removes the directory again.
func persist(outputsRoot string, res *Result, now time.Time) (dir string, err error) {
	dir, err = mkRunDir(outputsRoot, res.RunID)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	if err = writeJSON(filepath.Join(dir, "user.json"), res.User); err != nil {
		return "", err
	}
	if err = writeJSON(filepath.Join(dir, "persona.json"), res.Reference); err != nil {
		return "", err
	}
	bundle := ComparisonBundle{
		RunID:       res.RunID,
		Persona:     res.Persona,
		GeneratedAt: now,
		Table:       res.Table,
		Gaps:        res.Gaps,
		Tips:        res.Tips,
		RuleTips:    res.RuleTips,
		Report:      res.ReportPath,
	}
	if res.Similarity != nil {
		if pct := res.Similarity.Percent(); !math.IsNaN(pct) {
			bundle.SimilarityPct = &pct
		}
	}
	if err = writeJSON(filepath.Join(dir, "comparison.json"), bundle); err != nil {
		return "", err
	}
	return dir, nil
}
