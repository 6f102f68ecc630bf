package coach

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maastricht-university/speakidol/compare"
)

// MaxTips caps every strategy's output.
const MaxTips = 3

const systemPrompt = "You are a concise speech coach. " +
	"Use simple language without speech-analysis jargon. " +
	"Return exactly three bullet tips (max 25 words each) to improve the speaker's delivery " +
	"given the metric gaps below. A positive gap means the speaker is above the reference, " +
	"a negative gap means below."

// GapLines renders one "metric: gap" line per gap in rank order.
func GapLines(gaps compare.GapSet) string {
	lines := make([]string, len(gaps))
	for i, g := range gaps {
		lines[i] = fmt.Sprintf("%s: %.2f", g.Metric, g.Value)
	}
	return strings.Join(lines, "\n")
}

// Prompt is the single-message form used by backends without a system role.
func Prompt(gaps compare.GapSet) string {
	return systemPrompt + "\n\nGAPS:\n" + GapLines(gaps)
}

var marker = regexp.MustCompile(`^\s*(?:\d+[).\-:]|[•*\-–])\s*(.*)$`)

// Clean strips bullet and number markers, drops blank lines and keeps at
// most MaxTips entries.
func Clean(lines []string) []string {
	out := make([]string, 0, MaxTips)
	for _, l := range lines {
		if m := marker.FindStringSubmatch(l); m != nil {
			l = m[1]
		}
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
		if len(out) == MaxTips {
			break
		}
	}
	return out
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
