package compare

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultGaps is how many gaps coaching receives.
const DefaultGaps = 3

// Gap is the signed difference user - persona of one normalized metric.
// Positive means the user sits above the persona.
type Gap struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// GapSet is ordered by descending Value.
type GapSet []Gap

func (g GapSet) String() string {
	parts := make([]string, len(g))
	for i, x := range g {
		parts[i] = fmt.Sprintf("%s=%.2f", x.Metric, x.Value)
	}
	return strings.Join(parts, " ")
}

// SelectGaps returns at most n gaps with the largest signed value. Ties keep
// the table's row order. Rows with a missing side are never ranked.
func SelectGaps(t *Table, n int) GapSet {
	if t == nil || n <= 0 {
		return GapSet{}
	}
	all := make(GapSet, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Missing() {
			continue
		}
		all = append(all, Gap{Metric: r.Metric, Value: r.NormUser - r.NormPersona})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Value > all[j].Value })
	if len(all) > n {
		all = all[:n]
	}
	return all
}
