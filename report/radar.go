package report

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/maastricht-university/speakidol/compare"
)

const (
	radarSize   = 360.0
	radarRadius = 130.0
)

// Axes are the radar's metrics: every row with values on both sides.
func Axes(t *compare.Table) []compare.Row {
	var out []compare.Row
	for _, r := range t.Rows {
		if !r.Missing() {
			out = append(out, r)
		}
	}
	return out
}

// Radar draws the normalized user and persona values as an inline SVG
// polar chart. Fewer than three usable metrics yield no chart.
func Radar(t *compare.Table) template.HTML {
	axes := Axes(t)
	n := len(axes)
	if n < 3 {
		return ""
	}
	c := radarSize / 2
	at := func(i int, v float64) (float64, float64) {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		return c + v*radarRadius*math.Cos(a), c + v*radarRadius*math.Sin(a)
	}
	poly := func(val func(compare.Row) float64) string {
		pts := make([]string, n)
		for i, r := range axes {
			x, y := at(i, val(r))
			pts[i] = fmt.Sprintf("%.1f,%.1f", x, y)
		}
		return strings.Join(pts, " ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="radar" width="%[1]g" height="%[1]g" viewBox="0 0 %[1]g %[1]g">`, radarSize)
	for _, ring := range []float64{0.25, 0.5, 0.75, 1} {
		fmt.Fprintf(&b, `<polygon class="grid" points="%s" fill="none" stroke="#ddd"/>`,
			poly(func(compare.Row) float64 { return ring }))
	}
	for i, r := range axes {
		x, y := at(i, 1)
		lx, ly := at(i, 1.15)
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#ddd"/>`, c, c, x, y)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="10" text-anchor="middle">%s</text>`,
			lx, ly, template.HTMLEscapeString(r.Metric))
	}
	fmt.Fprintf(&b, `<polygon class="persona" points="%s" fill="#f5a62333" stroke="#f5a623"/>`,
		poly(func(r compare.Row) float64 { return r.NormPersona }))
	fmt.Fprintf(&b, `<polygon class="user" points="%s" fill="#4a90e233" stroke="#4a90e2"/>`,
		poly(func(r compare.Row) float64 { return r.NormUser }))
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}
