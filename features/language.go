package features

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// wpmEpsilon bounds the minutes denominator so very short clips do not
// divide by zero.
const wpmEpsilon = 1e-6

// HedgeWords is the closed set of hedging tokens counted by hedge_pct.
var HedgeWords = map[string]struct{}{
	"just":  {},
	"maybe": {},
	"kind":  {},
	"sort":  {},
}

// Tokenize splits text into case-folded word tokens. A word is a run of
// letters, digits and apostrophes.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’')
	})
	fold := cases.Fold()
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'’")
		if w == "" {
			continue
		}
		out = append(out, fold.String(w))
	}
	return out
}

// LanguageMetrics computes linguistic style metrics for a transcript spoken
// over durationSeconds. Ratios over zero words are defined as 0.
func LanguageMetrics(text string, durationSeconds float64) MetricSet {
	tokens := Tokenize(text)
	n := len(tokens)

	minutes := durationSeconds / 60
	if minutes < wpmEpsilon {
		minutes = wpmEpsilon
	}

	ms := MetricSet{
		Words:         float64(n),
		WPM:           float64(n) / minutes,
		TTR:           0,
		FleschKincaid: 0,
		HedgePct:      0,
	}
	if n == 0 {
		return ms
	}

	unique := map[string]struct{}{}
	hedges := 0
	for _, tok := range tokens {
		unique[tok] = struct{}{}
		if _, ok := HedgeWords[tok]; ok {
			hedges++
		}
	}
	ms[TTR] = float64(len(unique)) / float64(n)
	ms[HedgePct] = float64(hedges) / float64(max(n, 1))
	ms[FleschKincaid] = fleschKincaidGrade(text, tokens)
	return ms
}

func fleschKincaidGrade(text string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	syllables := 0
	for _, tok := range tokens {
		syllables += CountSyllables(tok)
	}
	w := float64(len(tokens))
	s := float64(countSentences(text))
	return 0.39*(w/s) + 11.8*(float64(syllables)/w) - 15.59
}

// countSentences counts runs of terminal punctuation. Text with words but
// no terminator counts as one sentence.
func countSentences(text string) int {
	n := 0
	inTerm := false
	hasTail := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if !inTerm && hasTail {
				n++
			}
			inTerm = true
			hasTail = false
		default:
			inTerm = false
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				hasTail = true
			}
		}
	}
	if hasTail {
		n++
	}
	return max(n, 1)
}

// CountSyllables estimates English syllables by counting vowel groups, with
// the usual corrections for a silent final "e" and "-le" endings.
func CountSyllables(word string) int {
	w := cases.Lower(language.English).String(word)
	w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
	if w == "" {
		return 0
	}
	isVowel := func(r rune) bool { return strings.ContainsRune("aeiouy", r) }

	count := 0
	prev := false
	runes := []rune(w)
	for _, r := range runes {
		v := isVowel(r)
		if v && !prev {
			count++
		}
		prev = v
	}
	if n := len(runes); n > 2 && runes[n-1] == 'e' && !isVowel(runes[n-2]) {
		if !(runes[n-2] == 'l' && !isVowel(runes[n-3])) {
			count--
		}
	}
	return max(count, 1)
}
