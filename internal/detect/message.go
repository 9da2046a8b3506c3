// Package detect holds the local fallback scorers used when the external
// scoring service is unavailable. Each detector is a bounded heuristic:
// whatever the input, the result lands in [0,1], and empty input scores a
// neutral 0.5.
package detect

import (
	"regexp"
	"strings"
)

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	nonTextPattern = regexp.MustCompile(`[^a-zA-Z0-9\s.!?]`)
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
	allCapsPattern = regexp.MustCompile(`\b[A-Z]{3,}\b`)
)

func cleanText(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = nonTextPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// MessageScore rates how the article is written: readability, lexical
// diversity, tonal neutrality and emphasis. Sensational shouting scores
// low, measured prose scores high.
func MessageScore(text string) float64 {
	clean := cleanText(text)
	words := strings.Fields(clean)
	if len(words) == 0 {
		return 0.5
	}

	// Readability approximated by average sentence length.
	sentences := 0
	for _, s := range sentenceSplit.Split(clean, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	avgSentLen := float64(len(words)) / float64(sentences)
	rScore := max(0, 1-min(20, avgSentLen)/20)

	// Lexical diversity: type-token ratio.
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	ttr := float64(len(unique)) / float64(len(words))

	// Tonal neutrality: map the valence sum to [0,1] and penalize
	// distance from the neutral midpoint.
	polarity := (clampFloat(float64(sentimentScore(clean)), -10, 10) + 10) / 20
	subjectivityPenalty := 1 - min(1, abs(polarity-0.5)*2)

	// Emphasis: exclamation marks and ALL-CAPS shouting.
	emphasis := float64(strings.Count(clean, "!") + len(allCapsPattern.FindAllString(clean, -1)))
	pScore := 1 - min(1, emphasis/5)

	m := 0.3*rScore + 0.3*ttr + 0.2*subjectivityPenalty + 0.2*pScore
	return clampFloat(m, 0, 1)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
