package detect

import (
	"regexp"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)
	numberPattern   = regexp.MustCompile(`\b\d`)
	yearPattern     = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)
)

// Attribution markers: a sentence that names where its information comes
// from counts as verifiable.
var attributionMarkers = []string{
	"according to", "said", "says", "reported", "reports", "stated",
	"announced", "confirmed", "published", "study", "survey", "research",
	"data", "percent", "official",
}

// FactScore rates how checkable the article's leading claims are. It looks
// at the first few sentences and counts those carrying verifiable anchors:
// figures, dates, quotes or source attribution. The ratio of anchored
// sentences is the score.
func FactScore(text string) float64 {
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) > 6 {
		sentences = sentences[:6]
	}
	if len(sentences) == 0 {
		return 0.5
	}

	supported := 0
	for _, s := range sentences {
		if sentenceHasAnchor(s) {
			supported++
		}
	}
	return float64(supported) / float64(len(sentences))
}

func sentenceHasAnchor(sentence string) bool {
	if numberPattern.MatchString(sentence) || yearPattern.MatchString(sentence) {
		return true
	}
	if strings.Contains(sentence, `"`) || strings.Contains(sentence, "“") {
		return true
	}
	lower := strings.ToLower(sentence)
	for _, marker := range attributionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
