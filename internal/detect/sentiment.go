package detect

import "strings"

// Minimal valence lexicon in the AFINN style. The detectors only need a
// coarse polarity signal (neutral text scores better), so a compact list
// of the strongest markers is enough.
var valence = map[string]int{
	"amazing": 4, "awesome": 4, "best": 3, "breakthrough": 3, "brilliant": 4,
	"excellent": 3, "fantastic": 4, "good": 3, "great": 3, "happy": 3,
	"incredible": 4, "love": 3, "miracle": 4, "outstanding": 5, "perfect": 3,
	"positive": 2, "success": 2, "win": 4, "wonderful": 4,

	"awful": -3, "bad": -3, "catastrophe": -4, "corrupt": -3, "crisis": -3,
	"danger": -2, "dead": -3, "disaster": -2, "evil": -3, "fail": -2,
	"fake": -3, "fraud": -4, "hate": -3, "horrible": -3, "hoax": -3,
	"lie": -2, "negative": -2, "outrage": -3, "scam": -2, "scandal": -3,
	"shocking": -2, "terrible": -3, "threat": -2, "war": -2, "worst": -3,
}

// sentimentScore sums word valences the way the original sentiment
// analyzers did: unweighted, token by token.
func sentimentScore(text string) int {
	score := 0
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		score += valence[tok]
	}
	return score
}
