// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structurer

import "strings"

// stopwords holds small high-frequency word sets per language. Detection
// scores each language by stopword hits; a clear winner decides, otherwise
// a mostly-ASCII text defaults to English and anything else to "unknown".
var stopwords = map[string]map[string]bool{
	"en": wordSet("the and of to in is that it was for with as his on be at by"),
	"es": wordSet("el la de que y en los del se las por un una con para es al como"),
	"fr": wordSet("le la les de des et en un une du que qui dans pour est sur au ne pas"),
	"de": wordSet("der die das und den von zu mit sich des auf ist im nicht ein eine als"),
	"it": wordSet("il la di che e in un una per del con non sono della gli"),
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// DetectLanguage is a best-effort heuristic classifier. It never fails;
// unrecognizable text comes back as "unknown".
func DetectLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "unknown"
	}

	best, bestScore, secondScore := "", 0, 0
	for lang, set := range stopwords {
		score := 0
		for _, w := range words {
			if set[strings.Trim(w, ".,;:!?\"'()")] {
				score++
			}
		}
		if score > bestScore {
			best, secondScore, bestScore = lang, bestScore, score
		} else if score > secondScore {
			secondScore = score
		}
	}

	// Require a clear margin before trusting the stopword vote.
	if bestScore >= 3 && bestScore >= 2*secondScore {
		return best
	}

	ascii := 0
	for _, ch := range text {
		if ch < 128 {
			ascii++
		}
	}
	if float64(ascii)/float64(len([]rune(text))) > 0.9 {
		return "en"
	}
	return "unknown"
}
