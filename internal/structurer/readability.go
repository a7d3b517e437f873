// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structurer

import (
	"strings"

	"github.com/pdiddy/rubricheck/pkg/types"
)

// computeReadability derives the standard readability indices from word,
// sentence, character, and syllable counts. Formulas are the published
// closed forms; syllables come from a rough vowel-group heuristic, which
// is accurate enough for grading context notes.
func computeReadability(text string) types.Readability {
	words := wordRe.FindAllString(text, -1)
	sentences := countSentences(text)

	if len(words) == 0 {
		return types.Readability{}
	}

	chars := 0
	syllables := 0
	complexWords := 0
	for _, w := range words {
		chars += len(w)
		sy := countSyllables(w)
		syllables += sy
		if sy >= 3 {
			complexWords++
		}
	}

	wc := float64(len(words))
	sc := float64(sentences)
	cc := float64(chars)
	sy := float64(syllables)

	return types.Readability{
		FleschReadingEase:         206.835 - 1.015*(wc/sc) - 84.6*(sy/wc),
		FleschKincaidGrade:        0.39*(wc/sc) + 11.8*(sy/wc) - 15.59,
		GunningFog:                0.4 * ((wc / sc) + 100*float64(complexWords)/wc),
		AutomatedReadabilityIndex: 4.71*(cc/wc) + 0.5*(wc/sc) - 21.43,
		ColemanLiauIndex:          0.0588*(100*cc/wc) - 0.296*(100*sc/wc) - 15.8,
	}
}

// countSyllables approximates syllables as vowel groups, with a silent
// trailing "e" discounted.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	if word == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, ch := range word {
		isVowel := strings.ContainsRune("aeiouy", ch)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		return 1
	}
	return count
}
