package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+(?:['-][\p{L}\p{N}]+)*`)

// Words lowercases text and splits it into words, BBCode tags included.
func Words(text string) []string {
	return wordRegex.FindAllString(strings.ToLower(text), -1)
}

// ContainsAny reports whether text contains any of the keywords, case
// insensitive.
func ContainsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Similarity returns the Jaro-Winkler similarity of the closest word of
// text to keyword.
func Similarity(words []string, keyword string) float64 {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	var best float64
	for _, w := range words {
		sim := matchr.JaroWinkler(w, keyword, false)
		if sim > best {
			best = sim
		}
	}
	return best
}
