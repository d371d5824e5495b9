package recognition

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	sentencePunctuation = regexp.MustCompile(`[.!?]`)
	capitalizedWord     = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	noiseRun            = regexp.MustCompile(`\*{3,}|\?{3,}`)
)

// Confidence scores recognized text with a fixed heuristic.
//
// The score is a crude proxy built from surface features of the text
// (length, punctuation, capitalization, line count and error markers).
// It carries no statistical meaning and must not be read as a model
// probability. Its thresholds are part of the public output and stay fixed.
func Confidence(text string) float64 {
	if strings.Contains(text, "[Error") {
		return 0
	}

	length := utf8.RuneCountInString(text)
	score := 0.7

	if length > 50 {
		score += 0.1
	}
	if sentencePunctuation.MatchString(text) {
		score += 0.05
	}
	if len(capitalizedWord.FindAllStringIndex(text, -1)) > 3 {
		score += 0.05
	}
	if len(strings.Split(text, "\n")) > 2 {
		score += 0.05
	}

	if strings.Contains(strings.ToLower(text), "[unclear") {
		score -= 0.2
	}
	if length < 20 {
		score -= 0.2
	}
	if noiseRun.MatchString(text) {
		score -= 0.1
	}

	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
