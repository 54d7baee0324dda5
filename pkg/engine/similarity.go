package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Scorer measures how similar two normalized names are, from 0 (unrelated)
// to 100 (identical). The resolver depends only on this interface.
type Scorer interface {
	Score(a, b string) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(a, b string) float64

// Score calls f(a, b).
func (f ScorerFunc) Score(a, b string) float64 { return f(a, b) }

// LevenshteinScorer scores whole strings by normalized edit distance.
type LevenshteinScorer struct{}

// Score implements Scorer.
func (LevenshteinScorer) Score(a, b string) float64 {
	return 100 * similarity(a, b)
}

// TokenScorer scores a short label against a long full name: each label token
// is paired with its most similar name token and the ratios are averaged.
// "genesis olivro" scores high against "genesis victoria olivero melean" even
// though the whole strings differ in length.
type TokenScorer struct{}

// Score implements Scorer.
func (TokenScorer) Score(label, name string) float64 {
	labelTokens := strings.Fields(label)
	nameTokens := strings.Fields(name)
	if len(labelTokens) == 0 || len(nameTokens) == 0 {
		if label == name {
			return 100
		}
		return 0
	}

	total := 0.0
	for _, lt := range labelTokens {
		best := 0.0
		for _, nt := range nameTokens {
			if s := similarity(lt, nt); s > best {
				best = s
			}
		}
		total += best
	}
	return 100 * total / float64(len(labelTokens))
}

// NewScorer returns the scorer registered under name.
func NewScorer(name string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "token":
		return TokenScorer{}, nil
	case "levenshtein":
		return LevenshteinScorer{}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}

// levenshteinDistance counts single-rune edits between a and b.
func levenshteinDistance(a, b string) int {
	aRunes := []rune(a)
	bRunes := []rune(b)
	aLen := len(aRunes)
	bLen := len(bRunes)

	if aLen == 0 {
		return bLen
	}
	if bLen == 0 {
		return aLen
	}

	// Two rows, the shorter string in the inner loop.
	if aLen > bLen {
		aRunes, bRunes = bRunes, aRunes
		aLen, bLen = bLen, aLen
	}

	prev := make([]int, aLen+1)
	curr := make([]int, aLen+1)

	for i := 0; i <= aLen; i++ {
		prev[i] = i
	}

	for j := 1; j <= bLen; j++ {
		curr[0] = j
		for i := 1; i <= aLen; i++ {
			cost := 1
			if aRunes[i-1] == bRunes[j-1] {
				cost = 0
			}

			deletion := prev[i] + 1
			insertion := curr[i-1] + 1
			substitution := prev[i-1] + cost

			curr[i] = min(deletion, insertion, substitution)
		}
		prev, curr = curr, prev
	}

	return prev[aLen]
}

// similarity is 1 - distance/max(len) in runes: 1 for identical strings,
// 0 for nothing in common.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}
