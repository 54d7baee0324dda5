package engine

import (
	"strings"

	"shiftbuk/pkg/schema"
)

// MatchKind is the outcome of resolving one person label.
type MatchKind string

const (
	MatchExactSubset MatchKind = "exact_subset"
	MatchFuzzy       MatchKind = "fuzzy"
	MatchAmbiguous   MatchKind = "ambiguous"
	MatchNotFound    MatchKind = "not_found"
)

// DefaultThreshold is the minimum fuzzy score (0-100) accepted as a match.
const DefaultThreshold = 85.0

// scoreEpsilon treats float scores this close as tied.
const scoreEpsilon = 1e-9

// Resolution maps a raw grid label to an identity, or explains why not.
type Resolution struct {
	Label      string                 `json:"label"`
	Normalized string                 `json:"normalized"`
	Kind       MatchKind              `json:"kind"`
	Record     *schema.IdentityRecord `json:"record,omitempty"`
	Score      float64                `json:"score,omitempty"`
	// Candidates holds the competing names for ambiguous results, or the
	// closest rejected name for not-found results.
	Candidates []string `json:"candidates,omitempty"`
}

// Resolved reports whether the label maps to exactly one identity.
func (r Resolution) Resolved() bool {
	return r.Record != nil && (r.Kind == MatchExactSubset || r.Kind == MatchFuzzy)
}

// ResolveStats counts resolution outcomes over distinct labels.
type ResolveStats struct {
	Labels      int `json:"labels"`
	ExactSubset int `json:"exactSubset"`
	Fuzzy       int `json:"fuzzy"`
	Ambiguous   int `json:"ambiguous"`
	NotFound    int `json:"notFound"`
}

// Resolver resolves abbreviated or misspelled names against an IdentityIndex.
// It memoizes per distinct raw label and is meant for a single run.
type Resolver struct {
	index     *IdentityIndex
	scorer    Scorer
	threshold float64
	cache     map[string]Resolution
}

// NewResolver builds a Resolver. A nil scorer means TokenScorer and a
// non-positive threshold means DefaultThreshold.
func NewResolver(index *IdentityIndex, scorer Scorer, threshold float64) *Resolver {
	if scorer == nil {
		scorer = TokenScorer{}
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{
		index:     index,
		scorer:    scorer,
		threshold: threshold,
		cache:     make(map[string]Resolution),
	}
}

// Threshold returns the fuzzy acceptance threshold in use.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve runs the staged match for one label:
//  1. Normalize and split into name parts
//  2. Exact subset: every part is a substring of the full name.
//     One hit wins; several hits are ambiguous (no fuzzy fallback)
//  3. Fuzzy: best score at or above the threshold wins; a tie between
//     distinct records at the top is ambiguous
//  4. Otherwise not found
func (r *Resolver) Resolve(label string) Resolution {
	if res, ok := r.cache[label]; ok {
		return res
	}
	res := r.resolve(label)
	r.cache[label] = res
	return res
}

func (r *Resolver) resolve(label string) Resolution {
	normalized := schema.NormalizeName(label)
	res := Resolution{Label: label, Normalized: normalized, Kind: MatchNotFound}

	parts := strings.Fields(normalized)
	if len(parts) == 0 || len(r.index.Records) == 0 {
		return res
	}

	// Step 2: exact subset
	var subset []*schema.IdentityRecord
	for _, rec := range r.index.Records {
		if containsAll(rec.NormalizedName, parts) {
			subset = append(subset, rec)
		}
	}
	switch {
	case len(subset) == 1:
		res.Kind = MatchExactSubset
		res.Record = subset[0]
		res.Score = 100
		return res
	case len(subset) > 1:
		res.Kind = MatchAmbiguous
		res.Candidates = names(subset)
		return res
	}

	// Step 3: fuzzy
	var best []*schema.IdentityRecord
	bestScore := -1.0
	for _, rec := range r.index.Records {
		score := r.scorer.Score(normalized, rec.NormalizedName)
		switch {
		case score > bestScore+scoreEpsilon:
			bestScore = score
			best = append(best[:0], rec)
		case score >= bestScore-scoreEpsilon:
			best = append(best, rec)
		}
	}

	res.Score = bestScore
	if bestScore < r.threshold {
		res.Candidates = names(best[:1])
		return res
	}
	if len(best) > 1 {
		res.Kind = MatchAmbiguous
		res.Candidates = names(best)
		return res
	}
	res.Kind = MatchFuzzy
	res.Record = best[0]
	return res
}

// ResolveAll resolves each distinct label once.
func (r *Resolver) ResolveAll(labels []string) (map[string]Resolution, ResolveStats) {
	out := make(map[string]Resolution, len(labels))
	var stats ResolveStats

	for _, label := range labels {
		if _, done := out[label]; done {
			continue
		}
		res := r.Resolve(label)
		out[label] = res

		stats.Labels++
		switch res.Kind {
		case MatchExactSubset:
			stats.ExactSubset++
		case MatchFuzzy:
			stats.Fuzzy++
		case MatchAmbiguous:
			stats.Ambiguous++
		case MatchNotFound:
			stats.NotFound++
		}
	}

	return out, stats
}

func containsAll(name string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(name, p) {
			return false
		}
	}
	return true
}

func names(records []*schema.IdentityRecord) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.FullName
	}
	return out
}
