package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftbuk/pkg/schema"
)

func identity(id, name string) schema.IdentityRecord {
	return schema.IdentityRecord{ExternalID: id, FullName: name, NormalizedName: schema.NormalizeName(name)}
}

func testIndex() *IdentityIndex {
	return BuildIdentityIndex([]schema.IdentityRecord{
		identity("1", "GENESIS VICTORIA OLIVERO MELEAN"),
		identity("2", "JUAN PEREZ LOPEZ"),
		identity("3", "JUAN PEREZ GOMEZ"),
		identity("4", "MARÍA JOSÉ MUÑOZ ARAYA"),
		identity("5", "CARLOS GARCIA ROJAS"),
		identity("6", "ANDREA GARCIA SOTO"),
	})
}

func TestResolve_ExactSubset(t *testing.T) {
	r := NewResolver(testIndex(), nil, 0)

	res := r.Resolve("Genesis Olivero")
	assert.Equal(t, MatchExactSubset, res.Kind)
	require.NotNil(t, res.Record)
	assert.Equal(t, "1", res.Record.ExternalID)
	assert.True(t, res.Resolved())

	// Accents and case are ignored on both sides.
	res = r.Resolve("maria jose munoz")
	assert.Equal(t, MatchExactSubset, res.Kind)
	assert.Equal(t, "4", res.Record.ExternalID)

	res = r.Resolve("Juan Perez Gomez")
	assert.Equal(t, MatchExactSubset, res.Kind)
	assert.Equal(t, "3", res.Record.ExternalID)
}

func TestResolve_AmbiguousDoesNotFallThrough(t *testing.T) {
	// A scorer that would happily pick something must never be consulted.
	called := false
	scorer := ScorerFunc(func(a, b string) float64 {
		called = true
		return 100
	})
	r := NewResolver(testIndex(), scorer, 0)

	res := r.Resolve("Juan Perez")
	assert.Equal(t, MatchAmbiguous, res.Kind)
	assert.Nil(t, res.Record)
	assert.False(t, res.Resolved())
	assert.ElementsMatch(t, []string{"JUAN PEREZ LOPEZ", "JUAN PEREZ GOMEZ"}, res.Candidates)
	assert.False(t, called)

	res = r.Resolve("Garcia")
	assert.Equal(t, MatchAmbiguous, res.Kind)
	assert.Len(t, res.Candidates, 2)
}

func TestResolve_Fuzzy(t *testing.T) {
	r := NewResolver(testIndex(), TokenScorer{}, 0)

	res := r.Resolve("Genesis Olivro")
	assert.Equal(t, MatchFuzzy, res.Kind)
	require.NotNil(t, res.Record)
	assert.Equal(t, "1", res.Record.ExternalID)
	assert.GreaterOrEqual(t, res.Score, DefaultThreshold)

	res = r.Resolve("Xiomara Quintanilla")
	assert.Equal(t, MatchNotFound, res.Kind)
	assert.Nil(t, res.Record)
	assert.Less(t, res.Score, DefaultThreshold)
	assert.Len(t, res.Candidates, 1)
}

func TestResolve_ThresholdBoundary(t *testing.T) {
	index := BuildIdentityIndex([]schema.IdentityRecord{identity("9", "ZOE NUNEZ")})

	fixed := func(score float64) Scorer {
		return ScorerFunc(func(a, b string) float64 { return score })
	}

	at := NewResolver(index, fixed(DefaultThreshold), DefaultThreshold).Resolve("someone else")
	assert.Equal(t, MatchFuzzy, at.Kind)
	assert.Equal(t, "9", at.Record.ExternalID)

	below := NewResolver(index, fixed(DefaultThreshold-1), DefaultThreshold).Resolve("someone else")
	assert.Equal(t, MatchNotFound, below.Kind)
	assert.Nil(t, below.Record)

	above := NewResolver(index, fixed(DefaultThreshold+0.5), DefaultThreshold).Resolve("someone else")
	assert.Equal(t, MatchFuzzy, above.Kind)
}

func TestResolve_FuzzyTieIsAmbiguous(t *testing.T) {
	index := BuildIdentityIndex([]schema.IdentityRecord{
		identity("1", "ANA SOTO"),
		identity("2", "ANA SOTA"),
	})
	r := NewResolver(index, ScorerFunc(func(a, b string) float64 { return 90 }), 0)

	res := r.Resolve("Ann Sott")
	assert.Equal(t, MatchAmbiguous, res.Kind)
	assert.Equal(t, []string{"ANA SOTO", "ANA SOTA"}, res.Candidates)
}

func TestResolve_BlankLabel(t *testing.T) {
	r := NewResolver(testIndex(), nil, 0)
	assert.Equal(t, MatchNotFound, r.Resolve("   ").Kind)
}

func TestResolveAll_MemoizesPerLabel(t *testing.T) {
	calls := 0
	scorer := ScorerFunc(func(a, b string) float64 {
		calls++
		return 0
	})
	r := NewResolver(testIndex(), scorer, 0)

	labels := []string{"Nadie", "Nadie", "Genesis Olivero", "Nadie", "Juan Perez"}
	out, stats := r.ResolveAll(labels)

	assert.Len(t, out, 3)
	assert.Equal(t, ResolveStats{Labels: 3, ExactSubset: 1, Ambiguous: 1, NotFound: 1}, stats)
	// One fuzzy pass over six records for the single unresolvable label.
	assert.Equal(t, 6, calls)

	r.Resolve("Nadie")
	assert.Equal(t, 6, calls)
}

func TestScorers(t *testing.T) {
	assert.InDelta(t, 100, LevenshteinScorer{}.Score("ana", "ana"), 1e-9)
	assert.InDelta(t, 75, LevenshteinScorer{}.Score("abcd", "abce"), 1e-9)
	assert.InDelta(t, 0, LevenshteinScorer{}.Score("abc", "xyz"), 1e-9)

	assert.InDelta(t, 100, TokenScorer{}.Score("genesis olivero", "genesis victoria olivero melean"), 1e-9)
	assert.Less(t, LevenshteinScorer{}.Score("genesis olivero", "genesis victoria olivero melean"), DefaultThreshold)
	assert.InDelta(t, 0, TokenScorer{}.Score("", "ana"), 1e-9)

	s, err := NewScorer("Levenshtein")
	require.NoError(t, err)
	assert.IsType(t, LevenshteinScorer{}, s)
	s, err = NewScorer("")
	require.NoError(t, err)
	assert.IsType(t, TokenScorer{}, s)
	_, err = NewScorer("soundex")
	assert.Error(t, err)
}
