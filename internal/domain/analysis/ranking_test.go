package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []Result {
	return []Result{
		{ID: "a", CompanyName: "Яблоко", ComplianceScore: 90, Scores: Scores{Technical: 80, Commercial: 40, Experience: 70}},
		{ID: "b", CompanyName: "Авто", ComplianceScore: 50, Scores: Scores{Technical: 60, Commercial: 90, Experience: 30}},
		{ID: "c", CompanyName: "Банан", ComplianceScore: 70, Scores: Scores{Technical: 20, Commercial: 55, Experience: 95}},
	}
}

func TestRank_ByScore(t *testing.T) {
	in := sampleResults()

	desc := Rank(in, SortByScore, SortDesc)
	require.Len(t, desc, 3)
	assert.Equal(t, []int{90, 70, 50}, scoresOf(desc))

	asc := Rank(in, SortByScore, SortAsc)
	assert.Equal(t, []int{50, 70, 90}, scoresOf(asc))
}

func TestRank_ComplianceAliasesScore(t *testing.T) {
	in := sampleResults()
	assert.Equal(t, Rank(in, SortByScore, SortDesc), Rank(in, SortByCompliance, SortDesc))
}

func TestRank_AscIsReversedDesc(t *testing.T) {
	in := sampleResults()
	for _, key := range []SortKey{SortByScore, SortByCompliance, SortByTechnical, SortByCommercial, SortByExperience, SortByCompany} {
		asc := Rank(in, key, SortAsc)
		desc := Rank(in, key, SortDesc)
		require.Len(t, desc, len(asc))
		for i := range asc {
			assert.Equal(t, asc[i].ID, desc[len(desc)-1-i].ID, "key %s position %d", key, i)
		}
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := sampleResults()
	_ = Rank(in, SortByScore, SortAsc)
	assert.Equal(t, sampleResults(), in)
}

func TestRank_EmptyInput(t *testing.T) {
	out := Rank(nil, SortByScore, SortDesc)
	assert.Empty(t, out)
	assert.NotPanics(t, func() { Rank([]Result{}, SortByCompany, SortAsc) })
}

func TestRank_CompanyRussianCollation(t *testing.T) {
	in := sampleResults()
	out := Rank(in, SortByCompany, SortAsc)
	names := make([]string, len(out))
	for i, r := range out {
		names[i] = r.CompanyName
	}
	// Russian alphabetical order, not raw code-point order
	assert.Equal(t, []string{"Авто", "Банан", "Яблоко"}, names)
}

func TestRank_SubScores(t *testing.T) {
	in := sampleResults()

	tech := Rank(in, SortByTechnical, SortDesc)
	assert.Equal(t, []string{"a", "b", "c"}, idsOf(tech))

	comm := Rank(in, SortByCommercial, SortDesc)
	assert.Equal(t, []string{"b", "c", "a"}, idsOf(comm))

	exp := Rank(in, SortByExperience, SortAsc)
	assert.Equal(t, []string{"b", "a", "c"}, idsOf(exp))
}

func TestRank_MissingScoresCompareAsZero(t *testing.T) {
	in := []Result{
		{ID: "x"}, // no scores at all
		{ID: "y", ComplianceScore: 10},
	}
	out := Rank(in, SortByScore, SortAsc)
	assert.Equal(t, []string{"x", "y"}, idsOf(out))
}

func TestParseSortKeyAndDir(t *testing.T) {
	assert.Equal(t, SortByCompany, ParseSortKey("company"))
	assert.Equal(t, SortByScore, ParseSortKey("bogus"))
	assert.Equal(t, SortAsc, ParseSortDir("asc"))
	assert.Equal(t, SortDesc, ParseSortDir(""))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 70.0, s.AverageScore, 1e-9)
	assert.Equal(t, 90, s.BestScore)
	assert.Equal(t, "Яблоко", s.BestCompany)
	assert.Equal(t, 50, s.WorstScore)
	assert.Equal(t, "Авто", s.WorstCompany)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, RankingSummary{}, Summarize(nil))
}

func scoresOf(rs []Result) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.ComplianceScore
	}
	return out
}

func idsOf(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
