package analysis

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey enum
type SortKey string

const (
	SortByScore      SortKey = "score"
	SortByCompliance SortKey = "compliance"
	SortByTechnical  SortKey = "technical"
	SortByCommercial SortKey = "commercial"
	SortByExperience SortKey = "experience"
	SortByCompany    SortKey = "company"
)

// SortDir enum
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ParseSortKey falls back to score for unknown keys.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByScore, SortByCompliance, SortByTechnical, SortByCommercial, SortByExperience, SortByCompany:
		return SortKey(s)
	}
	return SortByScore
}

// ParseSortDir falls back to desc for unknown directions.
func ParseSortDir(s string) SortDir {
	if SortDir(s) == SortAsc {
		return SortAsc
	}
	return SortDesc
}

// Rank returns a new slice ordered by the selected key and direction.
// The input slice is never mutated. The sort is stable; ties keep their
// incoming order. Company names compare with Russian collation so Cyrillic
// names order alphabetically instead of by code point.
func Rank(results []Result, key SortKey, dir SortDir) []Result {
	out := make([]Result, len(results))
	copy(out, results)

	less := lessFunc(key)
	sort.SliceStable(out, func(i, j int) bool {
		if dir == SortAsc {
			return less(&out[i], &out[j])
		}
		return less(&out[j], &out[i])
	})
	return out
}

func lessFunc(key SortKey) func(a, b *Result) bool {
	if key == SortByCompany {
		// Collators carry internal buffers, so build one per sort instead
		// of sharing across goroutines.
		c := collate.New(language.Russian)
		return func(a, b *Result) bool {
			return c.CompareString(a.CompanyName, b.CompanyName) < 0
		}
	}
	return func(a, b *Result) bool {
		return numericKey(a, key) < numericKey(b, key)
	}
}

func numericKey(r *Result, key SortKey) int {
	switch key {
	case SortByTechnical:
		return r.Scores.Technical
	case SortByCommercial:
		return r.Scores.Commercial
	case SortByExperience:
		return r.Scores.Experience
	default:
		// score and compliance are the same ranking key
		return r.ComplianceScore
	}
}

// RankingSummary aggregates compliance scores for the leaderboard header.
type RankingSummary struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
	BestScore    int     `json:"best_score"`
	WorstScore   int     `json:"worst_score"`
	BestCompany  string  `json:"best_company,omitempty"`
	WorstCompany string  `json:"worst_company,omitempty"`
}

// Summarize computes average/best/worst over compliance scores.
// An empty input yields a zero summary.
func Summarize(results []Result) RankingSummary {
	if len(results) == 0 {
		return RankingSummary{}
	}

	s := RankingSummary{
		Count:        len(results),
		BestScore:    results[0].ComplianceScore,
		WorstScore:   results[0].ComplianceScore,
		BestCompany:  results[0].CompanyName,
		WorstCompany: results[0].CompanyName,
	}
	sum := 0
	for _, r := range results {
		sum += r.ComplianceScore
		if r.ComplianceScore > s.BestScore {
			s.BestScore = r.ComplianceScore
			s.BestCompany = r.CompanyName
		}
		if r.ComplianceScore < s.WorstScore {
			s.WorstScore = r.ComplianceScore
			s.WorstCompany = r.CompanyName
		}
	}
	s.AverageScore = float64(sum) / float64(len(results))
	return s
}
