// Package scoring implements the pure score calculation for one evaluated
// code submission.
package scoring

import (
	"strings"

	"codeduel-backend/internal/model"
)

const (
	// BaseScore is awarded for any potentially correct submission.
	BaseScore = 100
	// SimilarityBonus rewards a close algorithmic match to the reference
	// solution.
	SimilarityBonus = 25
	// OptimalComplexityBonus rewards an optimal estimated time complexity.
	OptimalComplexityBonus = 50
	// SimilarityThreshold is the minimum similarity score for the bonus.
	SimilarityThreshold = 0.8
	// MaxScore is the highest score a single submission can earn.
	MaxScore = BaseScore + SimilarityBonus + OptimalComplexityBonus
)

// optimalComplexities is the allow-list of time-complexity labels that earn
// the optimal bonus, in normalized form.
var optimalComplexities = map[string]struct{}{
	"o(1)":    {},
	"o(logn)": {},
	"o(n)":    {},
}

// NormalizeComplexity lowercases a complexity label and strips all
// whitespace, so "O( N )" and "o(n)" compare equal.
func NormalizeComplexity(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsOptimalComplexity reports whether the label normalizes to one of the
// optimal complexity classes. Unrecognized labels simply earn no bonus.
func IsOptimalComplexity(label string) bool {
	_, ok := optimalComplexities[NormalizeComplexity(label)]
	return ok
}

// Score converts one evaluation into a numeric score.
// Rules:
//   - nil evaluation (no submission) or not potentially correct: 0
//   - otherwise BaseScore, plus SimilarityBonus if the similarity score is
//     at least SimilarityThreshold, plus OptimalComplexityBonus if the
//     estimated time complexity is in the optimal allow-list
//
// The bonuses are independent and additive.
func Score(eval *model.Evaluation) int {
	if eval == nil || !eval.IsPotentiallyCorrect {
		return 0
	}

	score := BaseScore
	if eval.SimilarityToRefSolutionScore >= SimilarityThreshold {
		score += SimilarityBonus
	}
	if IsOptimalComplexity(eval.EstimatedTimeComplexity) {
		score += OptimalComplexityBonus
	}
	return score
}
