package duel

import (
	"context"
	"fmt"

	"codeduel-backend/internal/game/scoring"
	"codeduel-backend/internal/judge"
	"codeduel-backend/internal/model"
)

// Comparator decides a duel that correctness alone could not separate:
// both submissions correct, or both incorrect.
type Comparator interface {
	Compare(ctx context.Context, problemStatement string, p1, p2 *model.Evaluation) (*judge.AdjudicationResult, error)
}

// complexityRanks orders the recognized time-complexity classes, best
// first. Unrecognized labels rank behind every recognized one.
var complexityRanks = map[string]int{
	"o(1)":      1,
	"o(logn)":   2,
	"o(sqrtn)":  3,
	"o(n)":      4,
	"o(nlogn)":  5,
	"o(n^2)":    6,
	"o(n^3)":    7,
	"o(2^n)":    8,
	"o(n!)":     9,
}

const unrankedComplexity = 100

func complexityRank(label string) int {
	if rank, ok := complexityRanks[scoring.NormalizeComplexity(label)]; ok {
		return rank
	}
	return unrankedComplexity
}

// RuleBasedComparator is the deterministic comparison strategy.
// Both correct: strictly better time complexity wins; tied complexity
// falls through to the similarity score; a full tie is a draw.
// Both incorrect: strictly higher similarity to the reference solution
// wins, otherwise a draw.
type RuleBasedComparator struct{}

// Compare implements Comparator. It is total and never fails.
func (RuleBasedComparator) Compare(_ context.Context, _ string, p1, p2 *model.Evaluation) (*judge.AdjudicationResult, error) {
	if p1.IsPotentiallyCorrect && p2.IsPotentiallyCorrect {
		return compareBothCorrect(p1, p2), nil
	}
	return compareBothIncorrect(p1, p2), nil
}

func compareBothCorrect(p1, p2 *model.Evaluation) *judge.AdjudicationResult {
	r1, r2 := complexityRank(p1.EstimatedTimeComplexity), complexityRank(p2.EstimatedTimeComplexity)
	summary := fmt.Sprintf(
		"Both solutions look correct. Player 1 runs in %s with similarity %.2f; player 2 runs in %s with similarity %.2f.",
		p1.EstimatedTimeComplexity, p1.SimilarityToRefSolutionScore,
		p2.EstimatedTimeComplexity, p2.SimilarityToRefSolutionScore,
	)

	if r1 != r2 {
		winner, better := model.WinnerPlayer1, p1
		if r2 < r1 {
			winner, better = model.WinnerPlayer2, p2
		}
		return &judge.AdjudicationResult{
			Winner:            winner,
			WinningReason:     fmt.Sprintf("Strictly better time complexity: %s.", better.EstimatedTimeComplexity),
			ComparisonSummary: summary,
		}
	}

	if p1.SimilarityToRefSolutionScore != p2.SimilarityToRefSolutionScore {
		winner := model.WinnerPlayer1
		if p2.SimilarityToRefSolutionScore > p1.SimilarityToRefSolutionScore {
			winner = model.WinnerPlayer2
		}
		return &judge.AdjudicationResult{
			Winner:            winner,
			WinningReason:     "Equal time complexity; closer algorithmic match to the reference solution.",
			ComparisonSummary: summary,
		}
	}

	return &judge.AdjudicationResult{
		Winner:            model.WinnerDraw,
		WinningReason:     "Both solutions are correct with equivalent complexity and similarity.",
		ComparisonSummary: summary,
	}
}

func compareBothIncorrect(p1, p2 *model.Evaluation) *judge.AdjudicationResult {
	summary := fmt.Sprintf(
		"Neither solution looks correct. Similarity to the reference: player 1 %.2f, player 2 %.2f.",
		p1.SimilarityToRefSolutionScore, p2.SimilarityToRefSolutionScore,
	)

	if p1.SimilarityToRefSolutionScore != p2.SimilarityToRefSolutionScore {
		winner := model.WinnerPlayer1
		if p2.SimilarityToRefSolutionScore > p1.SimilarityToRefSolutionScore {
			winner = model.WinnerPlayer2
		}
		return &judge.AdjudicationResult{
			Winner:            winner,
			WinningReason:     "Neither solution is correct, but this attempt is closer to the reference solution.",
			ComparisonSummary: summary,
		}
	}

	return &judge.AdjudicationResult{
		Winner:            model.WinnerDraw,
		WinningReason:     "Neither solution is correct and neither is meaningfully closer.",
		ComparisonSummary: summary,
	}
}

// AIAdjudicatedComparator delegates the close call to the external judge,
// matching the legacy qualitative adjudication. Non-deterministic; the
// rule-based strategy is the one exercised in tests.
type AIAdjudicatedComparator struct {
	judge judge.Judge
}

// NewAIAdjudicatedComparator wraps the judge as a comparison strategy.
func NewAIAdjudicatedComparator(j judge.Judge) *AIAdjudicatedComparator {
	return &AIAdjudicatedComparator{judge: j}
}

// Compare implements Comparator. Propagates ErrJudgeFailure if the
// adjudication call yields no result.
func (c *AIAdjudicatedComparator) Compare(ctx context.Context, problemStatement string, p1, p2 *model.Evaluation) (*judge.AdjudicationResult, error) {
	return c.judge.Adjudicate(ctx, judge.AdjudicationRequest{
		ProblemStatement:  problemStatement,
		Player1Evaluation: p1,
		Player2Evaluation: p2,
	})
}
