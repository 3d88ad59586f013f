// Package duel resolves 1v1 matches. Correctness is the primary axis;
// close calls are delegated to a pluggable comparison strategy.
package duel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"codeduel-backend/internal/judge"
	"codeduel-backend/internal/model"
)

// Submission is one player's entry in a duel.
type Submission struct {
	PlayerID string
	Code     string
	Language string
}

// Resolver settles 1v1 duels.
type Resolver struct {
	judge judge.Judge
	cmp   Comparator
}

// NewResolver creates a duel resolver with the given comparison strategy.
func NewResolver(j judge.Judge, cmp Comparator) *Resolver {
	return &Resolver{judge: j, cmp: cmp}
}

// ResolveSubmissions evaluates both submissions concurrently and resolves
// the duel. A failed evaluation aborts the whole duel with ErrJudgeFailure;
// the caller refunds the wager.
func (r *Resolver) ResolveSubmissions(ctx context.Context, problem *model.Problem, sub1, sub2 Submission) (*model.MatchOutcome, error) {
	var e1, e2 *model.Evaluation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		e1, err = r.judge.EvaluateSubmission(gctx, judge.EvaluationRequest{
			Code:              sub1.Code,
			ReferenceSolution: problem.Solution,
			ProblemStatement:  problem.ProblemStatement,
			Language:          sub1.Language,
			Difficulty:        problem.Difficulty,
		})
		return err
	})
	g.Go(func() error {
		var err error
		e2, err = r.judge.EvaluateSubmission(gctx, judge.EvaluationRequest{
			Code:              sub2.Code,
			ReferenceSolution: problem.Solution,
			ProblemStatement:  problem.ProblemStatement,
			Language:          sub2.Language,
			Difficulty:        problem.Difficulty,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("duel evaluation failed: %w", err)
	}

	return r.Resolve(ctx, problem.ProblemStatement, e1, e2)
}

// Resolve determines the winner from two completed evaluations.
// Policy, in priority order:
//  1. Exactly one side correct: that side wins outright.
//  2. Both correct, or both incorrect: the comparison strategy decides.
//
// Cannot fail except by propagating ErrJudgeFailure from an AI-adjudicated
// comparison.
func (r *Resolver) Resolve(ctx context.Context, problemStatement string, e1, e2 *model.Evaluation) (*model.MatchOutcome, error) {
	if e1 == nil || e2 == nil {
		return nil, judge.ErrInvalidInput
	}

	outcome := &model.MatchOutcome{
		Player1Evaluation: e1,
		Player2Evaluation: e2,
	}

	switch {
	case e1.IsPotentiallyCorrect && !e2.IsPotentiallyCorrect:
		outcome.Winner = model.WinnerPlayer1
		outcome.WinningReason = "Only player 1's solution is judged correct."
		outcome.ComparisonSummary = oneCorrectSummary(e1, e2)
	case e2.IsPotentiallyCorrect && !e1.IsPotentiallyCorrect:
		outcome.Winner = model.WinnerPlayer2
		outcome.WinningReason = "Only player 2's solution is judged correct."
		outcome.ComparisonSummary = oneCorrectSummary(e2, e1)
	default:
		res, err := r.cmp.Compare(ctx, problemStatement, e1, e2)
		if err != nil {
			return nil, fmt.Errorf("duel adjudication failed: %w", err)
		}
		outcome.Winner = res.Winner
		outcome.WinningReason = res.WinningReason
		outcome.ComparisonSummary = res.ComparisonSummary
	}

	return outcome, nil
}

func oneCorrectSummary(correct, incorrect *model.Evaluation) string {
	return fmt.Sprintf(
		"One solution is judged correct (%s), the other is not: %s",
		correct.EstimatedTimeComplexity, incorrect.CorrectnessExplanation,
	)
}
