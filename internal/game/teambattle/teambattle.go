// Package teambattle resolves 4v4 team matches. Unlike the 1v1 path there
// is no qualitative adjudication step: the outcome is fully determined by
// the eight individual evaluations.
package teambattle

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"codeduel-backend/internal/game/scoring"
	"codeduel-backend/internal/judge"
	"codeduel-backend/internal/metrics"
	"codeduel-backend/internal/model"
)

// TeamSize is the fixed roster size per side.
const TeamSize = 4

// Submission is one roster slot's entry. HasSubmitted false (or empty
// code) means the player forfeited the round.
type Submission struct {
	PlayerID     string
	HasSubmitted bool
	Code         string
	Language     string
}

// Resolver settles 4v4 team battles.
type Resolver struct {
	judge judge.Judge
}

// NewResolver creates a team battle resolver.
func NewResolver(j judge.Judge) *Resolver {
	return &Resolver{judge: j}
}

// Resolve evaluates all eight submissions and determines the team winner.
// All evaluations are issued concurrently with no ordering dependency; each
// result is keyed by roster index, so aggregation needs no locking. A slot
// that never submitted contributes score 0 and is never sent to the judge.
// A failed evaluation scores 0 for that slot; the match still settles.
func (r *Resolver) Resolve(ctx context.Context, problem *model.Problem, team1, team2 []Submission) (*model.TeamMatchOutcome, error) {
	if len(team1) != TeamSize || len(team2) != TeamSize {
		return nil, judge.ErrInvalidInput
	}

	results1 := make([]model.TeamPlayerResult, TeamSize)
	results2 := make([]model.TeamPlayerResult, TeamSize)

	g, gctx := errgroup.WithContext(ctx)
	for i := range team1 {
		g.Go(r.evaluateSlot(gctx, problem, team1[i], &results1[i]))
	}
	for i := range team2 {
		g.Go(r.evaluateSlot(gctx, problem, team2[i], &results2[i]))
	}
	if err := g.Wait(); err != nil {
		// evaluateSlot never returns an error; failures become zero scores.
		return nil, err
	}

	outcome := &model.TeamMatchOutcome{
		Team1: results1,
		Team2: results2,
	}
	for i := range results1 {
		outcome.Team1Score += results1[i].Score
		outcome.Team2Score += results2[i].Score
	}

	switch {
	case outcome.Team1Score > outcome.Team2Score:
		outcome.WinnerTeam = model.TeamWinnerTeam1
	case outcome.Team2Score > outcome.Team1Score:
		outcome.WinnerTeam = model.TeamWinnerTeam2
	default:
		outcome.WinnerTeam = model.TeamWinnerDraw
	}
	return outcome, nil
}

func (r *Resolver) evaluateSlot(ctx context.Context, problem *model.Problem, sub Submission, out *model.TeamPlayerResult) func() error {
	return func() error {
		out.PlayerID = sub.PlayerID

		// Never judge absent code.
		if !sub.HasSubmitted || sub.Code == "" {
			metrics.CountEvaluation("skipped")
			return nil
		}

		eval, err := r.judge.EvaluateSubmission(ctx, judge.EvaluationRequest{
			Code:              sub.Code,
			ReferenceSolution: problem.Solution,
			ProblemStatement:  problem.ProblemStatement,
			Language:          sub.Language,
			Difficulty:        problem.Difficulty,
		})
		if err != nil {
			// Policy: a failed evaluation scores 0 so the match still
			// reaches a terminal state.
			log.Warn().Err(err).Str("player_id", sub.PlayerID).
				Msg("team evaluation failed, scoring slot as zero")
			metrics.CountEvaluation("failed")
			return nil
		}

		if eval.IsPotentiallyCorrect {
			metrics.CountEvaluation("correct")
		} else {
			metrics.CountEvaluation("incorrect")
		}
		out.Evaluation = eval
		out.Score = scoring.Score(eval)
		return nil
	}
}
