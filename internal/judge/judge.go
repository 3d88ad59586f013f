// Package judge integrates the external AI judge that evaluates code
// submissions, adjudicates close duels, and generates challenges.
package judge

import (
	"context"
	"errors"

	"codeduel-backend/internal/model"
)

// Common errors for judge operations.
var (
	// ErrJudgeFailure means the judge returned no usable structured result.
	// It is not retried here; callers choose a deterministic fallback policy.
	ErrJudgeFailure = errors.New("judge returned no usable result")
	// ErrInvalidInput means the request was malformed and never sent.
	ErrInvalidInput = errors.New("invalid judge request")
)

// EvaluationRequest carries one code submission to the judge.
type EvaluationRequest struct {
	Code              string           `json:"code"`
	ReferenceSolution string           `json:"referenceSolution"`
	ProblemStatement  string           `json:"problemStatement"`
	Language          string           `json:"language"`
	Difficulty        model.Difficulty `json:"difficulty"`
}

// Validate rejects malformed requests at the boundary.
func (r *EvaluationRequest) Validate() error {
	if !r.Difficulty.Valid() {
		return ErrInvalidInput
	}
	if r.Code == "" || r.ProblemStatement == "" || r.Language == "" {
		return ErrInvalidInput
	}
	return nil
}

// AdjudicationRequest asks the judge to pick a winner between two
// evaluations that correctness alone could not separate.
type AdjudicationRequest struct {
	ProblemStatement  string            `json:"problemStatement"`
	Player1Evaluation *model.Evaluation `json:"player1Evaluation"`
	Player2Evaluation *model.Evaluation `json:"player2Evaluation"`
}

// AdjudicationResult is the judge's call on a close duel.
type AdjudicationResult struct {
	Winner            model.Winner `json:"winner"`
	WinningReason     string       `json:"winningReason"`
	ComparisonSummary string       `json:"comparisonSummary"`
}

// Judge is the external AI judging service. Calls have no side effects
// beyond returning structured data, so at-least-once invocation is safe.
type Judge interface {
	// EvaluateSubmission judges one submission. Returns ErrJudgeFailure if
	// the service produced no structured output.
	EvaluateSubmission(ctx context.Context, req EvaluationRequest) (*model.Evaluation, error)

	// Adjudicate resolves a close duel. Returns ErrJudgeFailure if the
	// service produced no structured output.
	Adjudicate(ctx context.Context, req AdjudicationRequest) (*AdjudicationResult, error)

	// GenerateChallenge produces a problem suited to the player's rank.
	GenerateChallenge(ctx context.Context, playerRank int, difficulty model.Difficulty) (*model.Problem, error)
}
