// Package teambattle tests for the 4v4 resolver.
package teambattle

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"codeduel-backend/internal/game/scoring"
	"codeduel-backend/internal/judge"
	"codeduel-backend/internal/model"
)

// fakeJudge maps submission code to a scripted evaluation and counts calls.
type fakeJudge struct {
	evals     map[string]*model.Evaluation
	failCodes map[string]bool
	calls     atomic.Int64
}

func (f *fakeJudge) EvaluateSubmission(_ context.Context, req judge.EvaluationRequest) (*model.Evaluation, error) {
	f.calls.Add(1)
	if f.failCodes[req.Code] {
		return nil, judge.ErrJudgeFailure
	}
	if eval, ok := f.evals[req.Code]; ok {
		return eval, nil
	}
	return nil, judge.ErrJudgeFailure
}

func (f *fakeJudge) Adjudicate(context.Context, judge.AdjudicationRequest) (*judge.AdjudicationResult, error) {
	return nil, judge.ErrJudgeFailure
}

func (f *fakeJudge) GenerateChallenge(context.Context, int, model.Difficulty) (*model.Problem, error) {
	return nil, judge.ErrJudgeFailure
}

func testProblem() *model.Problem {
	return &model.Problem{
		ProblemStatement: "merge k sorted lists",
		Difficulty:       model.DifficultyHard,
		Solution:         "ref",
	}
}

func submitted(id, code string) Submission {
	return Submission{PlayerID: id, HasSubmitted: true, Code: code, Language: "go"}
}

func forfeited(id string) Submission {
	return Submission{PlayerID: id, HasSubmitted: false}
}

// TestResolveSumsAndWinner tests score aggregation and the winner rule.
func TestResolveSumsAndWinner(t *testing.T) {
	j := &fakeJudge{evals: map[string]*model.Evaluation{
		"optimal": {IsPotentiallyCorrect: true, CorrectnessExplanation: "ok", SimilarityToRefSolutionScore: 0.9, EstimatedTimeComplexity: "O(n)"}, // 175
		"plain":   {IsPotentiallyCorrect: true, CorrectnessExplanation: "ok", SimilarityToRefSolutionScore: 0.1, EstimatedTimeComplexity: "O(n^2)"}, // 100
		"wrong":   {IsPotentiallyCorrect: false, CorrectnessExplanation: "off by one"}, // 0
	}}
	r := NewResolver(j)

	team1 := []Submission{
		submitted("a1", "optimal"),
		submitted("a2", "plain"),
		submitted("a3", "wrong"),
		forfeited("a4"),
	}
	team2 := []Submission{
		submitted("b1", "plain"),
		submitted("b2", "plain"),
		forfeited("b3"),
		forfeited("b4"),
	}

	outcome, err := r.Resolve(context.Background(), testProblem(), team1, team2)
	require.NoError(t, err)

	assert.Equal(t, 275, outcome.Team1Score)
	assert.Equal(t, 200, outcome.Team2Score)
	assert.Equal(t, model.TeamWinnerTeam1, outcome.WinnerTeam)

	// Team scores equal the sum of the individual slot scores.
	sum := 0
	for _, res := range append(outcome.Team1, outcome.Team2...) {
		sum += res.Score
	}
	assert.Equal(t, outcome.Team1Score+outcome.Team2Score, sum)

	// Only the five actual submissions reached the judge.
	assert.EqualValues(t, 5, j.calls.Load())
}

// TestResolveForfeitsNeverCallJudge tests the cost-saving rule: a slot
// without a submission scores 0 and never triggers a judge call.
func TestResolveForfeitsNeverCallJudge(t *testing.T) {
	j := &fakeJudge{}
	r := NewResolver(j)

	team1 := []Submission{forfeited("a1"), forfeited("a2"), forfeited("a3"), forfeited("a4")}
	team2 := []Submission{forfeited("b1"), forfeited("b2"), forfeited("b3"), {PlayerID: "b4", HasSubmitted: true, Code: ""}}

	outcome, err := r.Resolve(context.Background(), testProblem(), team1, team2)
	require.NoError(t, err)

	// Both teams forfeit entirely: 0-0 is a draw.
	assert.Equal(t, 0, outcome.Team1Score)
	assert.Equal(t, 0, outcome.Team2Score)
	assert.Equal(t, model.TeamWinnerDraw, outcome.WinnerTeam)
	assert.EqualValues(t, 0, j.calls.Load())

	for _, res := range append(outcome.Team1, outcome.Team2...) {
		assert.Nil(t, res.Evaluation)
		assert.Zero(t, res.Score)
	}
}

// TestResolveTeam2Wins covers the remaining winner case.
func TestResolveTeam2Wins(t *testing.T) {
	j := &fakeJudge{evals: map[string]*model.Evaluation{
		"plain": {IsPotentiallyCorrect: true, CorrectnessExplanation: "ok", EstimatedTimeComplexity: "O(n^3)"},
	}}
	r := NewResolver(j)

	team1 := []Submission{forfeited("a1"), forfeited("a2"), forfeited("a3"), forfeited("a4")}
	team2 := []Submission{submitted("b1", "plain"), forfeited("b2"), forfeited("b3"), forfeited("b4")}

	outcome, err := r.Resolve(context.Background(), testProblem(), team1, team2)
	require.NoError(t, err)
	assert.Equal(t, model.TeamWinnerTeam2, outcome.WinnerTeam)
}

// TestResolveJudgeFailureScoresZero tests that a failed evaluation still
// produces a terminal outcome with that slot scoring 0.
func TestResolveJudgeFailureScoresZero(t *testing.T) {
	j := &fakeJudge{
		evals: map[string]*model.Evaluation{
			"plain": {IsPotentiallyCorrect: true, CorrectnessExplanation: "ok", EstimatedTimeComplexity: "O(n^2)"},
		},
		failCodes: map[string]bool{"broken": true},
	}
	r := NewResolver(j)

	team1 := []Submission{submitted("a1", "broken"), forfeited("a2"), forfeited("a3"), forfeited("a4")}
	team2 := []Submission{submitted("b1", "plain"), forfeited("b2"), forfeited("b3"), forfeited("b4")}

	outcome, err := r.Resolve(context.Background(), testProblem(), team1, team2)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Team1Score)
	assert.Equal(t, 100, outcome.Team2Score)
	assert.Equal(t, model.TeamWinnerTeam2, outcome.WinnerTeam)
	assert.Nil(t, outcome.Team1[0].Evaluation)
}

// TestResolveRosterSize tests the fixed 4v4 shape.
func TestResolveRosterSize(t *testing.T) {
	r := NewResolver(&fakeJudge{})
	_, err := r.Resolve(context.Background(), testProblem(),
		[]Submission{forfeited("a1")},
		[]Submission{forfeited("b1"), forfeited("b2"), forfeited("b3"), forfeited("b4")},
	)
	assert.ErrorIs(t, err, judge.ErrInvalidInput)
}

// TestResolveWinnerProperty tests the winner rule over random rosters.
// *For any* mix of submissions, the team with the strictly greater score
// wins and equal scores draw, with the totals matching per-slot scores.
func TestResolveWinnerProperty(t *testing.T) {
	evalPool := map[string]*model.Evaluation{
		"optimal": {IsPotentiallyCorrect: true, CorrectnessExplanation: "ok", SimilarityToRefSolutionScore: 0.95, EstimatedTimeComplexity: "O(1)"},
		"similar": {IsPotentiallyCorrect: true, CorrectnessExplanation: "ok", SimilarityToRefSolutionScore: 0.85, EstimatedTimeComplexity: "O(n^2)"},
		"plain":   {IsPotentiallyCorrect: true, CorrectnessExplanation: "ok", SimilarityToRefSolutionScore: 0.2, EstimatedTimeComplexity: "O(n log n)"},
		"wrong":   {IsPotentiallyCorrect: false, CorrectnessExplanation: "nope"},
	}
	codes := []string{"optimal", "similar", "plain", "wrong", ""}

	rapid.Check(t, func(t *rapid.T) {
		j := &fakeJudge{evals: evalPool}
		r := NewResolver(j)

		genTeam := func(prefix string) []Submission {
			team := make([]Submission, TeamSize)
			for i := range team {
				code := rapid.SampledFrom(codes).Draw(t, prefix)
				team[i] = Submission{
					PlayerID:     prefix,
					HasSubmitted: code != "",
					Code:         code,
					Language:     "go",
				}
			}
			return team
		}
		team1 := genTeam("t1")
		team2 := genTeam("t2")

		outcome, err := r.Resolve(context.Background(), testProblem(), team1, team2)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		expectedScore := func(team []Submission) int {
			total := 0
			for _, sub := range team {
				if sub.HasSubmitted && sub.Code != "" {
					total += scoring.Score(evalPool[sub.Code])
				}
			}
			return total
		}
		s1, s2 := expectedScore(team1), expectedScore(team2)
		if outcome.Team1Score != s1 || outcome.Team2Score != s2 {
			t.Fatalf("scores = %d/%d, want %d/%d", outcome.Team1Score, outcome.Team2Score, s1, s2)
		}

		switch {
		case s1 > s2 && outcome.WinnerTeam != model.TeamWinnerTeam1:
			t.Fatalf("winner = %s, want team1", outcome.WinnerTeam)
		case s2 > s1 && outcome.WinnerTeam != model.TeamWinnerTeam2:
			t.Fatalf("winner = %s, want team2", outcome.WinnerTeam)
		case s1 == s2 && outcome.WinnerTeam != model.TeamWinnerDraw:
			t.Fatalf("winner = %s, want draw", outcome.WinnerTeam)
		}
	})
}
