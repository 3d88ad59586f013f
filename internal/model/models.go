// Package model defines the data models for the Code Duel backend.
package model

import "time"

// Difficulty is the lobby difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the three defined levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Winner identifies the winning side of a 1v1 duel.
type Winner string

const (
	WinnerPlayer1 Winner = "player1"
	WinnerPlayer2 Winner = "player2"
	WinnerDraw    Winner = "draw"
)

// TeamWinner identifies the winning side of a 4v4 team battle.
type TeamWinner string

const (
	TeamWinnerTeam1 TeamWinner = "team1"
	TeamWinnerTeam2 TeamWinner = "team2"
	TeamWinnerDraw  TeamWinner = "draw"
)

// Player represents a registered player account and its progress record.
// Coins are never persisted negative; coin-spend is validated before any
// settlement touches the record.
type Player struct {
	ID                   string    `db:"id"`
	Username             string    `db:"username"`
	Coins                int64     `db:"coins"`
	Rank                 int       `db:"rank"`
	Rating               int       `db:"rating"`
	UnlockedAchievements []string  `db:"unlocked_achievements"`
	MatchesPlayed        int       `db:"matches_played"`
	Wins                 int       `db:"wins"`
	Losses               int       `db:"losses"`
	WinStreak            int       `db:"win_streak"`
	IsKYCVerified        bool      `db:"is_kyc_verified"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// HasAchievement reports whether the player already unlocked the given
// achievement id.
func (p *Player) HasAchievement(id string) bool {
	for _, a := range p.UnlockedAchievements {
		if a == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the player. Settlement never mutates the
// record it was handed.
func (p *Player) Clone() *Player {
	cp := *p
	cp.UnlockedAchievements = make([]string, len(p.UnlockedAchievements))
	copy(cp.UnlockedAchievements, p.UnlockedAchievements)
	return &cp
}

// Problem is a generated coding challenge.
type Problem struct {
	ProblemStatement string     `json:"problemStatement"`
	Difficulty       Difficulty `json:"difficulty"`
	Solution         string     `json:"solution"`
}

// Evaluation is the AI judge's structured opinion of one code submission.
// Produced once per submission and immutable thereafter.
type Evaluation struct {
	IsPotentiallyCorrect               bool    `json:"isPotentiallyCorrect"`
	CorrectnessExplanation             string  `json:"correctnessExplanation"`
	SimilarityToRefSolutionScore       float64 `json:"similarityToRefSolutionScore"`
	SimilarityToRefSolutionExplanation string  `json:"similarityToRefSolutionExplanation"`
	EstimatedTimeComplexity            string  `json:"estimatedTimeComplexity"`
	EstimatedSpaceComplexity           string  `json:"estimatedSpaceComplexity"`
	CodeQualityFeedback                string  `json:"codeQualityFeedback"`
	OverallAssessment                  string  `json:"overallAssessment"`
}

// ComplexityUnknown is the literal the judge returns when it cannot
// estimate a complexity bound.
const ComplexityUnknown = "Unable to determine"

// MatchOutcome is the settled result of a 1v1 duel. Computed once at match
// end and embedded in the persisted battle record.
type MatchOutcome struct {
	Player1Evaluation *Evaluation `json:"player1Evaluation"`
	Player2Evaluation *Evaluation `json:"player2Evaluation"`
	Winner            Winner      `json:"winner"`
	WinningReason     string      `json:"winningReason"`
	ComparisonSummary string      `json:"comparisonSummary"`
}

// TeamPlayerResult is one roster slot's contribution to a team battle.
// Evaluation is nil when the player never submitted; such a slot scores 0
// without the judge ever being invoked.
type TeamPlayerResult struct {
	PlayerID   string      `json:"playerId"`
	Evaluation *Evaluation `json:"evaluation"`
	Score      int         `json:"score"`
}

// TeamMatchOutcome is the settled result of a 4v4 team battle.
type TeamMatchOutcome struct {
	Team1      []TeamPlayerResult `json:"team1"`
	Team2      []TeamPlayerResult `json:"team2"`
	Team1Score int                `json:"team1Score"`
	Team2Score int                `json:"team2Score"`
	WinnerTeam TeamWinner         `json:"winnerTeam"`
}

// MatchResult is the achievement-engine view of a completed match for one
// player. Constructed by the settlement flow and consumed once.
type MatchResult struct {
	Won             bool
	OpponentRank    int
	LobbyDifficulty Difficulty
}

// Lobby is the shared match document players observe while a match is being
// set up and settled. It carries no protocol of its own; it is read, written
// and listened to as a whole.
type Lobby struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"` // "duel" or "team"
	Difficulty Difficulty `json:"difficulty"`
	Wager      int64      `json:"wager"`
	Status     string     `json:"status"` // "open", "in_progress", "settled"
	PlayerIDs  []string   `json:"playerIds"`
	Problem    *Problem   `json:"problem,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Lobby status values.
const (
	LobbyStatusOpen       = "open"
	LobbyStatusInProgress = "in_progress"
	LobbyStatusSettled    = "settled"
)

// CoinTransaction records a single balance change on a player account.
type CoinTransaction struct {
	ID        int64     `db:"id"`
	PlayerID  string    `db:"player_id"`
	Amount    int64     `db:"amount"`
	Type      string    `db:"type"`
	MatchID   *string   `db:"match_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial           = "initial"            // Starting balance on account creation
	TxTypeWagerStake        = "wager_stake"        // Stake deducted at match start
	TxTypeWagerPayout       = "wager_payout"       // Pot paid to the winner
	TxTypeWagerRefund       = "wager_refund"       // Stake returned on a draw
	TxTypeAchievementReward = "achievement_reward" // Coin reward from an unlock
)
