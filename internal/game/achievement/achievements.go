// Package achievement implements the pure achievement evaluation that runs
// as part of match settlement.
package achievement

import "codeduel-backend/internal/model"

// Kind classifies how an achievement unlocks.
type Kind string

const (
	// KindCounter unlocks when a tracked stat reaches a goal threshold.
	KindCounter Kind = "counter"
	// KindBoolean unlocks when a tracked stat reaches its goal threshold;
	// an unset goal defaults to 1.
	KindBoolean Kind = "boolean"
	// KindEvent unlocks on a specific match event, keyed by achievement id.
	KindEvent Kind = "event"
)

// TrackedStat is the closed set of player stats an achievement can track.
type TrackedStat string

const (
	StatNone          TrackedStat = ""
	StatWins          TrackedStat = "wins"
	StatMatchesPlayed TrackedStat = "matchesPlayed"
	StatWinStreak     TrackedStat = "winStreak"
	StatRank          TrackedStat = "rank"
	StatRating        TrackedStat = "rating"
)

// ReadStat reads one tracked stat off a player record. The switch is
// exhaustive over TrackedStat; StatNone and unknown values read as 0.
func ReadStat(p *model.Player, stat TrackedStat) int {
	switch stat {
	case StatWins:
		return p.Wins
	case StatMatchesPlayed:
		return p.MatchesPlayed
	case StatWinStreak:
		return p.WinStreak
	case StatRank:
		return p.Rank
	case StatRating:
		return p.Rating
	default:
		return 0
	}
}

// Achievement is a static definition. The catalog is configuration data
// passed into the engine, never consulted as a package global.
type Achievement struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Kind        Kind        `json:"kind"`
	TrackedStat TrackedStat `json:"trackedStat,omitempty"`
	Goal        int         `json:"goal,omitempty"`
	RewardCoins int64       `json:"rewardCoins,omitempty"`
}

// Event achievement ids with hard-coded unlock conditions.
const (
	IDHighRoller  = "high_roller"
	IDTop10       = "top_10"
	IDGiantSlayer = "giant_slayer"
)

// DefaultAchievements returns the production achievement catalog. The slice
// order is the stable evaluation and unlock order.
func DefaultAchievements() []Achievement {
	return []Achievement{
		{
			ID:          "first_win",
			Name:        "First Blood",
			Description: "Win your first duel.",
			Kind:        KindCounter,
			TrackedStat: StatWins,
			Goal:        1,
			RewardCoins: 50,
		},
		{
			ID:          "hot_streak_3",
			Name:        "Hot Streak",
			Description: "Win three matches in a row.",
			Kind:        KindCounter,
			TrackedStat: StatWinStreak,
			Goal:        3,
			RewardCoins: 100,
		},
		{
			ID:          "hot_streak_5",
			Name:        "Unstoppable",
			Description: "Win five matches in a row.",
			Kind:        KindCounter,
			TrackedStat: StatWinStreak,
			Goal:        5,
			RewardCoins: 250,
		},
		{
			ID:          "veteran_10",
			Name:        "Veteran",
			Description: "Play ten matches.",
			Kind:        KindCounter,
			TrackedStat: StatMatchesPlayed,
			Goal:        10,
			RewardCoins: 100,
		},
		{
			ID:          "centurion",
			Name:        "Centurion",
			Description: "Play one hundred matches.",
			Kind:        KindCounter,
			TrackedStat: StatMatchesPlayed,
			Goal:        100,
			RewardCoins: 500,
		},
		{
			ID:          "conqueror_25",
			Name:        "Conqueror",
			Description: "Win twenty-five matches.",
			Kind:        KindCounter,
			TrackedStat: StatWins,
			Goal:        25,
			RewardCoins: 300,
		},
		{
			ID:          IDHighRoller,
			Name:        "High Roller",
			Description: "Win a match in a hard lobby.",
			Kind:        KindEvent,
		},
		{
			ID:          IDTop10,
			Name:        "Top 10",
			Description: "Reach the top ten ranks.",
			Kind:        KindEvent,
		},
		{
			ID:          IDGiantSlayer,
			Name:        "Giant Slayer",
			Description: "Beat an opponent ranked at least five above you.",
			Kind:        KindEvent,
			RewardCoins: 150,
		},
	}
}
