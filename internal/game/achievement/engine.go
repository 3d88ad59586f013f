package achievement

import "codeduel-backend/internal/model"

// Settlement is the result of settling one match for one player.
type Settlement struct {
	UpdatedPlayer *model.Player
	NewlyUnlocked []Achievement
}

// SettleMatch applies one completed match to a player's stats and evaluates
// the achievement catalog against the updated record. Pure: the input
// player is never mutated, and the unlocked set only grows.
//
// Stat transitions: matchesPlayed always increments; a win increments wins
// and winStreak; anything else increments losses and resets winStreak to 0.
//
// Unlock conditions are evaluated against the post-transition stats, except
// the rank-based event conditions, which deliberately read the pre-match
// rank (rank is never written inside settlement). Coin rewards are applied
// as each unlock is appended, in catalog order.
func SettleMatch(player *model.Player, result model.MatchResult, catalog []Achievement) Settlement {
	updated := player.Clone()

	updated.MatchesPlayed++
	if result.Won {
		updated.Wins++
		updated.WinStreak++
	} else {
		updated.Losses++
		updated.WinStreak = 0
	}

	var newlyUnlocked []Achievement
	for _, a := range catalog {
		if updated.HasAchievement(a.ID) {
			continue
		}
		if !unlocked(a, player, updated, result) {
			continue
		}
		updated.UnlockedAchievements = append(updated.UnlockedAchievements, a.ID)
		updated.Coins += a.RewardCoins
		newlyUnlocked = append(newlyUnlocked, a)
	}

	return Settlement{UpdatedPlayer: updated, NewlyUnlocked: newlyUnlocked}
}

// unlocked evaluates one achievement's condition. pre is the player record
// before the match, post the record after the stat transition.
func unlocked(a Achievement, pre, post *model.Player, result model.MatchResult) bool {
	switch a.Kind {
	case KindCounter:
		return a.TrackedStat != StatNone && ReadStat(post, a.TrackedStat) >= a.Goal
	case KindBoolean:
		// Same threshold rule as counters; an unset goal means 1.
		goal := a.Goal
		if goal < 1 {
			goal = 1
		}
		return a.TrackedStat != StatNone && ReadStat(post, a.TrackedStat) >= goal
	case KindEvent:
		switch a.ID {
		case IDHighRoller:
			return result.Won && result.LobbyDifficulty == model.DifficultyHard
		case IDTop10:
			return pre.Rank <= 10
		case IDGiantSlayer:
			return result.Won && result.OpponentRank >= pre.Rank+5
		}
	}
	return false
}
