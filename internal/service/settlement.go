package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"codeduel-backend/internal/game/achievement"
	"codeduel-backend/internal/game/duel"
	"codeduel-backend/internal/game/teambattle"
	"codeduel-backend/internal/judge"
	"codeduel-backend/internal/metrics"
	"codeduel-backend/internal/model"
	"codeduel-backend/internal/pkg/lock"
	"codeduel-backend/internal/repository"
)

// lockTimeout bounds how long a settlement waits for a player's lock.
const lockTimeout = 30 * time.Second

// PlayerStore is the slice of the player repository settlement needs.
type PlayerStore interface {
	GetByID(ctx context.Context, id string) (*model.Player, error)
	Save(ctx context.Context, p *model.Player) error
	AdjustCoins(ctx context.Context, id string, amount int64) (*model.Player, error)
}

// LedgerStore records coin movements.
type LedgerStore interface {
	Create(ctx context.Context, playerID string, amount int64, txType string, matchID *string) (*model.CoinTransaction, error)
}

// MatchStore persists settled match reports.
type MatchStore interface {
	CreateDuel(ctx context.Context, id string, difficulty model.Difficulty, wager int64, outcome *model.MatchOutcome) (*repository.MatchRecord, error)
	CreateTeamBattle(ctx context.Context, id string, difficulty model.Difficulty, wager int64, outcome *model.TeamMatchOutcome) (*repository.MatchRecord, error)
}

// SettlementService drives a match from completed submissions to a
// persisted terminal state: evaluations, outcome, wager payout, stat and
// achievement updates.
type SettlementService struct {
	players PlayerStore
	ledger  LedgerStore
	matches MatchStore
	duels   *duel.Resolver
	teams   *teambattle.Resolver
	locks   *lock.PlayerLock
	catalog []achievement.Achievement
	wager   WagerRules
}

// NewSettlementService creates a settlement service.
func NewSettlementService(
	players PlayerStore,
	ledger LedgerStore,
	matches MatchStore,
	duels *duel.Resolver,
	teams *teambattle.Resolver,
	locks *lock.PlayerLock,
	catalog []achievement.Achievement,
	wager WagerRules,
) *SettlementService {
	return &SettlementService{
		players: players,
		ledger:  ledger,
		matches: matches,
		duels:   duels,
		teams:   teams,
		locks:   locks,
		catalog: catalog,
		wager:   wager,
	}
}

// DuelRequest describes a finished 1v1 match awaiting settlement.
type DuelRequest struct {
	Difficulty model.Difficulty
	Stake      int64
	Problem    *model.Problem
	Player1    duel.Submission
	Player2    duel.Submission
}

// PlayerSettlement is the per-player outcome of a settlement.
type PlayerSettlement struct {
	Player        *model.Player             `json:"player"`
	NewlyUnlocked []achievement.Achievement `json:"newlyUnlocked"`
}

// DuelSettlement is the full report of a settled duel.
type DuelSettlement struct {
	MatchID string                       `json:"matchId"`
	Outcome *model.MatchOutcome          `json:"outcome"`
	Players map[string]*PlayerSettlement `json:"players"`
}

// SettleDuel settles a 1v1 match end to end. On a judge failure both
// stakes are refunded and the error is surfaced, so the match still
// reaches a terminal state for its players.
func (s *SettlementService) SettleDuel(ctx context.Context, req DuelRequest) (*DuelSettlement, error) {
	if !req.Difficulty.Valid() || req.Problem == nil || req.Player1.PlayerID == req.Player2.PlayerID {
		return nil, judge.ErrInvalidInput
	}
	if err := s.wager.ValidateStake(req.Stake); err != nil {
		return nil, err
	}

	unlock, err := s.lockAll(ctx, req.Player1.PlayerID, req.Player2.PlayerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	matchID := uuid.NewString()

	// Escrow both stakes before any judge call.
	staked, err := s.stakeAll(ctx, matchID, req.Stake, req.Player1.PlayerID, req.Player2.PlayerID)
	if err != nil {
		s.refund(ctx, matchID, req.Stake, staked)
		return nil, err
	}

	outcome, err := s.duels.ResolveSubmissions(ctx, req.Problem, req.Player1, req.Player2)
	if err != nil {
		// Abort with refund: the terminal state is "no contest".
		s.refund(ctx, matchID, req.Stake, staked)
		return nil, fmt.Errorf("duel %s aborted: %w", matchID, err)
	}

	if _, err := s.matches.CreateDuel(ctx, matchID, req.Difficulty, req.Stake, outcome); err != nil {
		s.refund(ctx, matchID, req.Stake, staked)
		return nil, err
	}

	// Pay out the pot, or return the stakes on a draw.
	switch outcome.Winner {
	case model.WinnerPlayer1:
		s.payout(ctx, matchID, req.Player1.PlayerID, s.wager.DuelPayout(req.Stake))
	case model.WinnerPlayer2:
		s.payout(ctx, matchID, req.Player2.PlayerID, s.wager.DuelPayout(req.Stake))
	default:
		s.refund(ctx, matchID, req.Stake, staked)
	}

	p1Pre, p2Pre := staked[req.Player1.PlayerID], staked[req.Player2.PlayerID]
	settlements := map[string]*PlayerSettlement{}

	p1Result := model.MatchResult{
		Won:             outcome.Winner == model.WinnerPlayer1,
		OpponentRank:    p2Pre.Rank,
		LobbyDifficulty: req.Difficulty,
	}
	p2Result := model.MatchResult{
		Won:             outcome.Winner == model.WinnerPlayer2,
		OpponentRank:    p1Pre.Rank,
		LobbyDifficulty: req.Difficulty,
	}

	ps1, err := s.settlePlayer(ctx, matchID, req.Player1.PlayerID, p1Result)
	if err != nil {
		return nil, err
	}
	ps2, err := s.settlePlayer(ctx, matchID, req.Player2.PlayerID, p2Result)
	if err != nil {
		return nil, err
	}
	settlements[req.Player1.PlayerID] = ps1
	settlements[req.Player2.PlayerID] = ps2

	metrics.CountSettlement("duel", string(outcome.Winner))
	log.Info().
		Str("match_id", matchID).
		Str("winner", string(outcome.Winner)).
		Int64("stake", req.Stake).
		Msg("Duel settled")

	return &DuelSettlement{MatchID: matchID, Outcome: outcome, Players: settlements}, nil
}

// TeamRequest describes a finished 4v4 match awaiting settlement.
type TeamRequest struct {
	Difficulty model.Difficulty
	Stake      int64
	Problem    *model.Problem
	Team1      []teambattle.Submission
	Team2      []teambattle.Submission
}

// TeamSettlement is the full report of a settled team battle.
type TeamSettlement struct {
	MatchID string                       `json:"matchId"`
	Outcome *model.TeamMatchOutcome      `json:"outcome"`
	Players map[string]*PlayerSettlement `json:"players"`
}

// SettleTeamBattle settles a 4v4 match end to end. Individual judge
// failures inside the resolver score the affected slot as zero, so the
// match always terminates once stakes are in escrow.
func (s *SettlementService) SettleTeamBattle(ctx context.Context, req TeamRequest) (*TeamSettlement, error) {
	if !req.Difficulty.Valid() || req.Problem == nil ||
		len(req.Team1) != teambattle.TeamSize || len(req.Team2) != teambattle.TeamSize {
		return nil, judge.ErrInvalidInput
	}
	if err := s.wager.ValidateStake(req.Stake); err != nil {
		return nil, err
	}

	ids := make([]string, 0, 2*teambattle.TeamSize)
	seen := make(map[string]struct{}, 2*teambattle.TeamSize)
	for _, sub := range append(append([]teambattle.Submission{}, req.Team1...), req.Team2...) {
		// A player can hold only one roster slot; a duplicate would
		// self-deadlock the lock acquisition below.
		if _, dup := seen[sub.PlayerID]; dup {
			return nil, judge.ErrInvalidInput
		}
		seen[sub.PlayerID] = struct{}{}
		ids = append(ids, sub.PlayerID)
	}

	unlock, err := s.lockAll(ctx, ids...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	matchID := uuid.NewString()

	staked, err := s.stakeAll(ctx, matchID, req.Stake, ids...)
	if err != nil {
		s.refund(ctx, matchID, req.Stake, staked)
		return nil, err
	}

	outcome, err := s.teams.Resolve(ctx, req.Problem, req.Team1, req.Team2)
	if err != nil {
		s.refund(ctx, matchID, req.Stake, staked)
		return nil, fmt.Errorf("team battle %s aborted: %w", matchID, err)
	}

	if _, err := s.matches.CreateTeamBattle(ctx, matchID, req.Difficulty, req.Stake, outcome); err != nil {
		s.refund(ctx, matchID, req.Stake, staked)
		return nil, err
	}

	var winners []teambattle.Submission
	switch outcome.WinnerTeam {
	case model.TeamWinnerTeam1:
		winners = req.Team1
	case model.TeamWinnerTeam2:
		winners = req.Team2
	default:
		s.refund(ctx, matchID, req.Stake, staked)
	}
	if winners != nil {
		share := s.wager.TeamPayout(req.Stake, teambattle.TeamSize)
		for _, sub := range winners {
			s.payout(ctx, matchID, sub.PlayerID, share)
		}
	}

	team1Rank := topRank(staked, req.Team1)
	team2Rank := topRank(staked, req.Team2)

	settlements := map[string]*PlayerSettlement{}
	settle := func(team []teambattle.Submission, won bool, opponentRank int) error {
		for _, sub := range team {
			ps, err := s.settlePlayer(ctx, matchID, sub.PlayerID, model.MatchResult{
				Won:             won,
				OpponentRank:    opponentRank,
				LobbyDifficulty: req.Difficulty,
			})
			if err != nil {
				return err
			}
			settlements[sub.PlayerID] = ps
		}
		return nil
	}
	if err := settle(req.Team1, outcome.WinnerTeam == model.TeamWinnerTeam1, team2Rank); err != nil {
		return nil, err
	}
	if err := settle(req.Team2, outcome.WinnerTeam == model.TeamWinnerTeam2, team1Rank); err != nil {
		return nil, err
	}

	metrics.CountSettlement("team", string(outcome.WinnerTeam))
	log.Info().
		Str("match_id", matchID).
		Str("winner", string(outcome.WinnerTeam)).
		Int("team1_score", outcome.Team1Score).
		Int("team2_score", outcome.Team2Score).
		Msg("Team battle settled")

	return &TeamSettlement{MatchID: matchID, Outcome: outcome, Players: settlements}, nil
}

// settlePlayer applies one match result to one player: stat transition,
// achievement unlocks, rewards, and persistence.
func (s *SettlementService) settlePlayer(ctx context.Context, matchID, playerID string, result model.MatchResult) (*PlayerSettlement, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	settled := achievement.SettleMatch(player, result, s.catalog)
	if err := s.players.Save(ctx, settled.UpdatedPlayer); err != nil {
		return nil, err
	}

	for _, a := range settled.NewlyUnlocked {
		log.Info().
			Str("player_id", playerID).
			Str("achievement", a.ID).
			Int64("reward", a.RewardCoins).
			Msg("Achievement unlocked")
		if a.RewardCoins > 0 {
			if _, err := s.ledger.Create(ctx, playerID, a.RewardCoins, model.TxTypeAchievementReward, &matchID); err != nil {
				log.Error().Err(err).Str("player_id", playerID).Msg("failed to record achievement reward")
			}
		}
	}

	return &PlayerSettlement{Player: settled.UpdatedPlayer, NewlyUnlocked: settled.NewlyUnlocked}, nil
}

// lockAll acquires every player's lock in sorted id order to avoid
// deadlock between concurrent settlements sharing players.
func (s *SettlementService) lockAll(ctx context.Context, ids ...string) (func(), error) {
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)

	locked := make([]string, 0, len(sorted))
	release := func() {
		for i := len(locked) - 1; i >= 0; i-- {
			s.locks.Unlock(locked[i])
		}
	}
	for _, id := range sorted {
		if !s.locks.LockWithTimeout(ctx, id, lockTimeout) {
			release()
			return nil, lock.ErrLockTimeout
		}
		locked = append(locked, id)
	}
	return release, nil
}

// stakeAll deducts the stake from every player, recording each movement.
// Returns the pre-match records keyed by id; on any failure the already
// staked players are reported back for refund.
func (s *SettlementService) stakeAll(ctx context.Context, matchID string, stake int64, ids ...string) (map[string]*model.Player, error) {
	staked := make(map[string]*model.Player, len(ids))
	for _, id := range ids {
		// Capture the pre-match record before the deduction touches it.
		pre, err := s.players.GetByID(ctx, id)
		if err != nil {
			return staked, err
		}
		if pre.Coins < stake {
			return staked, fmt.Errorf("player %s: %w", id, ErrInsufficientCoins)
		}
		if _, err := s.players.AdjustCoins(ctx, id, -stake); err != nil {
			return staked, err
		}
		if _, err := s.ledger.Create(ctx, id, -stake, model.TxTypeWagerStake, &matchID); err != nil {
			log.Error().Err(err).Str("player_id", id).Msg("failed to record stake")
		}
		staked[id] = pre
	}
	return staked, nil
}

// refund returns the stake to every player that already paid it.
func (s *SettlementService) refund(ctx context.Context, matchID string, stake int64, staked map[string]*model.Player) {
	for id := range staked {
		if _, err := s.players.AdjustCoins(ctx, id, stake); err != nil {
			log.Error().Err(err).Str("player_id", id).Msg("failed to refund stake")
			continue
		}
		if _, err := s.ledger.Create(ctx, id, stake, model.TxTypeWagerRefund, &matchID); err != nil {
			log.Error().Err(err).Str("player_id", id).Msg("failed to record refund")
		}
	}
}

// payout credits a winner and records the movement.
func (s *SettlementService) payout(ctx context.Context, matchID, playerID string, amount int64) {
	if _, err := s.players.AdjustCoins(ctx, playerID, amount); err != nil {
		log.Error().Err(err).Str("player_id", playerID).Msg("failed to pay out wager")
		return
	}
	if _, err := s.ledger.Create(ctx, playerID, amount, model.TxTypeWagerPayout, &matchID); err != nil {
		log.Error().Err(err).Str("player_id", playerID).Msg("failed to record payout")
	}
}

// topRank returns the best (highest) pre-match rank on a roster, used as
// the opposing-rank input to rank-sensitive achievements.
func topRank(staked map[string]*model.Player, team []teambattle.Submission) int {
	top := 0
	for _, sub := range team {
		if p, ok := staked[sub.PlayerID]; ok && p.Rank > top {
			top = p.Rank
		}
	}
	return top
}
