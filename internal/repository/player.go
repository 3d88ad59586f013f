// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeduel-backend/internal/model"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
)

const playerColumns = `id, username, coins, rank, rating, unlocked_achievements,
	matches_played, wins, losses, win_streak, is_kyc_verified, created_at, updated_at`

// StartingValues are the fixed values a player record is created with.
type StartingValues struct {
	Coins  int64
	Rank   int
	Rating int
}

// PlayerRepository handles player data persistence.
type PlayerRepository struct {
	pool     *pgxpool.Pool
	starting StartingValues
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool, starting StartingValues) *PlayerRepository {
	return &PlayerRepository{pool: pool, starting: starting}
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Coins,
		&p.Rank,
		&p.Rating,
		&p.UnlockedAchievements,
		&p.MatchesPlayed,
		&p.Wins,
		&p.Losses,
		&p.WinStreak,
		&p.IsKYCVerified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.UnlockedAchievements == nil {
		p.UnlockedAchievements = []string{}
	}
	return &p, nil
}

// Create creates a new player with the configured starting values.
func (r *PlayerRepository) Create(ctx context.Context, id, username string) (*model.Player, error) {
	query := fmt.Sprintf(`
		INSERT INTO players (id, username, coins, rank, rating, unlocked_achievements,
			matches_played, wins, losses, win_streak, is_kyc_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '{}', 0, 0, 0, 0, FALSE, NOW(), NOW())
		RETURNING %s
	`, playerColumns)

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, id, username,
		r.starting.Coins, r.starting.Rank, r.starting.Rating))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

// GetByID retrieves a player by id.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByID(ctx context.Context, id string) (*model.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE id = $1`, playerColumns)

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// GetOrCreate retrieves a player by id, creating the record at first login.
// Returns the player and whether it was newly created.
func (r *PlayerRepository) GetOrCreate(ctx context.Context, id, username string) (*model.Player, bool, error) {
	player, err := r.GetByID(ctx, id)
	if err == nil {
		return player, false, nil
	}
	if !errors.Is(err, ErrPlayerNotFound) {
		return nil, false, err
	}

	player, err = r.Create(ctx, id, username)
	if err != nil {
		// Handle race condition: another request might have created the player
		player, err = r.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return player, false, nil
	}
	return player, true, nil
}

// Save persists the settlement-mutable fields of a player record.
// One settlement is the record's single writer; callers serialize
// concurrent settlements for the same player.
func (r *PlayerRepository) Save(ctx context.Context, p *model.Player) error {
	const query = `
		UPDATE players
		SET coins = $2, rank = $3, rating = $4, unlocked_achievements = $5,
			matches_played = $6, wins = $7, losses = $8, win_streak = $9,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.Coins, p.Rank, p.Rating, p.UnlockedAchievements,
		p.MatchesPlayed, p.Wins, p.Losses, p.WinStreak)
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// AdjustCoins adds the given amount to a player's balance (negative to
// deduct) and returns the updated record. The balance never goes negative;
// an over-deduction fails with ErrInsufficientCoins.
func (r *PlayerRepository) AdjustCoins(ctx context.Context, id string, amount int64) (*model.Player, error) {
	query := fmt.Sprintf(`
		UPDATE players
		SET coins = coins + $2, updated_at = NOW()
		WHERE id = $1 AND coins + $2 >= 0
		RETURNING %s
	`, playerColumns)

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, id, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either no such player or the deduction would go negative.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInsufficientCoins
		}
		return nil, fmt.Errorf("failed to adjust coins: %w", err)
	}
	return player, nil
}

// ErrInsufficientCoins means a deduction would take a balance negative.
var ErrInsufficientCoins = errors.New("insufficient coins")
