// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"codeduel-backend/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = applySchema(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// applySchema creates the tables the repositories expect
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			coins BIGINT NOT NULL DEFAULT 500,
			rank INT NOT NULL DEFAULT 1,
			rating INT NOT NULL DEFAULT 1000,
			unlocked_achievements TEXT[] NOT NULL DEFAULT '{}',
			matches_played INT NOT NULL DEFAULT 0,
			wins INT NOT NULL DEFAULT 0,
			losses INT NOT NULL DEFAULT 0,
			win_streak INT NOT NULL DEFAULT 0,
			is_kyc_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT coins_non_negative CHECK (coins >= 0)
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS matches (
			id VARCHAR(64) PRIMARY KEY,
			mode VARCHAR(16) NOT NULL,
			difficulty VARCHAR(16) NOT NULL,
			wager BIGINT NOT NULL,
			outcome JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS coin_transactions (
			id BIGSERIAL PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			match_id VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

var testStarting = StartingValues{Coins: 500, Rank: 1, Rating: 1000}

// ============================================================================
// PlayerRepository Tests
// ============================================================================

func TestPlayerRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool, testStarting)
	ctx := context.Background()

	player, err := repo.Create(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", player.ID)
	assert.Equal(t, "Alice", player.Username)
	assert.Equal(t, int64(500), player.Coins) // Starting balance
	assert.Equal(t, 1, player.Rank)
	assert.Equal(t, 1000, player.Rating)
	assert.Empty(t, player.UnlockedAchievements)
	assert.False(t, player.CreatedAt.IsZero())
}

func TestPlayerRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool, testStarting)
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", "Alice")
	require.NoError(t, err)

	player, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", player.ID)
	assert.Equal(t, "Alice", player.Username)

	_, err = repo.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool, testStarting)
	ctx := context.Background()

	player, created, err := repo.GetOrCreate(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice", player.ID)

	player, created, err = repo.GetOrCreate(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice", player.ID)
}

func TestPlayerRepository_Save(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool, testStarting)
	ctx := context.Background()

	player, err := repo.Create(ctx, "alice", "Alice")
	require.NoError(t, err)

	player.Coins = 750
	player.MatchesPlayed = 1
	player.Wins = 1
	player.WinStreak = 1
	player.UnlockedAchievements = []string{"first_win"}
	require.NoError(t, repo.Save(ctx, player))

	reloaded, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(750), reloaded.Coins)
	assert.Equal(t, 1, reloaded.Wins)
	assert.Equal(t, 1, reloaded.WinStreak)
	assert.Equal(t, []string{"first_win"}, reloaded.UnlockedAchievements)

	ghost := *player
	ghost.ID = "ghost"
	assert.ErrorIs(t, repo.Save(ctx, &ghost), ErrPlayerNotFound)
}

func TestPlayerRepository_AdjustCoins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool, testStarting)
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", "Alice")
	require.NoError(t, err)

	player, err := repo.AdjustCoins(ctx, "alice", 250)
	require.NoError(t, err)
	assert.Equal(t, int64(750), player.Coins)

	player, err = repo.AdjustCoins(ctx, "alice", -300)
	require.NoError(t, err)
	assert.Equal(t, int64(450), player.Coins)

	// Balance never goes negative
	_, err = repo.AdjustCoins(ctx, "alice", -1000)
	assert.ErrorIs(t, err, ErrInsufficientCoins)

	_, err = repo.AdjustCoins(ctx, "ghost", 100)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	playerRepo := NewPlayerRepository(pool, testStarting)
	txRepo := NewTransactionRepository(pool)
	ctx := context.Background()

	// Create a player first (foreign key constraint)
	_, err := playerRepo.Create(ctx, "alice", "Alice")
	require.NoError(t, err)

	matchID := "match-1"
	tx, err := txRepo.Create(ctx, "alice", -100, model.TxTypeWagerStake, &matchID)
	require.NoError(t, err)
	assert.Equal(t, "alice", tx.PlayerID)
	assert.Equal(t, int64(-100), tx.Amount)
	assert.Equal(t, model.TxTypeWagerStake, tx.Type)
	require.NotNil(t, tx.MatchID)
	assert.Equal(t, "match-1", *tx.MatchID)
}

func TestTransactionRepository_GetByPlayerID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	playerRepo := NewPlayerRepository(pool, testStarting)
	txRepo := NewTransactionRepository(pool)
	ctx := context.Background()

	_, err := playerRepo.Create(ctx, "alice", "Alice")
	require.NoError(t, err)

	_, _ = txRepo.Create(ctx, "alice", -100, model.TxTypeWagerStake, nil)
	_, _ = txRepo.Create(ctx, "alice", 180, model.TxTypeWagerPayout, nil)
	_, _ = txRepo.Create(ctx, "alice", 50, model.TxTypeAchievementReward, nil)

	txs, err := txRepo.GetByPlayerID(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	txs, err = txRepo.GetByPlayerID(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestTransactionRepository_GetByMatchID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	playerRepo := NewPlayerRepository(pool, testStarting)
	txRepo := NewTransactionRepository(pool)
	ctx := context.Background()

	_, _ = playerRepo.Create(ctx, "alice", "Alice")
	_, _ = playerRepo.Create(ctx, "bob", "Bob")

	matchID := "match-1"
	otherID := "match-2"
	_, _ = txRepo.Create(ctx, "alice", -100, model.TxTypeWagerStake, &matchID)
	_, _ = txRepo.Create(ctx, "bob", -100, model.TxTypeWagerStake, &matchID)
	_, _ = txRepo.Create(ctx, "alice", 180, model.TxTypeWagerPayout, &matchID)
	_, _ = txRepo.Create(ctx, "alice", -50, model.TxTypeWagerStake, &otherID)

	txs, err := txRepo.GetByMatchID(ctx, matchID)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	// The match's movements net out to the house commission: 20 of the 200 pot.
	var net int64
	for _, tx := range txs {
		net += tx.Amount
	}
	assert.Equal(t, int64(-20), net)
}

// ============================================================================
// MatchRepository Tests
// ============================================================================

func TestMatchRepository_DuelRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMatchRepository(pool)
	ctx := context.Background()

	outcome := &model.MatchOutcome{
		Player1Evaluation: &model.Evaluation{
			IsPotentiallyCorrect:         true,
			CorrectnessExplanation:       "looks right",
			SimilarityToRefSolutionScore: 0.9,
			EstimatedTimeComplexity:      "O(n)",
		},
		Player2Evaluation: &model.Evaluation{
			IsPotentiallyCorrect:   false,
			CorrectnessExplanation: "misses edge cases",
		},
		Winner:        model.WinnerPlayer1,
		WinningReason: "Only player1's solution is correct.",
	}

	created, err := repo.CreateDuel(ctx, "match-1", model.DifficultyMedium, 100, outcome)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	record, err := repo.GetByID(ctx, "match-1")
	require.NoError(t, err)
	assert.Equal(t, MatchModeDuel, record.Mode)
	assert.Equal(t, model.DifficultyMedium, record.Difficulty)
	assert.Equal(t, int64(100), record.Wager)
	require.NotNil(t, record.Outcome)
	assert.Nil(t, record.TeamOutcome)
	assert.Equal(t, model.WinnerPlayer1, record.Outcome.Winner)
	assert.Equal(t, 0.9, record.Outcome.Player1Evaluation.SimilarityToRefSolutionScore)
}

func TestMatchRepository_TeamRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMatchRepository(pool)
	ctx := context.Background()

	outcome := &model.TeamMatchOutcome{
		Team1: []model.TeamPlayerResult{
			{PlayerID: "a1", Score: 175, Evaluation: &model.Evaluation{IsPotentiallyCorrect: true}},
			{PlayerID: "a2", Score: 0},
		},
		Team2: []model.TeamPlayerResult{
			{PlayerID: "b1", Score: 100, Evaluation: &model.Evaluation{IsPotentiallyCorrect: true}},
			{PlayerID: "b2", Score: 0},
		},
		Team1Score: 175,
		Team2Score: 100,
		WinnerTeam: model.TeamWinnerTeam1,
	}

	_, err := repo.CreateTeamBattle(ctx, "match-2", model.DifficultyHard, 50, outcome)
	require.NoError(t, err)

	record, err := repo.GetByID(ctx, "match-2")
	require.NoError(t, err)
	assert.Equal(t, MatchModeTeam, record.Mode)
	require.NotNil(t, record.TeamOutcome)
	assert.Nil(t, record.Outcome)
	assert.Equal(t, model.TeamWinnerTeam1, record.TeamOutcome.WinnerTeam)
	assert.Equal(t, 175, record.TeamOutcome.Team1Score)
	// Forfeited slots round-trip with no evaluation attached.
	assert.Nil(t, record.TeamOutcome.Team1[1].Evaluation)
}

func TestMatchRepository_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMatchRepository(pool)
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
