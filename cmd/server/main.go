// Package main is the entry point for the Code Duel backend server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeduel-backend/internal/api"
	"codeduel-backend/internal/config"
	"codeduel-backend/internal/game/achievement"
	"codeduel-backend/internal/game/duel"
	"codeduel-backend/internal/game/teambattle"
	"codeduel-backend/internal/judge"
	"codeduel-backend/internal/pkg/db"
	"codeduel-backend/internal/pkg/lock"
	"codeduel-backend/internal/repository"
	"codeduel-backend/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize Redis for the lobby store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize repositories
	playerRepo := repository.NewPlayerRepository(dbPool.Pool, repository.StartingValues{
		Coins:  cfg.Player.StartingCoins,
		Rank:   cfg.Player.StartingRank,
		Rating: cfg.Player.StartingRating,
	})
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	matchRepo := repository.NewMatchRepository(dbPool.Pool)
	lobbyStore := repository.NewLobbyStore(redisClient)

	// Initialize the AI judge client
	judgeClient := judge.NewClient(cfg.Judge.BaseURL, cfg.Judge.Timeout, cfg.Judge.MaxRetries)

	// Initialize resolvers. Close duels are compared with the deterministic
	// rule-based strategy; the judge-backed strategy stays available via
	// duel.NewAIAdjudicatedComparator.
	duelResolver := duel.NewResolver(judgeClient, duel.RuleBasedComparator{})
	teamResolver := teambattle.NewResolver(judgeClient)

	// Initialize the settlement service
	settlementService := service.NewSettlementService(
		playerRepo,
		txRepo,
		matchRepo,
		duelResolver,
		teamResolver,
		lock.NewPlayerLock(),
		achievement.DefaultAchievements(),
		service.WagerRules{
			CommissionRate: cfg.Wager.CommissionRate,
			MinStake:       cfg.Wager.MinStake,
			MaxStake:       cfg.Wager.MaxStake,
		},
	)

	router := api.NewRouter(api.RouterDeps{
		Players:  playerRepo,
		Ledger:   txRepo,
		Settler:  settlementService,
		Matches:  matchRepo,
		Lobbies:  lobbyStore,
		HealthDB: dbPool.HealthCheck,
		HealthRedis: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server is starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create players table
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
		);
		CREATE INDEX IF NOT EXISTS idx_players_rank ON players(rank ASC);
		CREATE INDEX IF NOT EXISTS idx_players_rating ON players(rating DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: players table created")

	// Migration 2: Create matches table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS matches (
			id VARCHAR(64) PRIMARY KEY,
			mode VARCHAR(16) NOT NULL,
			difficulty VARCHAR(16) NOT NULL,
			wager BIGINT NOT NULL,
			outcome JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: matches table created")

	// Migration 3: Create coin_transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS coin_transactions (
			id BIGSERIAL PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			match_id VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_coin_tx_player_time ON coin_transactions(player_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_coin_tx_match ON coin_transactions(match_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: coin_transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
