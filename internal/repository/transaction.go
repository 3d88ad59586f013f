package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeduel-backend/internal/model"
)

// TransactionRepository records every coin movement on the ledger.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create records one balance change.
func (r *TransactionRepository) Create(ctx context.Context, playerID string, amount int64, txType string, matchID *string) (*model.CoinTransaction, error) {
	const query = `
		INSERT INTO coin_transactions (player_id, amount, type, match_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, player_id, amount, type, match_id, created_at
	`

	var tx model.CoinTransaction
	err := r.pool.QueryRow(ctx, query, playerID, amount, txType, matchID).Scan(
		&tx.ID,
		&tx.PlayerID,
		&tx.Amount,
		&tx.Type,
		&tx.MatchID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return &tx, nil
}

// GetByPlayerID retrieves a player's transactions, newest first.
func (r *TransactionRepository) GetByPlayerID(ctx context.Context, playerID string, limit int) ([]*model.CoinTransaction, error) {
	const query = `
		SELECT id, player_id, amount, type, match_id, created_at
		FROM coin_transactions
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.CoinTransaction
	for rows.Next() {
		var tx model.CoinTransaction
		err := rows.Scan(
			&tx.ID,
			&tx.PlayerID,
			&tx.Amount,
			&tx.Type,
			&tx.MatchID,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// GetByMatchID retrieves every coin movement attributed to one match.
func (r *TransactionRepository) GetByMatchID(ctx context.Context, matchID string) ([]*model.CoinTransaction, error) {
	const query = `
		SELECT id, player_id, amount, type, match_id, created_at
		FROM coin_transactions
		WHERE match_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.CoinTransaction
	for rows.Next() {
		var tx model.CoinTransaction
		err := rows.Scan(
			&tx.ID,
			&tx.PlayerID,
			&tx.Amount,
			&tx.Type,
			&tx.MatchID,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match transactions: %w", err)
	}
	return transactions, nil
}
