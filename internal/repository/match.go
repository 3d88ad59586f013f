package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeduel-backend/internal/model"
)

// ErrMatchNotFound means no match record exists for the given id.
var ErrMatchNotFound = errors.New("match not found")

// MatchRecord is one persisted match report. Exactly one of Outcome and
// TeamOutcome is set, according to Mode.
type MatchRecord struct {
	ID          string                  `db:"id"`
	Mode        string                  `db:"mode"` // "duel" or "team"
	Difficulty  model.Difficulty        `db:"difficulty"`
	Wager       int64                   `db:"wager"`
	Outcome     *model.MatchOutcome     `db:"outcome"`
	TeamOutcome *model.TeamMatchOutcome `db:"team_outcome"`
	CreatedAt   time.Time               `db:"created_at"`
}

// Match modes.
const (
	MatchModeDuel = "duel"
	MatchModeTeam = "team"
)

// MatchRepository persists settled match reports. Outcomes are stored as
// JSONB documents; they are immutable once written.
type MatchRepository struct {
	pool *pgxpool.Pool
}

// NewMatchRepository creates a new MatchRepository instance.
func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

// CreateDuel stores a settled 1v1 match report.
func (r *MatchRepository) CreateDuel(ctx context.Context, id string, difficulty model.Difficulty, wager int64, outcome *model.MatchOutcome) (*MatchRecord, error) {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to encode duel outcome: %w", err)
	}

	const query = `
		INSERT INTO matches (id, mode, difficulty, wager, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	record := &MatchRecord{
		ID: id, Mode: MatchModeDuel, Difficulty: difficulty, Wager: wager, Outcome: outcome,
	}
	if err := r.pool.QueryRow(ctx, query, id, MatchModeDuel, difficulty, wager, payload).Scan(&record.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create duel record: %w", err)
	}
	return record, nil
}

// CreateTeamBattle stores a settled 4v4 match report.
func (r *MatchRepository) CreateTeamBattle(ctx context.Context, id string, difficulty model.Difficulty, wager int64, outcome *model.TeamMatchOutcome) (*MatchRecord, error) {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to encode team outcome: %w", err)
	}

	const query = `
		INSERT INTO matches (id, mode, difficulty, wager, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	record := &MatchRecord{
		ID: id, Mode: MatchModeTeam, Difficulty: difficulty, Wager: wager, TeamOutcome: outcome,
	}
	if err := r.pool.QueryRow(ctx, query, id, MatchModeTeam, difficulty, wager, payload).Scan(&record.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create team battle record: %w", err)
	}
	return record, nil
}

// GetByID retrieves one match report.
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*MatchRecord, error) {
	const query = `
		SELECT id, mode, difficulty, wager, outcome, created_at
		FROM matches
		WHERE id = $1
	`

	var record MatchRecord
	var payload []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.Mode,
		&record.Difficulty,
		&record.Wager,
		&payload,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	switch record.Mode {
	case MatchModeDuel:
		record.Outcome = &model.MatchOutcome{}
		err = json.Unmarshal(payload, record.Outcome)
	case MatchModeTeam:
		record.TeamOutcome = &model.TeamMatchOutcome{}
		err = json.Unmarshal(payload, record.TeamOutcome)
	default:
		err = fmt.Errorf("unknown match mode %q", record.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode match outcome: %w", err)
	}
	return &record, nil
}
