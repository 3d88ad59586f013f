package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"codeduel-backend/internal/game/duel"
	"codeduel-backend/internal/game/teambattle"
	"codeduel-backend/internal/judge"
	"codeduel-backend/internal/model"
	"codeduel-backend/internal/pkg/lock"
	"codeduel-backend/internal/repository"
	"codeduel-backend/internal/service"
)

// Settler runs the settlement flow for finished matches.
type Settler interface {
	SettleDuel(ctx context.Context, req service.DuelRequest) (*service.DuelSettlement, error)
	SettleTeamBattle(ctx context.Context, req service.TeamRequest) (*service.TeamSettlement, error)
}

// MatchHistory reads settled match records.
type MatchHistory interface {
	GetByID(ctx context.Context, id string) (*repository.MatchRecord, error)
}

// SettlementHandler serves the match settlement endpoints.
type SettlementHandler struct {
	settler Settler
	matches MatchHistory
}

// NewSettlementHandler creates a settlement handler.
func NewSettlementHandler(settler Settler, matches MatchHistory) *SettlementHandler {
	return &SettlementHandler{settler: settler, matches: matches}
}

// RegisterRoutes mounts the settlement endpoints.
func (h *SettlementHandler) RegisterRoutes(r chi.Router) {
	r.Post("/duels/settle", h.settleDuel)
	r.Post("/team-battles/settle", h.settleTeamBattle)
	r.Get("/matches/{id}", h.getMatch)
}

type submissionDTO struct {
	PlayerID     string `json:"playerId"`
	HasSubmitted bool   `json:"hasSubmitted"`
	Code         string `json:"code"`
	Language     string `json:"language"`
}

type settleDuelRequest struct {
	Difficulty model.Difficulty `json:"difficulty"`
	Stake      int64            `json:"stake"`
	Problem    *model.Problem   `json:"problem"`
	Player1    submissionDTO    `json:"player1"`
	Player2    submissionDTO    `json:"player2"`
}

type settleTeamRequest struct {
	Difficulty model.Difficulty `json:"difficulty"`
	Stake      int64            `json:"stake"`
	Problem    *model.Problem   `json:"problem"`
	Team1      []submissionDTO  `json:"team1"`
	Team2      []submissionDTO  `json:"team2"`
}

func (h *SettlementHandler) settleDuel(w http.ResponseWriter, r *http.Request) {
	var req settleDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	settlement, err := h.settler.SettleDuel(r.Context(), service.DuelRequest{
		Difficulty: req.Difficulty,
		Stake:      req.Stake,
		Problem:    req.Problem,
		Player1:    duel.Submission{PlayerID: req.Player1.PlayerID, Code: req.Player1.Code, Language: req.Player1.Language},
		Player2:    duel.Submission{PlayerID: req.Player2.PlayerID, Code: req.Player2.Code, Language: req.Player2.Language},
	})
	if err != nil {
		respondSettlementError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settlement)
}

func (h *SettlementHandler) settleTeamBattle(w http.ResponseWriter, r *http.Request) {
	var req settleTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	settlement, err := h.settler.SettleTeamBattle(r.Context(), service.TeamRequest{
		Difficulty: req.Difficulty,
		Stake:      req.Stake,
		Problem:    req.Problem,
		Team1:      toTeamSubmissions(req.Team1),
		Team2:      toTeamSubmissions(req.Team2),
	})
	if err != nil {
		respondSettlementError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settlement)
}

func (h *SettlementHandler) getMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.matches.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			respondError(w, http.StatusNotFound, "match not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load match")
		return
	}
	respondJSON(w, http.StatusOK, match)
}

func toTeamSubmissions(dtos []submissionDTO) []teambattle.Submission {
	subs := make([]teambattle.Submission, len(dtos))
	for i, d := range dtos {
		subs[i] = teambattle.Submission{
			PlayerID:     d.PlayerID,
			HasSubmitted: d.HasSubmitted,
			Code:         d.Code,
			Language:     d.Language,
		}
	}
	return subs
}

// respondSettlementError maps settlement failures onto HTTP statuses.
func respondSettlementError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, judge.ErrInvalidInput), errors.Is(err, service.ErrStakeOutOfRange):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrPlayerNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInsufficientCoins), errors.Is(err, repository.ErrInsufficientCoins):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lock.ErrLockTimeout):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, judge.ErrJudgeFailure):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "settlement failed")
	}
}
