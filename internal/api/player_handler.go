package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"codeduel-backend/internal/model"
	"codeduel-backend/internal/repository"
)

// transactionHistoryLimit caps the ledger page returned per player.
const transactionHistoryLimit = 50

// PlayerDirectory is the slice of the player repository the API needs.
type PlayerDirectory interface {
	GetOrCreate(ctx context.Context, id, username string) (*model.Player, bool, error)
	GetByID(ctx context.Context, id string) (*model.Player, error)
}

// Ledger reads a player's coin movement history.
type Ledger interface {
	GetByPlayerID(ctx context.Context, playerID string, limit int) ([]*model.CoinTransaction, error)
}

// PlayerHandler serves player account endpoints.
type PlayerHandler struct {
	players PlayerDirectory
	ledger  Ledger
}

// NewPlayerHandler creates a player handler.
func NewPlayerHandler(players PlayerDirectory, ledger Ledger) *PlayerHandler {
	return &PlayerHandler{players: players, ledger: ledger}
}

// RegisterRoutes mounts the player endpoints.
func (h *PlayerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.createPlayer)
	r.Get("/{id}", h.getPlayer)
	r.Get("/{id}/transactions", h.getTransactions)
}

type createPlayerRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (h *PlayerHandler) createPlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" || req.Username == "" {
		respondError(w, http.StatusBadRequest, "id and username are required")
		return
	}

	player, created, err := h.players.GetOrCreate(r.Context(), req.ID, req.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create player")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, player)
}

func (h *PlayerHandler) getPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := h.players.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			respondError(w, http.StatusNotFound, "player not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load player")
		return
	}
	respondJSON(w, http.StatusOK, player)
}

func (h *PlayerHandler) getTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.players.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			respondError(w, http.StatusNotFound, "player not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load player")
		return
	}

	transactions, err := h.ledger.GetByPlayerID(r.Context(), id, transactionHistoryLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	if transactions == nil {
		transactions = []*model.CoinTransaction{}
	}
	respondJSON(w, http.StatusOK, transactions)
}
