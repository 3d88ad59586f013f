package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"codeduel-backend/internal/model"
	"codeduel-backend/internal/repository"
)

// LobbyStore is the shared-document store lobbies live in.
type LobbyStore interface {
	Get(ctx context.Context, id string) (*model.Lobby, error)
	Set(ctx context.Context, lobby *model.Lobby) error
	Delete(ctx context.Context, id string) error
}

// LobbyHandler serves lobby lifecycle endpoints.
type LobbyHandler struct {
	lobbies LobbyStore
}

// NewLobbyHandler creates a lobby handler.
func NewLobbyHandler(lobbies LobbyStore) *LobbyHandler {
	return &LobbyHandler{lobbies: lobbies}
}

// RegisterRoutes mounts the lobby endpoints.
func (h *LobbyHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.createLobby)
	r.Get("/{id}", h.getLobby)
	r.Post("/{id}/join", h.joinLobby)
	r.Delete("/{id}", h.deleteLobby)
}

type createLobbyRequest struct {
	Mode       string           `json:"mode"`
	Difficulty model.Difficulty `json:"difficulty"`
	Wager      int64            `json:"wager"`
	PlayerID   string           `json:"playerId"`
}

func (h *LobbyHandler) createLobby(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if (req.Mode != "duel" && req.Mode != "team") || !req.Difficulty.Valid() || req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "mode, difficulty and playerId are required")
		return
	}

	lobby := &model.Lobby{
		ID:         uuid.NewString(),
		Mode:       req.Mode,
		Difficulty: req.Difficulty,
		Wager:      req.Wager,
		Status:     model.LobbyStatusOpen,
		PlayerIDs:  []string{req.PlayerID},
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.lobbies.Set(r.Context(), lobby); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create lobby")
		return
	}
	respondJSON(w, http.StatusCreated, lobby)
}

func (h *LobbyHandler) getLobby(w http.ResponseWriter, r *http.Request) {
	lobby, err := h.lobbies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrLobbyNotFound) {
			respondError(w, http.StatusNotFound, "lobby not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load lobby")
		return
	}
	respondJSON(w, http.StatusOK, lobby)
}

type joinLobbyRequest struct {
	PlayerID string `json:"playerId"`
}

func (h *LobbyHandler) joinLobby(w http.ResponseWriter, r *http.Request) {
	var req joinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "playerId is required")
		return
	}

	lobby, err := h.lobbies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrLobbyNotFound) {
			respondError(w, http.StatusNotFound, "lobby not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load lobby")
		return
	}
	if lobby.Status != model.LobbyStatusOpen {
		respondError(w, http.StatusConflict, "lobby is not open")
		return
	}
	for _, id := range lobby.PlayerIDs {
		if id == req.PlayerID {
			respondJSON(w, http.StatusOK, lobby)
			return
		}
	}

	lobby.PlayerIDs = append(lobby.PlayerIDs, req.PlayerID)
	if full(lobby) {
		lobby.Status = model.LobbyStatusInProgress
	}
	if err := h.lobbies.Set(r.Context(), lobby); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update lobby")
		return
	}
	respondJSON(w, http.StatusOK, lobby)
}

func (h *LobbyHandler) deleteLobby(w http.ResponseWriter, r *http.Request) {
	if err := h.lobbies.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete lobby")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// full reports whether the lobby has its whole roster.
func full(lobby *model.Lobby) bool {
	switch lobby.Mode {
	case "duel":
		return len(lobby.PlayerIDs) >= 2
	case "team":
		return len(lobby.PlayerIDs) >= 8
	}
	return false
}
