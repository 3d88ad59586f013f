package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"codeduel-backend/internal/model"
)

// ErrLobbyNotFound means no lobby document exists for the given id.
var ErrLobbyNotFound = errors.New("lobby not found")

// lobbyTTL bounds how long an abandoned lobby document lingers.
const lobbyTTL = 24 * time.Hour

// LobbyStore keeps lobby documents in Redis. A lobby is a plain shared
// document with get/set/listen semantics; every write publishes the full
// document on the lobby's channel so observers need no polling protocol.
type LobbyStore struct {
	client *redis.Client
}

// NewLobbyStore creates a lobby store on the given Redis client.
func NewLobbyStore(client *redis.Client) *LobbyStore {
	return &LobbyStore{client: client}
}

func lobbyKey(id string) string     { return "lobby:" + id }
func lobbyChannel(id string) string { return "lobby-updates:" + id }

// Get reads a lobby document.
func (s *LobbyStore) Get(ctx context.Context, id string) (*model.Lobby, error) {
	payload, err := s.client.Get(ctx, lobbyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLobbyNotFound
		}
		return nil, fmt.Errorf("failed to get lobby: %w", err)
	}

	var lobby model.Lobby
	if err := json.Unmarshal(payload, &lobby); err != nil {
		return nil, fmt.Errorf("failed to decode lobby: %w", err)
	}
	return &lobby, nil
}

// Set writes a lobby document as a whole and notifies listeners.
func (s *LobbyStore) Set(ctx context.Context, lobby *model.Lobby) error {
	lobby.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(lobby)
	if err != nil {
		return fmt.Errorf("failed to encode lobby: %w", err)
	}
	if err := s.client.Set(ctx, lobbyKey(lobby.ID), payload, lobbyTTL).Err(); err != nil {
		return fmt.Errorf("failed to set lobby: %w", err)
	}

	// Notification is best effort; observers can always re-read.
	if err := s.client.Publish(ctx, lobbyChannel(lobby.ID), payload).Err(); err != nil {
		log.Warn().Err(err).Str("lobby_id", lobby.ID).Msg("failed to publish lobby update")
	}
	return nil
}

// Delete removes a lobby document.
func (s *LobbyStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, lobbyKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete lobby: %w", err)
	}
	return nil
}

// Listen subscribes to a lobby's updates and delivers each new document
// state on the returned channel until the context is cancelled.
func (s *LobbyStore) Listen(ctx context.Context, id string) (<-chan *model.Lobby, error) {
	sub := s.client.Subscribe(ctx, lobbyChannel(id))
	// Force the subscription before we return, so no update is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to lobby: %w", err)
	}

	updates := make(chan *model.Lobby)
	go func() {
		defer close(updates)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var lobby model.Lobby
				if err := json.Unmarshal([]byte(msg.Payload), &lobby); err != nil {
					log.Warn().Err(err).Str("lobby_id", id).Msg("dropping malformed lobby update")
					continue
				}
				select {
				case updates <- &lobby:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return updates, nil
}
