// Package repository lobby store tests run against an in-process Redis.
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeduel-backend/internal/model"
)

func setupLobbyStore(t *testing.T) *LobbyStore {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLobbyStore(client)
}

func testLobby(id string) *model.Lobby {
	return &model.Lobby{
		ID:         id,
		Mode:       "duel",
		Difficulty: model.DifficultyMedium,
		Wager:      100,
		Status:     model.LobbyStatusOpen,
		PlayerIDs:  []string{"alice"},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestLobbyStoreSetGet(t *testing.T) {
	store := setupLobbyStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, testLobby("l1")))

	lobby, err := store.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "l1", lobby.ID)
	assert.Equal(t, model.LobbyStatusOpen, lobby.Status)
	assert.Equal(t, []string{"alice"}, lobby.PlayerIDs)
	assert.False(t, lobby.UpdatedAt.IsZero())
}

func TestLobbyStoreGetMissing(t *testing.T) {
	store := setupLobbyStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestLobbyStoreOverwrite(t *testing.T) {
	store := setupLobbyStore(t)
	ctx := context.Background()

	lobby := testLobby("l1")
	require.NoError(t, store.Set(ctx, lobby))

	lobby.PlayerIDs = append(lobby.PlayerIDs, "bob")
	lobby.Status = model.LobbyStatusInProgress
	require.NoError(t, store.Set(ctx, lobby))

	reloaded, err := store.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, model.LobbyStatusInProgress, reloaded.Status)
	assert.Equal(t, []string{"alice", "bob"}, reloaded.PlayerIDs)
}

func TestLobbyStoreDelete(t *testing.T) {
	store := setupLobbyStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, testLobby("l1")))
	require.NoError(t, store.Delete(ctx, "l1"))

	_, err := store.Get(ctx, "l1")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestLobbyStoreListen(t *testing.T) {
	store := setupLobbyStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := store.Listen(ctx, "l1")
	require.NoError(t, err)

	lobby := testLobby("l1")
	require.NoError(t, store.Set(ctx, lobby))

	select {
	case got := <-updates:
		require.NotNil(t, got)
		assert.Equal(t, "l1", got.ID)
		assert.Equal(t, model.LobbyStatusOpen, got.Status)
	case <-ctx.Done():
		t.Fatal("timed out waiting for lobby update")
	}

	// A second write delivers the new document state.
	lobby.Status = model.LobbyStatusSettled
	require.NoError(t, store.Set(ctx, lobby))

	select {
	case got := <-updates:
		assert.Equal(t, model.LobbyStatusSettled, got.Status)
	case <-ctx.Done():
		t.Fatal("timed out waiting for second lobby update")
	}

	// Cancelling the listener closes the stream.
	cancel()
	for range updates {
	}
}
