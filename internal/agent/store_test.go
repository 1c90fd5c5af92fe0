package agent

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atrium-chat/atrium/internal/identity"
	"github.com/atrium-chat/atrium/internal/models"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleMemory(agentID uuid.UUID, sourceID string) *models.Memory {
	return &models.Memory{
		ID:       identity.Derive(agentID, sourceID),
		EntityID: uuid.New(),
		AgentID:  agentID,
		RoomID:   uuid.New(),
		WorldID:  uuid.New(),
		Content:  "hello",
		Metadata: models.MemoryMetadata{
			Type:     "message",
			Source:   "hub",
			SourceID: sourceID,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestEnsureIdempotent(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			agentID := uuid.New()

			world := &models.World{
				ID:        identity.Derive(agentID, uuid.New().String()),
				AgentID:   agentID,
				ServerID:  uuid.New(),
				Name:      "server-1",
				CreatedAt: time.Now().UTC(),
			}
			require.NoError(t, store.EnsureWorld(ctx, world))
			require.NoError(t, store.EnsureWorld(ctx, world))

			got, err := store.GetWorld(ctx, world.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, world.ServerID, got.ServerID)

			room := &models.Room{
				ID:        identity.Derive(agentID, uuid.New().String()),
				AgentID:   agentID,
				WorldID:   world.ID,
				ChannelID: uuid.New(),
				Name:      "general",
				Type:      models.RoomTypeGroup,
				CreatedAt: time.Now().UTC(),
			}
			require.NoError(t, store.EnsureRoom(ctx, room))
			require.NoError(t, store.EnsureRoom(ctx, room))

			gotRoom, err := store.GetRoom(ctx, room.ID)
			require.NoError(t, err)
			require.NotNil(t, gotRoom)
			require.Equal(t, room.ChannelID, gotRoom.ChannelID)
			require.Equal(t, models.RoomTypeGroup, gotRoom.Type)

			entity := &models.Entity{
				ID:        identity.Derive(agentID, uuid.New().String()),
				AgentID:   agentID,
				RemoteID:  uuid.New(),
				Name:      "alice",
				CreatedAt: time.Now().UTC(),
			}
			require.NoError(t, store.EnsureEntity(ctx, entity))
			require.NoError(t, store.EnsureEntity(ctx, entity))
		})
	}
}

func TestCreateMemoryDedup(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := sampleMemory(uuid.New(), uuid.New().String())

			created, err := store.CreateMemory(ctx, m)
			require.NoError(t, err)
			require.True(t, created)

			created, err = store.CreateMemory(ctx, m)
			require.NoError(t, err)
			require.False(t, created)

			got, err := store.GetMemory(ctx, m.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, "hello", got.Content)
			require.Equal(t, m.Metadata.SourceID, got.Metadata.SourceID)
		})
	}
}

func TestCreateMemoryConcurrentExactlyOnce(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := sampleMemory(uuid.New(), uuid.New().String())

			var wg sync.WaitGroup
			results := make([]bool, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					created, err := store.CreateMemory(ctx, m)
					require.NoError(t, err)
					results[i] = created
				}(i)
			}
			wg.Wait()

			wins := 0
			for _, created := range results {
				if created {
					wins++
				}
			}
			require.Equal(t, 1, wins)
		})
	}
}

func TestDeleteMemory(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := sampleMemory(uuid.New(), uuid.New().String())

			_, err := store.CreateMemory(ctx, m)
			require.NoError(t, err)
			require.NoError(t, store.DeleteMemory(ctx, m.ID))

			got, err := store.GetMemory(ctx, m.ID)
			require.NoError(t, err)
			require.Nil(t, got)

			// Deleting again is a no-op.
			require.NoError(t, store.DeleteMemory(ctx, m.ID))
		})
	}
}

func TestMemoriesByRoom(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			agentID := uuid.New()
			roomID := uuid.New()

			for i := 0; i < 3; i++ {
				m := sampleMemory(agentID, uuid.New().String())
				m.RoomID = roomID
				m.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
				_, err := store.CreateMemory(ctx, m)
				require.NoError(t, err)
			}
			other := sampleMemory(agentID, uuid.New().String())
			_, err := store.CreateMemory(ctx, other)
			require.NoError(t, err)

			memories, err := store.MemoriesByRoom(ctx, roomID)
			require.NoError(t, err)
			require.Len(t, memories, 3)
			for i := 1; i < len(memories); i++ {
				require.False(t, memories[i].CreatedAt.Before(memories[i-1].CreatedAt))
			}

			count, err := store.CountMemoriesByRoom(ctx, roomID)
			require.NoError(t, err)
			require.Equal(t, 3, count)
		})
	}
}
