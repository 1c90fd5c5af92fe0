package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atrium-chat/atrium/internal/identity"
	"github.com/atrium-chat/atrium/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestSQLiteConceptualRoomRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	room := &models.ConceptualRoom{
		ID:           identity.New(),
		Name:         "ops",
		Type:         models.RoomTypeGroup,
		OwnerAgentID: uuid.New(),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.CreateConceptualRoom(ctx, room))

	got, err := store.GetConceptualRoom(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, room.Name, got.Name)
	require.Equal(t, room.Type, got.Type)
	require.Equal(t, room.OwnerAgentID, got.OwnerAgentID)

	absent, err := store.GetConceptualRoom(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, absent)
}

func TestSQLiteMappingUpsertLastWriteWins(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	roomID, agentID := uuid.New(), uuid.New()
	roomA, roomB := uuid.New(), uuid.New()

	require.NoError(t, store.UpsertRoomMapping(ctx, &models.RoomMapping{
		ConceptualRoomID: roomID, AgentID: agentID, AgentRoomID: roomA,
	}))
	require.NoError(t, store.UpsertRoomMapping(ctx, &models.RoomMapping{
		ConceptualRoomID: roomID, AgentID: agentID, AgentRoomID: roomB,
	}))

	m, err := store.GetRoomMapping(ctx, roomID, agentID)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, roomB, m.AgentRoomID)

	forRoom, err := store.MappingsForRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, forRoom, 1)

	forAgent, err := store.MappingsForAgent(ctx, agentID)
	require.NoError(t, err)
	require.Len(t, forAgent, 1)
}

func TestSQLitePseudoAgents(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	agent := &models.PseudoAgent{
		ID:        identity.New(),
		Name:      "Sam",
		ModelType: "none",
		Metadata: models.PseudoAgentMetadata{
			IsUserAgent: true,
			UserID:      "user-42",
			Username:    "sam",
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreatePseudoAgent(ctx, agent))

	byUser, err := store.GetPseudoAgentByUserID(ctx, "user-42")
	require.NoError(t, err)
	require.NotNil(t, byUser)
	require.Equal(t, agent.ID, byUser.ID)
	require.True(t, byUser.Metadata.IsUserAgent)
	require.False(t, byUser.Metadata.IsEnabled)

	byID, err := store.GetPseudoAgent(ctx, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, "Sam", byID.Name)

	all, err := store.ListPseudoAgents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	missing, err := store.GetPseudoAgentByUserID(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, missing)
}
