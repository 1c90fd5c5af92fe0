package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/atrium-chat/atrium/internal/identity"
	"github.com/atrium-chat/atrium/internal/models"
)

type fakeProvisioner struct {
	agentID uuid.UUID
	calls   int
	mu      sync.Mutex
}

func (p *fakeProvisioner) EnsureLocalRoom(ctx context.Context, conceptualRoomID uuid.UUID, name string, roomType models.RoomType) (uuid.UUID, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return identity.Derive(p.agentID, conceptualRoomID.String()), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryStore(), zerolog.Nop())
}

func TestCreateAndGetConceptualRoom(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	room, err := svc.CreateConceptualRoom(ctx, "planning", models.RoomTypeGroup, owner)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, room.ID)

	got, err := svc.GetConceptualRoom(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "planning", got.Name)
	require.Equal(t, models.RoomTypeGroup, got.Type)
	require.Equal(t, owner, got.OwnerAgentID)

	absent, err := svc.GetConceptualRoom(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, absent)
}

func TestCreateConceptualRoomValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateConceptualRoom(ctx, "  ", models.RoomTypeDM, uuid.New())
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateConceptualRoom(ctx, "x", models.RoomType("HALLWAY"), uuid.New())
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateConceptualRoom(ctx, "x", models.RoomTypeDM, uuid.Nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestStoreRoomMappingUpsert(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	roomID, agentID := uuid.New(), uuid.New()
	roomA, roomB := uuid.New(), uuid.New()

	require.NoError(t, svc.StoreRoomMapping(ctx, roomID, agentID, roomA))
	require.NoError(t, svc.StoreRoomMapping(ctx, roomID, agentID, roomB))

	m, err := svc.GetRoomMapping(ctx, roomID, agentID)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, roomB, m.AgentRoomID)

	all, err := svc.MappingsForRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestStoreRoomMappingIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	roomID, agentID, local := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, svc.StoreRoomMapping(ctx, roomID, agentID, local))
	require.NoError(t, svc.StoreRoomMapping(ctx, roomID, agentID, local))

	all, err := svc.MappingsForRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, local, all[0].AgentRoomID)
}

func TestAgentsInRoom(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	roomID := uuid.New()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, svc.StoreRoomMapping(ctx, roomID, a, uuid.New()))
	require.NoError(t, svc.StoreRoomMapping(ctx, roomID, b, uuid.New()))
	require.NoError(t, svc.StoreRoomMapping(ctx, uuid.New(), uuid.New(), uuid.New()))

	agents, err := svc.AgentsInRoom(ctx, roomID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{a, b}, agents)
}

func TestMappingsForAgent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	agentID := uuid.New()

	require.NoError(t, svc.StoreRoomMapping(ctx, uuid.New(), agentID, uuid.New()))
	require.NoError(t, svc.StoreRoomMapping(ctx, uuid.New(), agentID, uuid.New()))
	require.NoError(t, svc.StoreRoomMapping(ctx, uuid.New(), uuid.New(), uuid.New()))

	mappings, err := svc.MappingsForAgent(ctx, agentID)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
}

func TestCreateMirroredRoom(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	room, err := svc.CreateConceptualRoom(ctx, "shared", models.RoomTypeDM, owner)
	require.NoError(t, err)

	agentID := uuid.New()
	p := &fakeProvisioner{agentID: agentID}

	localID, err := svc.CreateMirroredRoom(ctx, room.ID, agentID, p)
	require.NoError(t, err)
	require.Equal(t, identity.Derive(agentID, room.ID.String()), localID)

	// Second call reuses the stored mapping without re-provisioning.
	again, err := svc.CreateMirroredRoom(ctx, room.ID, agentID, p)
	require.NoError(t, err)
	require.Equal(t, localID, again)
	require.Equal(t, 1, p.calls)
}

func TestCreateMirroredRoomUnknownRoom(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateMirroredRoom(context.Background(), uuid.New(), uuid.New(), &fakeProvisioner{agentID: uuid.New()})
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCreateMirroredRoomConcurrentConverges(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	room, err := svc.CreateConceptualRoom(ctx, "burst", models.RoomTypeGroup, uuid.New())
	require.NoError(t, err)

	agentID := uuid.New()
	p := &fakeProvisioner{agentID: agentID}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateMirroredRoom(ctx, room.ID, agentID, p)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	mappings, err := svc.MappingsForRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	require.Equal(t, identity.Derive(agentID, room.ID.String()), mappings[0].AgentRoomID)
}
