package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/atrium-chat/atrium/internal/agent"
	"github.com/atrium-chat/atrium/internal/api"
	"github.com/atrium-chat/atrium/internal/bus"
	"github.com/atrium-chat/atrium/internal/hub"
	"github.com/atrium-chat/atrium/internal/models"
	"github.com/atrium-chat/atrium/internal/registry"
	"github.com/atrium-chat/atrium/internal/router"
	"github.com/atrium-chat/atrium/internal/useragent"
)

type apiFixture struct {
	server *httptest.Server
	agentA uuid.UUID
	agentB uuid.UUID
	storeA *agent.MemoryStore
	storeB *agent.MemoryStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := registry.NewMemoryStore()
	reg := registry.NewService(store, zerolog.Nop())
	bridge := useragent.NewBridge(store, zerolog.Nop())

	b := bus.NewLocal()
	t.Cleanup(b.Close)
	hc := hub.NewClient("http://127.0.0.1:1", time.Second)

	fleet := router.NewFleet()
	agentA, agentB := uuid.New(), uuid.New()
	storeA, storeB := agent.NewMemoryStore(), agent.NewMemoryStore()
	engine := noopEngine{}
	fleet.Add(router.NewService(router.Config{AgentID: agentA, AgentName: "ada"}, b, hc, storeA, bridge, engine, zerolog.Nop()))
	fleet.Add(router.NewService(router.Config{AgentID: agentB, AgentName: "brook"}, b, hc, storeB, bridge, engine, zerolog.Nop()))

	server := httptest.NewServer(api.NewRouter(zerolog.Nop(), reg, store, fleet, bridge))
	t.Cleanup(server.Close)

	return &apiFixture{server: server, agentA: agentA, agentB: agentB, storeA: storeA, storeB: storeB}
}

func (f *apiFixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(f.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *apiFixture) createRoom(t *testing.T, name, roomType string, owner uuid.UUID) string {
	t.Helper()
	resp := f.post(t, "/rooms", map[string]string{
		"name":           name,
		"type":           roomType,
		"owner_agent_id": owner.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	return body["id"]
}

func TestCreateAndFetchRoom(t *testing.T) {
	f := newAPIFixture(t)

	roomID := f.createRoom(t, "planning", "GROUP", f.agentA)

	resp := f.get(t, "/rooms/"+roomID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	require.Equal(t, "planning", body["name"])
	require.Equal(t, "GROUP", body["type"])
	require.Equal(t, f.agentA.String(), body["owner_agent_id"])
}

func TestCreateRoomValidation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/rooms", map[string]string{
		"name":           "x",
		"type":           "HALLWAY",
		"owner_agent_id": f.agentA.String(),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/rooms", map[string]string{
		"name":           "x",
		"type":           "DM",
		"owner_agent_id": "not-a-uuid",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetUnknownRoomReturns404(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.get(t, "/rooms/"+uuid.NewString())
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestEnsureMappingCreatesMirroredRoom(t *testing.T) {
	f := newAPIFixture(t)
	roomID := f.createRoom(t, "shared", "GROUP", f.agentA)

	resp := f.post(t, "/rooms/"+roomID+"/mappings/"+f.agentA.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mapping := decode[map[string]string](t, resp)
	require.Equal(t, roomID, mapping["conceptual_room_id"])
	require.Equal(t, f.agentA.String(), mapping["agent_id"])
	require.NotEmpty(t, mapping["agent_room_id"])

	// Second call returns the same mapping.
	resp = f.post(t, "/rooms/"+roomID+"/mappings/"+f.agentA.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode[map[string]string](t, resp)
	require.Equal(t, mapping["agent_room_id"], again["agent_room_id"])

	// The mapping shows up in both listing views.
	resp = f.get(t, "/rooms/"+roomID+"/mappings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decode[map[string][]map[string]string](t, resp)
	require.Len(t, listing["mappings"], 1)

	resp = f.get(t, "/agents/"+f.agentA.String()+"/mappings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byAgent := decode[map[string][]map[string]string](t, resp)
	require.Len(t, byAgent["mappings"], 1)
}

func TestEnsureMappingUnknownRoomOrAgent(t *testing.T) {
	f := newAPIFixture(t)
	roomID := f.createRoom(t, "shared", "GROUP", f.agentA)

	resp := f.post(t, "/rooms/"+uuid.NewString()+"/mappings/"+f.agentA.String(), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/rooms/"+roomID+"/mappings/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestConnectCreatesRoomMappingsAndEntities(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/connections", map[string]string{
		"agent_a_id": f.agentA.String(),
		"agent_b_id": f.agentB.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[map[string]string](t, resp)

	roomID := uuid.MustParse(body["room_id"])
	roomA := uuid.MustParse(body["agent_a_room_id"])
	roomB := uuid.MustParse(body["agent_b_room_id"])
	require.NotEqual(t, roomA, roomB)

	// One conceptual room with a mapping per agent.
	listing := decode[map[string][]map[string]string](t, f.get(t, "/rooms/"+roomID.String()+"/mappings"))
	require.Len(t, listing["mappings"], 2)

	// Each side holds a private room mirroring the conceptual room.
	ctx := context.Background()
	localA, err := f.storeA.GetRoom(ctx, roomA)
	require.NoError(t, err)
	require.NotNil(t, localA)
	require.Equal(t, roomID, localA.ChannelID)

	localB, err := f.storeB.GetRoom(ctx, roomB)
	require.NoError(t, err)
	require.NotNil(t, localB)

	entA := uuid.MustParse(body["agent_a_entity_id"])
	entB := uuid.MustParse(body["agent_b_entity_id"])
	require.NotEqual(t, entA, entB)
}

func TestConnectRejectsSelf(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/connections", map[string]string{
		"agent_a_id": f.agentA.String(),
		"agent_b_id": f.agentA.String(),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestResolveUserAndList(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/users", map[string]string{"user_id": "u-1", "display_name": "Grace"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[map[string]string](t, resp)
	require.NotEmpty(t, first["pseudo_agent_id"])

	resp = f.post(t, "/users", map[string]string{"user_id": "u-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[map[string]string](t, resp)
	require.Equal(t, first["pseudo_agent_id"], second["pseudo_agent_id"])

	resp = f.get(t, "/users")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decode[map[string][]string](t, resp)
	require.Len(t, listing["user_agents"], 1)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	require.Equal(t, "healthy", body["status"])
}

type noopEngine struct{}

func (noopEngine) HandleMemory(ctx context.Context, m *models.Memory, r router.Responder) error {
	return nil
}
func (noopEngine) RetractMemory(ctx context.Context, id uuid.UUID) error    { return nil }
func (noopEngine) ClearRoom(ctx context.Context, id uuid.UUID, n int) error { return nil }
