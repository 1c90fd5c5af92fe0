package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/atrium-chat/atrium/internal/models"
)

// ConnectRequest represents the direct-connection request between two
// agents.
type ConnectRequest struct {
	AgentAID   string `json:"agent_a_id"`
	AgentAName string `json:"agent_a_name,omitempty"`
	AgentBID   string `json:"agent_b_id"`
	AgentBName string `json:"agent_b_name,omitempty"`
}

// ConnectResponse reports the room and per-agent mirrors a connection
// produced.
type ConnectResponse struct {
	RoomID    string `json:"room_id"`
	RoomAID   string `json:"agent_a_room_id"`
	RoomBID   string `json:"agent_b_room_id"`
	EntityAID string `json:"agent_a_entity_id"` // B as seen by A
	EntityBID string `json:"agent_b_entity_id"` // A as seen by B
}

// Connect establishes a direct two-agent connection: one conceptual DM
// room, a mirrored room per agent, and mutual entity registration so
// each agent can address the other.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	agentA, err := uuid.Parse(req.AgentAID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent A ID format")
		return
	}
	agentB, err := uuid.Parse(req.AgentBID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent B ID format")
		return
	}
	if agentA == agentB {
		h.Error(w, http.StatusBadRequest, "cannot connect an agent to itself")
		return
	}

	svcA := h.fleet.Get(agentA)
	svcB := h.fleet.Get(agentB)
	if svcA == nil || svcB == nil {
		h.Error(w, http.StatusNotFound, "both agents must be running in this deployment")
		return
	}

	nameA := req.AgentAName
	if nameA == "" {
		nameA = svcA.AgentName()
	}
	nameB := req.AgentBName
	if nameB == "" {
		nameB = svcB.AgentName()
	}

	ctx := r.Context()
	roomName := sanitizeName(fmt.Sprintf("dm-%s-%s", nameA, nameB))

	room, err := h.registry.CreateConceptualRoom(ctx, roomName, models.RoomTypeDM, agentA)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	roomA, err := h.registry.CreateMirroredRoom(ctx, room.ID, agentA, svcA)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to mirror room for agent A")
		return
	}
	roomB, err := h.registry.CreateMirroredRoom(ctx, room.ID, agentB, svcB)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to mirror room for agent B")
		return
	}

	entityA, err := svcA.EnsureRemoteEntity(ctx, agentB, nameB)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to register entity for agent A")
		return
	}
	entityB, err := svcB.EnsureRemoteEntity(ctx, agentA, nameA)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to register entity for agent B")
		return
	}

	h.JSON(w, http.StatusCreated, ConnectResponse{
		RoomID:    room.ID.String(),
		RoomAID:   roomA.String(),
		RoomBID:   roomB.String(),
		EntityAID: entityA.String(),
		EntityBID: entityB.String(),
	})
}
