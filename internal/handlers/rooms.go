package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atrium-chat/atrium/internal/models"
	"github.com/atrium-chat/atrium/internal/registry"
)

// CreateRoomRequest represents the conceptual room creation request.
type CreateRoomRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	OwnerAgentID string `json:"owner_agent_id"`
}

// RoomResponse represents a conceptual room in API responses.
type RoomResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	OwnerAgentID string `json:"owner_agent_id"`
	CreatedAt    string `json:"created_at"`
}

// MappingResponse represents a room mapping in API responses.
type MappingResponse struct {
	ConceptualRoomID string `json:"conceptual_room_id"`
	AgentID          string `json:"agent_id"`
	AgentRoomID      string `json:"agent_room_id"`
}

func roomResponse(room *models.ConceptualRoom) RoomResponse {
	return RoomResponse{
		ID:           room.ID.String(),
		Name:         room.Name,
		Type:         string(room.Type),
		OwnerAgentID: room.OwnerAgentID.String(),
		CreatedAt:    room.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func mappingResponses(mappings []models.RoomMapping) []MappingResponse {
	out := make([]MappingResponse, len(mappings))
	for i, m := range mappings {
		out[i] = MappingResponse{
			ConceptualRoomID: m.ConceptualRoomID.String(),
			AgentID:          m.AgentID.String(),
			AgentRoomID:      m.AgentRoomID.String(),
		}
	}
	return out
}

// CreateRoom handles conceptual room creation.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	owner, err := uuid.Parse(req.OwnerAgentID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid owner agent ID format")
		return
	}

	room, err := h.registry.CreateConceptualRoom(r.Context(), sanitizeName(req.Name), models.RoomType(req.Type), owner)
	if err != nil {
		if errors.Is(err, registry.ErrValidation) {
			h.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.JSON(w, http.StatusCreated, roomResponse(room))
}

// GetRoom handles fetching a conceptual room.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room, err := h.registry.GetConceptualRoom(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}

	h.JSON(w, http.StatusOK, roomResponse(room))
}

// GetRoomMappings lists every agent's mapping for a conceptual room.
func (h *Handler) GetRoomMappings(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room, err := h.registry.GetConceptualRoom(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}

	mappings, err := h.registry.MappingsForRoom(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]any{"mappings": mappingResponses(mappings)})
}

// GetRoomAgents lists the agents participating in a conceptual room.
func (h *Handler) GetRoomAgents(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room, err := h.registry.GetConceptualRoom(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}

	agents, err := h.registry.AgentsInRoom(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	out := make([]string, len(agents))
	for i, id := range agents {
		out[i] = id.String()
	}
	h.JSON(w, http.StatusOK, map[string][]string{"agents": out})
}

// EnsureMapping fetches the mapping for a (room, agent) pair, creating
// the agent's mirrored room on first access.
func (h *Handler) EnsureMapping(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}
	agentID, err := uuid.Parse(chi.URLParam(r, "agentId"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent ID format")
		return
	}

	svc := h.fleet.Get(agentID)
	if svc == nil {
		h.Error(w, http.StatusNotFound, "agent not running in this deployment")
		return
	}

	agentRoomID, err := h.registry.CreateMirroredRoom(r.Context(), roomID, agentID, svc)
	if err != nil {
		if errors.Is(err, registry.ErrRoomNotFound) {
			h.Error(w, http.StatusNotFound, "room not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to mirror room")
		return
	}

	h.JSON(w, http.StatusOK, MappingResponse{
		ConceptualRoomID: roomID.String(),
		AgentID:          agentID.String(),
		AgentRoomID:      agentRoomID.String(),
	})
}

// GetAgentMappings lists every conceptual room an agent is mapped into.
func (h *Handler) GetAgentMappings(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid agent ID format")
		return
	}

	mappings, err := h.registry.MappingsForAgent(r.Context(), agentID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	h.JSON(w, http.StatusOK, map[string]any{"mappings": mappingResponses(mappings)})
}
