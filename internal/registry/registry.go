package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atrium-chat/atrium/internal/identity"
	"github.com/atrium-chat/atrium/internal/models"
)

// ErrRoomNotFound marks a lookup for a conceptual room that was never
// created.
var ErrRoomNotFound = errors.New("conceptual room not found")

// ErrValidation marks a request rejected before any side effect.
var ErrValidation = errors.New("validation failed")

// RoomProvisioner is the slice of an agent runtime the registry needs to
// mirror a conceptual room: the agent's idempotent resource-ensure
// primitive.
type RoomProvisioner interface {
	EnsureLocalRoom(ctx context.Context, conceptualRoomID uuid.UUID, name string, roomType models.RoomType) (uuid.UUID, error)
}

// Service is the Room Mapping Registry: the authoritative table of
// conceptual-room to agent-room associations, shared by every router in
// a deployment.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService creates a registry over the given store.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateConceptualRoom allocates and stores a new conceptual room.
func (s *Service) CreateConceptualRoom(ctx context.Context, name string, roomType models.RoomType, ownerAgentID uuid.UUID) (*models.ConceptualRoom, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !models.ValidRoomType(roomType) {
		return nil, fmt.Errorf("%w: unknown room type %q", ErrValidation, roomType)
	}
	if ownerAgentID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner agent id is required", ErrValidation)
	}

	room := &models.ConceptualRoom{
		ID:           identity.New(),
		Name:         name,
		Type:         roomType,
		OwnerAgentID: ownerAgentID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateConceptualRoom(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("room_id", room.ID.String()).
		Str("type", string(roomType)).
		Msg("conceptual room created")
	return room, nil
}

// GetConceptualRoom retrieves a room, nil when absent.
func (s *Service) GetConceptualRoom(ctx context.Context, roomID uuid.UUID) (*models.ConceptualRoom, error) {
	return s.store.GetConceptualRoom(ctx, roomID)
}

// StoreRoomMapping upserts the association between a conceptual room and
// an agent's private room. Calling it twice with the same values is a
// no-op; a different agent room id overwrites in place.
func (s *Service) StoreRoomMapping(ctx context.Context, roomID, agentID, agentRoomID uuid.UUID) error {
	return s.store.UpsertRoomMapping(ctx, &models.RoomMapping{
		ConceptualRoomID: roomID,
		AgentID:          agentID,
		AgentRoomID:      agentRoomID,
	})
}

// GetRoomMapping retrieves the mapping for a (room, agent) pair, nil
// when absent.
func (s *Service) GetRoomMapping(ctx context.Context, roomID, agentID uuid.UUID) (*models.RoomMapping, error) {
	return s.store.GetRoomMapping(ctx, roomID, agentID)
}

// MappingsForRoom lists every agent's mapping for a conceptual room.
func (s *Service) MappingsForRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomMapping, error) {
	return s.store.MappingsForRoom(ctx, roomID)
}

// MappingsForAgent lists every conceptual room an agent is mapped into.
func (s *Service) MappingsForAgent(ctx context.Context, agentID uuid.UUID) ([]models.RoomMapping, error) {
	return s.store.MappingsForAgent(ctx, agentID)
}

// AgentsInRoom lists the agents participating in a conceptual room.
func (s *Service) AgentsInRoom(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	mappings, err := s.store.MappingsForRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	agents := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		agents = append(agents, m.AgentID)
	}
	return agents, nil
}

// CreateMirroredRoom ensures agentID has a private room mirroring the
// conceptual room and stores the mapping. Concurrent calls for the same
// pair may both provision a local room, but they converge on one stored
// mapping (last write wins) and routing uses only the stored mapping.
func (s *Service) CreateMirroredRoom(ctx context.Context, roomID, agentID uuid.UUID, p RoomProvisioner) (uuid.UUID, error) {
	room, err := s.store.GetConceptualRoom(ctx, roomID)
	if err != nil {
		return uuid.Nil, err
	}
	if room == nil {
		return uuid.Nil, ErrRoomNotFound
	}

	if existing, err := s.store.GetRoomMapping(ctx, roomID, agentID); err != nil {
		return uuid.Nil, err
	} else if existing != nil {
		return existing.AgentRoomID, nil
	}

	agentRoomID, err := p.EnsureLocalRoom(ctx, roomID, room.Name, room.Type)
	if err != nil {
		return uuid.Nil, fmt.Errorf("provisioning local room: %w", err)
	}

	if err := s.StoreRoomMapping(ctx, roomID, agentID, agentRoomID); err != nil {
		return uuid.Nil, err
	}

	s.logger.Debug().
		Str("room_id", roomID.String()).
		Str("agent_id", agentID.String()).
		Str("agent_room_id", agentRoomID.String()).
		Msg("mirrored room stored")
	return agentRoomID, nil
}
