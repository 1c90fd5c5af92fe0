// Package registry owns the conceptual-room table and the
// conceptual-room to agent-room associations, plus the pseudo-agent
// records the user-identity bridge persists.
package registry

import (
	"context"

	"github.com/google/uuid"

	"github.com/atrium-chat/atrium/internal/models"
)

// Store is the persistence interface behind the registry. Memory,
// SQLite, and Postgres backends implement it. Lookups return nil (not an
// error) when no record exists.
type Store interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Conceptual rooms
	CreateConceptualRoom(ctx context.Context, room *models.ConceptualRoom) error
	GetConceptualRoom(ctx context.Context, id uuid.UUID) (*models.ConceptualRoom, error)

	// Room mappings. Upsert overwrites agent_room_id for an existing
	// (room, agent) pair and must be idempotent.
	UpsertRoomMapping(ctx context.Context, m *models.RoomMapping) error
	GetRoomMapping(ctx context.Context, roomID, agentID uuid.UUID) (*models.RoomMapping, error)
	MappingsForRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomMapping, error)
	MappingsForAgent(ctx context.Context, agentID uuid.UUID) ([]models.RoomMapping, error)

	// Pseudo-agents (user-identity bridge records)
	CreatePseudoAgent(ctx context.Context, agent *models.PseudoAgent) error
	GetPseudoAgent(ctx context.Context, id uuid.UUID) (*models.PseudoAgent, error)
	GetPseudoAgentByUserID(ctx context.Context, userID string) (*models.PseudoAgent, error)
	ListPseudoAgents(ctx context.Context) ([]models.PseudoAgent, error)
}
