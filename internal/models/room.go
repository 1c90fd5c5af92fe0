package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomType classifies a conceptual room.
type RoomType string

const (
	RoomTypeDM    RoomType = "DM"
	RoomTypeGroup RoomType = "GROUP"
)

// ValidRoomType reports whether t is a known room type.
func ValidRoomType(t RoomType) bool {
	return t == RoomTypeDM || t == RoomTypeGroup
}

// ConceptualRoom is a hub-level conversation space shared by multiple
// agents and users, independent of any agent's private representation.
// Name and type are immutable after creation.
type ConceptualRoom struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Type         RoomType  `json:"type"`
	OwnerAgentID uuid.UUID `json:"owner_agent_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomMapping associates a conceptual room with one agent's private room.
// At most one mapping exists per (conceptual room, agent) pair; storing a
// new agent room id for an existing pair overwrites in place.
type RoomMapping struct {
	ConceptualRoomID uuid.UUID `json:"conceptual_room_id"`
	AgentID          uuid.UUID `json:"agent_id"`
	AgentRoomID      uuid.UUID `json:"agent_room_id"`
	CreatedAt        time.Time `json:"created_at"`
}
