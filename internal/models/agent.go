package models

import (
	"time"

	"github.com/google/uuid"
)

// World is an agent's private representation of a hub server. The
// originating server id is retained so replies can be routed back without
// inverting the one-way id derivation.
type World struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	ServerID  uuid.UUID `json:"server_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Room is an agent's private representation of a hub channel.
type Room struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	WorldID   uuid.UUID `json:"world_id"`
	ChannelID uuid.UUID `json:"channel_id"`
	Name      string    `json:"name"`
	Type      RoomType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Entity is an agent's private representation of a remote author, human
// or agent.
type Entity struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	RemoteID  uuid.UUID `json:"remote_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryMetadata carries the routing context of a memory. SourceID always
// equals the originating hub message id and is the de-duplication key.
type MemoryMetadata struct {
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	SourceID  string         `json:"source_id"`
	InReplyTo *uuid.UUID     `json:"in_reply_to,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// Memory is an agent's durable record of a processed hub message.
// Exactly one memory exists per (agent, hub message id) pair.
type Memory struct {
	ID        uuid.UUID      `json:"id"`
	EntityID  uuid.UUID      `json:"entity_id"`
	AgentID   uuid.UUID      `json:"agent_id"`
	RoomID    uuid.UUID      `json:"room_id"`
	WorldID   uuid.UUID      `json:"world_id"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  MemoryMetadata `json:"metadata"`
}

// PseudoAgentMetadata marks a pseudo-agent as the stand-in for a human
// user.
type PseudoAgentMetadata struct {
	IsUserAgent bool   `json:"is_user_agent"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	IsEnabled   bool   `json:"is_enabled"`
}

// PseudoAgent is a non-reasoning agent record representing a human user,
// so humans can be addressed with the same identifier scheme as agents.
type PseudoAgent struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	ModelType string              `json:"model_type"`
	Metadata  PseudoAgentMetadata `json:"metadata"`
	CreatedAt time.Time           `json:"created_at"`
}
