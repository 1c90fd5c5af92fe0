package models

import (
	"time"

	"github.com/google/uuid"
)

// HubMessage is the hub's canonical view of a message, as delivered over
// the event bus. Immutable once received; unique by ID within a channel.
type HubMessage struct {
	ID                 uuid.UUID      `json:"id"`
	ChannelID          uuid.UUID      `json:"channel_id"`
	ServerID           uuid.UUID      `json:"server_id"`
	AuthorID           uuid.UUID      `json:"author_id"`
	AuthorDisplayName  string         `json:"author_display_name,omitempty"`
	Content            string         `json:"content"`
	SourceID           string         `json:"source_id,omitempty"`
	SourceType         string         `json:"source_type,omitempty"`
	InReplyToMessageID *uuid.UUID     `json:"in_reply_to_message_id,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}
