// Package bus carries hub events between the hub and per-agent routers
// as a closed set of typed variants.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/atrium-chat/atrium/internal/models"
)

// EventKind discriminates the bus event variants.
type EventKind string

const (
	KindNewMessage        EventKind = "new_message"
	KindMessageDeleted    EventKind = "message_deleted"
	KindChannelCleared    EventKind = "channel_cleared"
	KindServerAgentUpdate EventKind = "server_agent_update"
)

// ServerAgentUpdate change types.
const (
	AgentAddedToServer     = "agent_added_to_server"
	AgentRemovedFromServer = "agent_removed_from_server"
)

// Event is one of the four bus event variants.
type Event interface {
	Kind() EventKind
}

// NewMessage announces a message accepted by the hub.
type NewMessage struct {
	Message models.HubMessage `json:"message"`
}

func (NewMessage) Kind() EventKind { return KindNewMessage }

// MessageDeleted announces that the hub retracted a message.
type MessageDeleted struct {
	MessageID uuid.UUID `json:"message_id"`
}

func (MessageDeleted) Kind() EventKind { return KindMessageDeleted }

// ChannelCleared announces that a channel's history was wiped.
type ChannelCleared struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

func (ChannelCleared) Kind() EventKind { return KindChannelCleared }

// ServerAgentUpdate announces an agent joining or leaving a server.
type ServerAgentUpdate struct {
	AgentID  uuid.UUID `json:"agent_id"`
	ServerID uuid.UUID `json:"server_id"`
	Type     string    `json:"type"`
}

func (ServerAgentUpdate) Kind() EventKind { return KindServerAgentUpdate }

// Handler consumes bus events. Handlers must not block the caller for
// long; the router spawns its own goroutines per event.
type Handler func(ctx context.Context, ev Event)

// Bus is the shared event transport. Publish delivers an event to every
// current subscriber; Subscribe registers a handler and returns a cancel
// function that stops delivery.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(h Handler) (cancel func())
}

// Envelope is the wire form of an event for cross-process transports.
// The id is a ULID used for log correlation only.
type Envelope struct {
	ID      string          `json:"id"`
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps an event in an envelope and serializes it.
func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		ID:      ulid.Make().String(),
		Kind:    ev.Kind(),
		Payload: payload,
	})
}

// Decode parses an envelope back into its typed event.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Kind {
	case KindNewMessage:
		var ev NewMessage
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindMessageDeleted:
		var ev MessageDeleted
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindChannelCleared:
		var ev ChannelCleared
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case KindServerAgentUpdate:
		var ev ServerAgentUpdate
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}
