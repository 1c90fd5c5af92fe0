// Package router is the per-agent message router: it consumes hub events
// from the shared bus, filters them by participation, translates shared
// identifiers into agent-local ones, writes memories exactly once, and
// relays the reasoning engine's replies back to the hub.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atrium-chat/atrium/internal/agent"
	"github.com/atrium-chat/atrium/internal/bus"
	"github.com/atrium-chat/atrium/internal/hub"
	"github.com/atrium-chat/atrium/internal/identity"
	"github.com/atrium-chat/atrium/internal/metrics"
	"github.com/atrium-chat/atrium/internal/models"
	"github.com/atrium-chat/atrium/internal/useragent"
)

// Responder accepts a reply for a processed memory. The router implements
// it; the reasoning engine calls it zero or more times per memory,
// typically once.
type Responder interface {
	Reply(ctx context.Context, memoryID uuid.UUID, reply models.Reply) error
}

// Engine is the reasoning side of an agent. The router decides whether
// and how a message enters the agent's world; the engine decides what to
// say about it.
type Engine interface {
	// HandleMemory processes a freshly created memory. Replies go through
	// the responder.
	HandleMemory(ctx context.Context, memory *models.Memory, r Responder) error

	// RetractMemory signals that a previously handled memory was deleted
	// upstream.
	RetractMemory(ctx context.Context, memoryID uuid.UUID) error

	// ClearRoom signals that a room's history was wiped. count is a
	// snapshot of the memories present when the event arrived.
	ClearRoom(ctx context.Context, roomID uuid.UUID, count int) error
}

// Config identifies the agent a router serves.
type Config struct {
	AgentID   uuid.UUID
	AgentName string

	// SelfSourceAllow lists the source_type values that bypass the
	// self-message filter: front ends where a human speaks on the agent's
	// own behalf.
	SelfSourceAllow []string
}

// Service routes hub events for one agent.
type Service struct {
	cfg    Config
	bus    bus.Bus
	hub    *hub.Client
	store  agent.Store
	bridge *useragent.Bridge
	engine Engine
	logger zerolog.Logger

	mu      sync.RWMutex
	servers map[uuid.UUID]struct{}

	stopMu sync.Mutex
	cancel func()
}

// NewService wires a router for one agent. The bridge may be shared with
// other routers; the store must not be.
func NewService(cfg Config, b bus.Bus, hc *hub.Client, store agent.Store, bridge *useragent.Bridge, engine Engine, logger zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		bus:     b,
		hub:     hc,
		store:   store,
		bridge:  bridge,
		engine:  engine,
		logger:  logger.With().Str("agent", cfg.AgentName).Logger(),
		servers: make(map[uuid.UUID]struct{}),
	}
}

// Start subscribes to the bus and seeds the subscribed-server set from
// the hub. The server fetch is best-effort; a failure logs and startup
// proceeds with an empty set.
func (s *Service) Start(ctx context.Context) {
	servers, err := s.hub.GetAgentServers(ctx, s.cfg.AgentID)
	if err != nil {
		metrics.HubErrors.WithLabelValues("servers").Inc()
		s.logger.Warn().Err(err).Msg("could not fetch subscribed servers, starting with none")
	} else {
		s.mu.Lock()
		for _, id := range servers {
			s.servers[id] = struct{}{}
		}
		s.mu.Unlock()
	}

	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.cancel != nil {
		return
	}
	s.cancel = s.bus.Subscribe(s.onEvent)
	s.logger.Info().Str("agent_id", s.cfg.AgentID.String()).Msg("router started")
}

// Stop unsubscribes from the bus. In-flight events finish on their own
// goroutines. Idempotent.
func (s *Service) Stop() {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.logger.Info().Msg("router stopped")
}

// onEvent dispatches each bus event on its own goroutine so one slow
// message never blocks the consumption loop. A panic in one event's
// processing is logged and contained.
func (s *Service) onEvent(ctx context.Context, ev bus.Event) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Str("kind", string(ev.Kind())).Msg("event handler panicked")
			}
		}()

		switch e := ev.(type) {
		case bus.NewMessage:
			s.handleNewMessage(ctx, e.Message)
		case bus.MessageDeleted:
			s.handleMessageDeleted(ctx, e.MessageID)
		case bus.ChannelCleared:
			s.handleChannelCleared(ctx, e.ChannelID)
		case bus.ServerAgentUpdate:
			s.handleServerAgentUpdate(e)
		}
	}()
}

func (s *Service) subscribedTo(serverID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.servers[serverID]
	return ok
}

// handleNewMessage runs the full ingestion pipeline for one hub message.
// Failures drop the message; they never propagate to other events.
func (s *Service) handleNewMessage(ctx context.Context, msg models.HubMessage) {
	metrics.MessagesReceived.WithLabelValues(s.cfg.AgentName).Inc()
	log := s.logger.With().Str("message_id", msg.ID.String()).Logger()

	// Participant/subscription filter. A hub failure here defaults to
	// drop so unrelated agents never materialize rooms speculatively.
	participants, err := s.hub.GetChannelParticipants(ctx, msg.ChannelID)
	if err != nil {
		metrics.HubErrors.WithLabelValues("participants").Inc()
		metrics.MessagesFiltered.WithLabelValues(s.cfg.AgentName, "participants_unavailable").Inc()
		log.Warn().Err(err).Msg("participant lookup failed, dropping message")
		return
	}
	if !contains(participants, s.cfg.AgentID) && !s.subscribedTo(msg.ServerID) {
		metrics.MessagesFiltered.WithLabelValues(s.cfg.AgentName, "not_participant").Inc()
		return
	}

	// Human authors get a pseudo-agent record so they are addressable
	// like agents. Best-effort; the message flows either way.
	if msg.SourceType != "" && msg.SourceType != hub.SourceTypeAgentResponse {
		if _, err := s.bridge.GetOrCreateUserAgent(ctx, msg.AuthorID.String(), msg.AuthorDisplayName); err != nil {
			log.Warn().Err(err).Msg("pseudo-agent creation failed")
		}
	}

	// Self-message filter. Allow-listed source types mark a human
	// speaking through the agent's own front end and must be recorded.
	if msg.AuthorID == s.cfg.AgentID && !s.selfSourceAllowed(msg.SourceType) {
		metrics.MessagesFiltered.WithLabelValues(s.cfg.AgentName, "self").Inc()
		return
	}

	memory, err := s.ingest(ctx, msg)
	if err != nil {
		log.Error().Err(err).Msg("message ingestion failed")
		return
	}
	if memory == nil {
		metrics.DuplicateMessages.WithLabelValues(s.cfg.AgentName).Inc()
		log.Debug().Msg("duplicate delivery skipped")
		return
	}
	metrics.MemoriesCreated.WithLabelValues(s.cfg.AgentName).Inc()

	if err := s.engine.HandleMemory(ctx, memory, s); err != nil {
		log.Error().Err(err).Msg("engine failed to handle memory")
	}
}

// ingest ensures the backing resources and writes the memory. Returns
// nil with no error when the memory already existed.
func (s *Service) ingest(ctx context.Context, msg models.HubMessage) (*models.Memory, error) {
	now := time.Now().UTC()
	worldID := identity.Derive(s.cfg.AgentID, msg.ServerID.String())
	roomID := identity.Derive(s.cfg.AgentID, msg.ChannelID.String())
	entityID := identity.Derive(s.cfg.AgentID, msg.AuthorID.String())

	if err := s.store.EnsureWorld(ctx, &models.World{
		ID:        worldID,
		AgentID:   s.cfg.AgentID,
		ServerID:  msg.ServerID,
		Name:      msg.ServerID.String(),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("ensuring world: %w", err)
	}

	if err := s.store.EnsureRoom(ctx, &models.Room{
		ID:        roomID,
		AgentID:   s.cfg.AgentID,
		WorldID:   worldID,
		ChannelID: msg.ChannelID,
		Name:      msg.ChannelID.String(),
		Type:      models.RoomTypeGroup,
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("ensuring room: %w", err)
	}

	if err := s.store.EnsureEntity(ctx, &models.Entity{
		ID:        entityID,
		AgentID:   s.cfg.AgentID,
		RemoteID:  msg.AuthorID,
		Name:      msg.AuthorDisplayName,
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("ensuring entity: %w", err)
	}

	var inReplyTo *uuid.UUID
	if msg.InReplyToMessageID != nil {
		ref := identity.Derive(s.cfg.AgentID, msg.InReplyToMessageID.String())
		inReplyTo = &ref
	}

	memory := &models.Memory{
		ID:       identity.Derive(s.cfg.AgentID, msg.ID.String()),
		EntityID: entityID,
		AgentID:  s.cfg.AgentID,
		RoomID:   roomID,
		WorldID:  worldID,
		Content:  msg.Content,
		Metadata: models.MemoryMetadata{
			Type:      "message",
			Source:    "hub",
			SourceID:  msg.ID.String(),
			InReplyTo: inReplyTo,
			Raw:       msg.Metadata,
		},
		CreatedAt: now,
	}

	created, err := s.store.CreateMemory(ctx, memory)
	if err != nil {
		return nil, fmt.Errorf("creating memory: %w", err)
	}
	if !created {
		return nil, nil
	}
	return memory, nil
}

// Reply relays an engine reply to the hub. Empty or ignore-tagged
// replies are suppressed. Submission is best-effort: a hub failure is
// logged, never retried.
func (s *Service) Reply(ctx context.Context, memoryID uuid.UUID, reply models.Reply) error {
	if reply.Text == "" || reply.Ignored() {
		metrics.RepliesSuppressed.WithLabelValues(s.cfg.AgentName).Inc()
		return nil
	}

	memory, err := s.store.GetMemory(ctx, memoryID)
	if err != nil {
		return err
	}
	if memory == nil {
		return fmt.Errorf("reply references unknown memory %s", memoryID)
	}

	// Shared identifiers come from the stored room and world records;
	// the forward derivation is one-way.
	room, err := s.store.GetRoom(ctx, memory.RoomID)
	if err != nil {
		return err
	}
	world, err := s.store.GetWorld(ctx, memory.WorldID)
	if err != nil {
		return err
	}
	if room == nil || world == nil {
		return fmt.Errorf("reply for memory %s has no room or world", memoryID)
	}

	var inReplyTo *uuid.UUID
	if sourceID, err := uuid.Parse(memory.Metadata.SourceID); err == nil {
		inReplyTo = &sourceID
	}

	err = s.hub.SubmitMessage(ctx, hub.SubmitRequest{
		ChannelID:          room.ChannelID,
		ServerID:           world.ServerID,
		AuthorID:           s.cfg.AgentID,
		Content:            reply.Text,
		InReplyToMessageID: inReplyTo,
		RawMessage: hub.RawMessage{
			Text:    reply.Text,
			Thought: reply.Thought,
			Actions: reply.Actions,
		},
		Metadata: hub.SubmitMetadata{
			AgentID:     s.cfg.AgentID,
			AgentName:   s.cfg.AgentName,
			Attachments: reply.Attachments,
			ChannelType: string(room.Type),
			IsDM:        room.Type == models.RoomTypeDM,
		},
	})
	if err != nil {
		metrics.HubErrors.WithLabelValues("submit").Inc()
		s.logger.Error().Err(err).Str("memory_id", memoryID.String()).Msg("reply submission failed")
		return err
	}

	metrics.RepliesSent.WithLabelValues(s.cfg.AgentName).Inc()
	return nil
}

// handleMessageDeleted retracts the local memory for a deleted hub
// message. Unknown message ids are a no-op.
func (s *Service) handleMessageDeleted(ctx context.Context, hubMessageID uuid.UUID) {
	memoryID := identity.Derive(s.cfg.AgentID, hubMessageID.String())

	memory, err := s.store.GetMemory(ctx, memoryID)
	if err != nil {
		s.logger.Error().Err(err).Msg("memory lookup failed on delete")
		return
	}
	if memory == nil {
		return
	}

	if err := s.store.DeleteMemory(ctx, memoryID); err != nil {
		s.logger.Error().Err(err).Msg("memory delete failed")
		return
	}
	if err := s.engine.RetractMemory(ctx, memoryID); err != nil {
		s.logger.Error().Err(err).Msg("engine failed to retract memory")
	}
}

// handleChannelCleared signals a bulk purge for the local room. The
// count is a snapshot taken when the event arrived; concurrent new
// messages may change it.
func (s *Service) handleChannelCleared(ctx context.Context, channelID uuid.UUID) {
	roomID := identity.Derive(s.cfg.AgentID, channelID.String())

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		s.logger.Error().Err(err).Msg("room lookup failed on clear")
		return
	}
	if room == nil {
		return
	}

	count, err := s.store.CountMemoriesByRoom(ctx, roomID)
	if err != nil {
		s.logger.Error().Err(err).Msg("memory count failed on clear")
		return
	}

	if err := s.engine.ClearRoom(ctx, roomID, count); err != nil {
		s.logger.Error().Err(err).Msg("engine failed to clear room")
	}
}

// handleServerAgentUpdate maintains the subscribed-server set. Events
// addressed to other agents are ignored.
func (s *Service) handleServerAgentUpdate(ev bus.ServerAgentUpdate) {
	if ev.AgentID != s.cfg.AgentID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Type {
	case bus.AgentAddedToServer:
		s.servers[ev.ServerID] = struct{}{}
	case bus.AgentRemovedFromServer:
		delete(s.servers, ev.ServerID)
	}
}

func (s *Service) selfSourceAllowed(sourceType string) bool {
	for _, allowed := range s.cfg.SelfSourceAllow {
		if sourceType == allowed {
			return true
		}
	}
	return false
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
