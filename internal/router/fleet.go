package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atrium-chat/atrium/internal/identity"
	"github.com/atrium-chat/atrium/internal/models"
)

// EnsureLocalRoom provisions the agent's private mirror of a conceptual
// room. Mirrored rooms hang off a per-agent local world seeded from the
// nil server id, and the room's channel id is the conceptual room id so
// replies route by the hub-addressable identifier.
func (s *Service) EnsureLocalRoom(ctx context.Context, conceptualRoomID uuid.UUID, name string, roomType models.RoomType) (uuid.UUID, error) {
	now := time.Now().UTC()
	worldID := identity.Derive(s.cfg.AgentID, uuid.Nil.String())
	roomID := identity.Derive(s.cfg.AgentID, conceptualRoomID.String())

	if err := s.store.EnsureWorld(ctx, &models.World{
		ID:        worldID,
		AgentID:   s.cfg.AgentID,
		ServerID:  uuid.Nil,
		Name:      "local",
		CreatedAt: now,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("ensuring local world: %w", err)
	}

	if err := s.store.EnsureRoom(ctx, &models.Room{
		ID:        roomID,
		AgentID:   s.cfg.AgentID,
		WorldID:   worldID,
		ChannelID: conceptualRoomID,
		Name:      name,
		Type:      roomType,
		CreatedAt: now,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("ensuring local room: %w", err)
	}

	return roomID, nil
}

// EnsureRemoteEntity records another agent or user in this agent's
// entity table, so direct connections leave both sides able to address
// each other.
func (s *Service) EnsureRemoteEntity(ctx context.Context, remoteID uuid.UUID, name string) (uuid.UUID, error) {
	entityID := identity.Derive(s.cfg.AgentID, remoteID.String())
	err := s.store.EnsureEntity(ctx, &models.Entity{
		ID:        entityID,
		AgentID:   s.cfg.AgentID,
		RemoteID:  remoteID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return uuid.Nil, err
	}
	return entityID, nil
}

// AgentID returns the agent this router serves.
func (s *Service) AgentID() uuid.UUID { return s.cfg.AgentID }

// AgentName returns the agent's display name.
func (s *Service) AgentName() string { return s.cfg.AgentName }

// Fleet is the set of routers running in this process, keyed by agent
// id. Administrative endpoints use it to reach an agent's provisioning
// primitives.
type Fleet struct {
	mu      sync.RWMutex
	routers map[uuid.UUID]*Service
}

// NewFleet creates an empty fleet.
func NewFleet() *Fleet {
	return &Fleet{routers: make(map[uuid.UUID]*Service)}
}

// Add registers a router under its agent id.
func (f *Fleet) Add(s *Service) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routers[s.AgentID()] = s
}

// Get returns the router for an agent, nil when this process does not
// run that agent.
func (f *Fleet) Get(agentID uuid.UUID) *Service {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.routers[agentID]
}

// All returns the routers in the fleet.
func (f *Fleet) All() []*Service {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Service, 0, len(f.routers))
	for _, s := range f.routers {
		out = append(out, s)
	}
	return out
}

// StopAll stops every router.
func (f *Fleet) StopAll() {
	for _, s := range f.All() {
		s.Stop()
	}
}
