package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atrium-chat/atrium/internal/models"
)

type mappingKey struct {
	roomID  uuid.UUID
	agentID uuid.UUID
}

// MemoryStore is the in-process Store for tests and single-binary
// development deployments. One mutex guards all tables; there is no
// cross-table multi-step invariant that would need more.
type MemoryStore struct {
	mu           sync.RWMutex
	rooms        map[uuid.UUID]models.ConceptualRoom
	mappings     map[mappingKey]models.RoomMapping
	pseudo       map[uuid.UUID]models.PseudoAgent
	pseudoByUser map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:        make(map[uuid.UUID]models.ConceptualRoom),
		mappings:     make(map[mappingKey]models.RoomMapping),
		pseudo:       make(map[uuid.UUID]models.PseudoAgent),
		pseudoByUser: make(map[string]uuid.UUID),
	}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// CreateConceptualRoom stores a room record.
func (s *MemoryStore) CreateConceptualRoom(ctx context.Context, room *models.ConceptualRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = *room
	return nil
}

// GetConceptualRoom retrieves a room by id.
func (s *MemoryStore) GetConceptualRoom(ctx context.Context, id uuid.UUID) (*models.ConceptualRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

// UpsertRoomMapping inserts or overwrites the mapping for a (room,
// agent) pair, keeping the original created_at on overwrite.
func (s *MemoryStore) UpsertRoomMapping(ctx context.Context, m *models.RoomMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := mappingKey{roomID: m.ConceptualRoomID, agentID: m.AgentID}
	entry := *m
	if existing, ok := s.mappings[key]; ok {
		entry.CreatedAt = existing.CreatedAt
	} else if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.mappings[key] = entry
	return nil
}

// GetRoomMapping retrieves the mapping for a (room, agent) pair.
func (s *MemoryStore) GetRoomMapping(ctx context.Context, roomID, agentID uuid.UUID) (*models.RoomMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[mappingKey{roomID: roomID, agentID: agentID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// MappingsForRoom lists every agent's mapping for a conceptual room.
func (s *MemoryStore) MappingsForRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RoomMapping
	for key, m := range s.mappings {
		if key.roomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MappingsForAgent lists every conceptual room an agent is mapped into.
func (s *MemoryStore) MappingsForAgent(ctx context.Context, agentID uuid.UUID) ([]models.RoomMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RoomMapping
	for key, m := range s.mappings {
		if key.agentID == agentID {
			out = append(out, m)
		}
	}
	return out, nil
}

// CreatePseudoAgent stores a pseudo-agent record. If the user already
// has one, the per-user index keeps the first record (first one wins).
func (s *MemoryStore) CreatePseudoAgent(ctx context.Context, agent *models.PseudoAgent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pseudo[agent.ID] = *agent
	if _, ok := s.pseudoByUser[agent.Metadata.UserID]; !ok {
		s.pseudoByUser[agent.Metadata.UserID] = agent.ID
	}
	return nil
}

// GetPseudoAgent retrieves a pseudo-agent by id.
func (s *MemoryStore) GetPseudoAgent(ctx context.Context, id uuid.UUID) (*models.PseudoAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.pseudo[id]
	if !ok {
		return nil, nil
	}
	return &agent, nil
}

// GetPseudoAgentByUserID retrieves the pseudo-agent for a human user.
func (s *MemoryStore) GetPseudoAgentByUserID(ctx context.Context, userID string) (*models.PseudoAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pseudoByUser[userID]
	if !ok {
		return nil, nil
	}
	agent := s.pseudo[id]
	return &agent, nil
}

// ListPseudoAgents lists all pseudo-agent records.
func (s *MemoryStore) ListPseudoAgents(ctx context.Context) ([]models.PseudoAgent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PseudoAgent, 0, len(s.pseudo))
	for _, agent := range s.pseudo {
		out = append(out, agent)
	}
	return out, nil
}
