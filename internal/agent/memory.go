package agent

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/atrium-chat/atrium/internal/models"
)

// MemoryStore is an in-memory Store for tests and single-node
// development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	worlds   map[uuid.UUID]models.World
	rooms    map[uuid.UUID]models.Room
	entities map[uuid.UUID]models.Entity
	memories map[uuid.UUID]models.Memory
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		worlds:   make(map[uuid.UUID]models.World),
		rooms:    make(map[uuid.UUID]models.Room),
		entities: make(map[uuid.UUID]models.Entity),
		memories: make(map[uuid.UUID]models.Memory),
	}
}

func (s *MemoryStore) EnsureWorld(ctx context.Context, world *models.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.worlds[world.ID]; ok {
		return nil
	}
	s.worlds[world.ID] = *world
	return nil
}

func (s *MemoryStore) EnsureRoom(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return nil
	}
	s.rooms[room.ID] = *room
	return nil
}

func (s *MemoryStore) EnsureEntity(ctx context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entity.ID]; ok {
		return nil
	}
	s.entities[entity.ID] = *entity
	return nil
}

func (s *MemoryStore) CreateMemory(ctx context.Context, memory *models.Memory) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memories[memory.ID]; ok {
		return false, nil
	}
	s.memories[memory.ID] = *memory
	return true, nil
}

func (s *MemoryStore) GetMemory(ctx context.Context, id uuid.UUID) (*models.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *MemoryStore) DeleteMemory(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, id)
	return nil
}

func (s *MemoryStore) GetWorld(ctx context.Context, id uuid.UUID) (*models.World, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.worlds[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryStore) MemoriesByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Memory
	for _, m := range s.memories {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountMemoriesByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.memories {
		if m.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
