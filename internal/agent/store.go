// Package agent holds the per-agent runtime state: the worlds, rooms,
// entities, and memories an agent keeps under its own identifier space.
package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/atrium-chat/atrium/internal/models"
)

// Store is the persistence boundary for one agent's runtime resources.
//
// The Ensure methods are idempotent: a record that already exists is
// success, not an error. CreateMemory reports whether this call inserted
// the record, so concurrent ingestion of the same memory id yields
// exactly one created=true. Lookups return nil when absent.
type Store interface {
	// EnsureWorld makes sure the world record exists.
	EnsureWorld(ctx context.Context, world *models.World) error

	// EnsureRoom makes sure the room record exists.
	EnsureRoom(ctx context.Context, room *models.Room) error

	// EnsureEntity makes sure the entity record exists.
	EnsureEntity(ctx context.Context, entity *models.Entity) error

	// CreateMemory inserts the memory if its id is unseen. Returns true
	// when this call created the record, false when it already existed.
	CreateMemory(ctx context.Context, memory *models.Memory) (bool, error)

	// GetMemory retrieves a memory by id, nil when absent.
	GetMemory(ctx context.Context, id uuid.UUID) (*models.Memory, error)

	// DeleteMemory removes a memory. Deleting an absent memory is a no-op.
	DeleteMemory(ctx context.Context, id uuid.UUID) error

	// GetWorld retrieves a world by id, nil when absent.
	GetWorld(ctx context.Context, id uuid.UUID) (*models.World, error)

	// GetRoom retrieves a room by id, nil when absent.
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)

	// MemoriesByRoom lists the memories in a room, oldest first.
	MemoriesByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Memory, error)

	// CountMemoriesByRoom counts the memories currently in a room.
	CountMemoriesByRoom(ctx context.Context, roomID uuid.UUID) (int, error)

	// Close releases the store's resources.
	Close() error
}
