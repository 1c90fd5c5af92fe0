package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/atrium-chat/atrium/internal/models"
)

// SQLiteStore is the embedded-database Store for an agent's runtime
// state. Each agent gets its own database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the agent database at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("agent database path is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS worlds (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		server_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		world_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		remote_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		world_id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_memories_room ON memories(room_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureWorld inserts the world record if absent.
func (s *SQLiteStore) EnsureWorld(ctx context.Context, world *models.World) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO worlds (id, agent_id, server_id, name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, world.ID.String(), world.AgentID.String(), world.ServerID, world.Name, world.CreatedAt)
	return err
}

// EnsureRoom inserts the room record if absent.
func (s *SQLiteStore) EnsureRoom(ctx context.Context, room *models.Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO rooms (id, agent_id, world_id, channel_id, name, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, room.ID.String(), room.AgentID.String(), room.WorldID.String(),
		room.ChannelID, room.Name, string(room.Type), room.CreatedAt)
	return err
}

// EnsureEntity inserts the entity record if absent.
func (s *SQLiteStore) EnsureEntity(ctx context.Context, entity *models.Entity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO entities (id, agent_id, remote_id, name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entity.ID.String(), entity.AgentID.String(), entity.RemoteID, entity.Name, entity.CreatedAt)
	return err
}

// CreateMemory inserts the memory if its id is unseen. The reported
// created flag comes from the affected-rows count, so concurrent calls
// for one id see exactly one true.
func (s *SQLiteStore) CreateMemory(ctx context.Context, memory *models.Memory) (bool, error) {
	meta, err := json.Marshal(memory.Metadata)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO memories (id, entity_id, agent_id, room_id, world_id, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, memory.ID.String(), memory.EntityID.String(), memory.AgentID.String(),
		memory.RoomID.String(), memory.WorldID.String(), memory.Content, string(meta), memory.CreatedAt)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanMemory(scan func(dest ...any) error) (*models.Memory, error) {
	m := &models.Memory{}
	var idStr, entityStr, agentStr, roomStr, worldStr, metaStr string

	err := scan(&idStr, &entityStr, &agentStr, &roomStr, &worldStr, &m.Content, &metaStr, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.ID = uuid.MustParse(idStr)
	m.EntityID = uuid.MustParse(entityStr)
	m.AgentID = uuid.MustParse(agentStr)
	m.RoomID = uuid.MustParse(roomStr)
	m.WorldID = uuid.MustParse(worldStr)
	if err := json.Unmarshal([]byte(metaStr), &m.Metadata); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMemory retrieves a memory by id.
func (s *SQLiteStore) GetMemory(ctx context.Context, id uuid.UUID) (*models.Memory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entity_id, agent_id, room_id, world_id, content, metadata, created_at
		FROM memories WHERE id = ?
	`, id.String())

	m, err := scanMemory(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// DeleteMemory removes a memory by id.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id.String())
	return err
}

// GetWorld retrieves a world by id.
func (s *SQLiteStore) GetWorld(ctx context.Context, id uuid.UUID) (*models.World, error) {
	w := &models.World{}
	var idStr, agentStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, server_id, name, created_at
		FROM worlds WHERE id = ?
	`, id.String()).Scan(&idStr, &agentStr, &w.ServerID, &w.Name, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	w.ID = uuid.MustParse(idStr)
	w.AgentID = uuid.MustParse(agentStr)
	return w, nil
}

// GetRoom retrieves a room by id.
func (s *SQLiteStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	r := &models.Room{}
	var idStr, agentStr, worldStr, typeStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, world_id, channel_id, name, type, created_at
		FROM rooms WHERE id = ?
	`, id.String()).Scan(&idStr, &agentStr, &worldStr, &r.ChannelID, &r.Name, &typeStr, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	r.ID = uuid.MustParse(idStr)
	r.AgentID = uuid.MustParse(agentStr)
	r.WorldID = uuid.MustParse(worldStr)
	r.Type = models.RoomType(typeStr)
	return r, nil
}

// MemoriesByRoom lists the memories in a room, oldest first.
func (s *SQLiteStore) MemoriesByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, agent_id, room_id, world_id, content, metadata, created_at
		FROM memories WHERE room_id = ? ORDER BY created_at ASC
	`, roomID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Memory
	for rows.Next() {
		m, err := scanMemory(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// CountMemoriesByRoom counts the memories currently in a room.
func (s *SQLiteStore) CountMemoriesByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memories WHERE room_id = ?
	`, roomID.String()).Scan(&n)
	return n, err
}
