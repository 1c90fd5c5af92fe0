package registry

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/atrium-chat/atrium/internal/models"
)

// SQLiteStore is the embedded-database Store for single-node
// deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the registry database.
// If dbPath is empty, defaults to "./data/atrium.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/atrium.db"
	}

	// Ensure directory exists
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
	CREATE TABLE IF NOT EXISTS conceptual_rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		owner_agent_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS room_mappings (
		conceptual_room_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		agent_room_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (conceptual_room_id, agent_id)
	);

	CREATE TABLE IF NOT EXISTS pseudo_agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		model_type TEXT NOT NULL DEFAULT 'none',
		user_id TEXT NOT NULL,
		username TEXT DEFAULT '',
		is_enabled INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_room_mappings_agent ON room_mappings(agent_id);
	CREATE INDEX IF NOT EXISTS idx_pseudo_agents_user ON pseudo_agents(user_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateConceptualRoom stores a room record.
func (s *SQLiteStore) CreateConceptualRoom(ctx context.Context, room *models.ConceptualRoom) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conceptual_rooms (id, name, type, owner_agent_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, room.ID.String(), room.Name, string(room.Type), room.OwnerAgentID.String(), room.CreatedAt)
	return err
}

// GetConceptualRoom retrieves a room by id.
func (s *SQLiteStore) GetConceptualRoom(ctx context.Context, id uuid.UUID) (*models.ConceptualRoom, error) {
	room := &models.ConceptualRoom{}
	var idStr, typeStr, ownerStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, owner_agent_id, created_at
		FROM conceptual_rooms WHERE id = ?
	`, id.String()).Scan(&idStr, &room.Name, &typeStr, &ownerStr, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	room.ID = uuid.MustParse(idStr)
	room.Type = models.RoomType(typeStr)
	room.OwnerAgentID = uuid.MustParse(ownerStr)
	return room, nil
}

// UpsertRoomMapping inserts or overwrites the mapping for a (room,
// agent) pair.
func (s *SQLiteStore) UpsertRoomMapping(ctx context.Context, m *models.RoomMapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_mappings (conceptual_room_id, agent_id, agent_room_id)
		VALUES (?, ?, ?)
		ON CONFLICT (conceptual_room_id, agent_id)
		DO UPDATE SET agent_room_id = excluded.agent_room_id
	`, m.ConceptualRoomID.String(), m.AgentID.String(), m.AgentRoomID.String())
	return err
}

// GetRoomMapping retrieves the mapping for a (room, agent) pair.
func (s *SQLiteStore) GetRoomMapping(ctx context.Context, roomID, agentID uuid.UUID) (*models.RoomMapping, error) {
	m := &models.RoomMapping{}
	var roomStr, agentStr, localStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT conceptual_room_id, agent_id, agent_room_id, created_at
		FROM room_mappings WHERE conceptual_room_id = ? AND agent_id = ?
	`, roomID.String(), agentID.String()).Scan(&roomStr, &agentStr, &localStr, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	m.ConceptualRoomID = uuid.MustParse(roomStr)
	m.AgentID = uuid.MustParse(agentStr)
	m.AgentRoomID = uuid.MustParse(localStr)
	return m, nil
}

func (s *SQLiteStore) queryMappings(ctx context.Context, query string, arg string) ([]models.RoomMapping, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RoomMapping
	for rows.Next() {
		var m models.RoomMapping
		var roomStr, agentStr, localStr string
		if err := rows.Scan(&roomStr, &agentStr, &localStr, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ConceptualRoomID = uuid.MustParse(roomStr)
		m.AgentID = uuid.MustParse(agentStr)
		m.AgentRoomID = uuid.MustParse(localStr)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MappingsForRoom lists every agent's mapping for a conceptual room.
func (s *SQLiteStore) MappingsForRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomMapping, error) {
	return s.queryMappings(ctx, `
		SELECT conceptual_room_id, agent_id, agent_room_id, created_at
		FROM room_mappings WHERE conceptual_room_id = ?
	`, roomID.String())
}

// MappingsForAgent lists every conceptual room an agent is mapped into.
func (s *SQLiteStore) MappingsForAgent(ctx context.Context, agentID uuid.UUID) ([]models.RoomMapping, error) {
	return s.queryMappings(ctx, `
		SELECT conceptual_room_id, agent_id, agent_room_id, created_at
		FROM room_mappings WHERE agent_id = ?
	`, agentID.String())
}

// CreatePseudoAgent stores a pseudo-agent record.
func (s *SQLiteStore) CreatePseudoAgent(ctx context.Context, agent *models.PseudoAgent) error {
	enabled := 0
	if agent.Metadata.IsEnabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pseudo_agents (id, name, model_type, user_id, username, is_enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, agent.ID.String(), agent.Name, agent.ModelType, agent.Metadata.UserID,
		agent.Metadata.Username, enabled, agent.CreatedAt)
	return err
}

func scanPseudoAgent(scan func(dest ...any) error) (*models.PseudoAgent, error) {
	agent := &models.PseudoAgent{}
	var idStr string
	var enabled int

	err := scan(&idStr, &agent.Name, &agent.ModelType, &agent.Metadata.UserID,
		&agent.Metadata.Username, &enabled, &agent.CreatedAt)
	if err != nil {
		return nil, err
	}

	agent.ID = uuid.MustParse(idStr)
	agent.Metadata.IsUserAgent = true
	agent.Metadata.IsEnabled = enabled == 1
	return agent, nil
}

// GetPseudoAgent retrieves a pseudo-agent by id.
func (s *SQLiteStore) GetPseudoAgent(ctx context.Context, id uuid.UUID) (*models.PseudoAgent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, model_type, user_id, username, is_enabled, created_at
		FROM pseudo_agents WHERE id = ?
	`, id.String())

	agent, err := scanPseudoAgent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// GetPseudoAgentByUserID retrieves the earliest pseudo-agent created for
// a human user (first one wins under concurrent creation).
func (s *SQLiteStore) GetPseudoAgentByUserID(ctx context.Context, userID string) (*models.PseudoAgent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, model_type, user_id, username, is_enabled, created_at
		FROM pseudo_agents WHERE user_id = ?
		ORDER BY created_at ASC, id ASC LIMIT 1
	`, userID)

	agent, err := scanPseudoAgent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// ListPseudoAgents lists all pseudo-agent records.
func (s *SQLiteStore) ListPseudoAgents(ctx context.Context) ([]models.PseudoAgent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, model_type, user_id, username, is_enabled, created_at
		FROM pseudo_agents ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PseudoAgent
	for rows.Next() {
		agent, err := scanPseudoAgent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *agent)
	}
	return out, rows.Err()
}
