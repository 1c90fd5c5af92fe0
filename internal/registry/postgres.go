package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-chat/atrium/internal/models"
)

// PostgresStore is the shared-database Store for multi-process
// deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateConceptualRoom stores a room record.
func (s *PostgresStore) CreateConceptualRoom(ctx context.Context, room *models.ConceptualRoom) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conceptual_rooms (id, name, type, owner_agent_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, room.ID, room.Name, string(room.Type), room.OwnerAgentID, room.CreatedAt)
	return err
}

// GetConceptualRoom retrieves a room by id.
func (s *PostgresStore) GetConceptualRoom(ctx context.Context, id uuid.UUID) (*models.ConceptualRoom, error) {
	room := &models.ConceptualRoom{}
	var typeStr string

	err := s.pool.QueryRow(ctx, `
		SELECT id, name, type, owner_agent_id, created_at
		FROM conceptual_rooms WHERE id = $1
	`, id).Scan(&room.ID, &room.Name, &typeStr, &room.OwnerAgentID, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	room.Type = models.RoomType(typeStr)
	return room, nil
}

// UpsertRoomMapping inserts or overwrites the mapping for a (room,
// agent) pair.
func (s *PostgresStore) UpsertRoomMapping(ctx context.Context, m *models.RoomMapping) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO room_mappings (conceptual_room_id, agent_id, agent_room_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (conceptual_room_id, agent_id)
		DO UPDATE SET agent_room_id = EXCLUDED.agent_room_id
	`, m.ConceptualRoomID, m.AgentID, m.AgentRoomID)
	return err
}

// GetRoomMapping retrieves the mapping for a (room, agent) pair.
func (s *PostgresStore) GetRoomMapping(ctx context.Context, roomID, agentID uuid.UUID) (*models.RoomMapping, error) {
	m := &models.RoomMapping{}
	err := s.pool.QueryRow(ctx, `
		SELECT conceptual_room_id, agent_id, agent_room_id, created_at
		FROM room_mappings WHERE conceptual_room_id = $1 AND agent_id = $2
	`, roomID, agentID).Scan(&m.ConceptualRoomID, &m.AgentID, &m.AgentRoomID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) queryMappings(ctx context.Context, query string, arg uuid.UUID) ([]models.RoomMapping, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RoomMapping
	for rows.Next() {
		var m models.RoomMapping
		if err := rows.Scan(&m.ConceptualRoomID, &m.AgentID, &m.AgentRoomID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MappingsForRoom lists every agent's mapping for a conceptual room.
func (s *PostgresStore) MappingsForRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomMapping, error) {
	return s.queryMappings(ctx, `
		SELECT conceptual_room_id, agent_id, agent_room_id, created_at
		FROM room_mappings WHERE conceptual_room_id = $1
	`, roomID)
}

// MappingsForAgent lists every conceptual room an agent is mapped into.
func (s *PostgresStore) MappingsForAgent(ctx context.Context, agentID uuid.UUID) ([]models.RoomMapping, error) {
	return s.queryMappings(ctx, `
		SELECT conceptual_room_id, agent_id, agent_room_id, created_at
		FROM room_mappings WHERE agent_id = $1
	`, agentID)
}

// CreatePseudoAgent stores a pseudo-agent record.
func (s *PostgresStore) CreatePseudoAgent(ctx context.Context, agent *models.PseudoAgent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pseudo_agents (id, name, model_type, user_id, username, is_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, agent.ID, agent.Name, agent.ModelType, agent.Metadata.UserID,
		agent.Metadata.Username, agent.Metadata.IsEnabled, agent.CreatedAt)
	return err
}

func (s *PostgresStore) scanPseudoAgent(row pgx.Row) (*models.PseudoAgent, error) {
	agent := &models.PseudoAgent{}
	err := row.Scan(&agent.ID, &agent.Name, &agent.ModelType, &agent.Metadata.UserID,
		&agent.Metadata.Username, &agent.Metadata.IsEnabled, &agent.CreatedAt)
	if err != nil {
		return nil, err
	}
	agent.Metadata.IsUserAgent = true
	return agent, nil
}

// GetPseudoAgent retrieves a pseudo-agent by id.
func (s *PostgresStore) GetPseudoAgent(ctx context.Context, id uuid.UUID) (*models.PseudoAgent, error) {
	agent, err := s.scanPseudoAgent(s.pool.QueryRow(ctx, `
		SELECT id, name, model_type, user_id, username, is_enabled, created_at
		FROM pseudo_agents WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// GetPseudoAgentByUserID retrieves the earliest pseudo-agent created for
// a human user (first one wins under concurrent creation).
func (s *PostgresStore) GetPseudoAgentByUserID(ctx context.Context, userID string) (*models.PseudoAgent, error) {
	agent, err := s.scanPseudoAgent(s.pool.QueryRow(ctx, `
		SELECT id, name, model_type, user_id, username, is_enabled, created_at
		FROM pseudo_agents WHERE user_id = $1
		ORDER BY created_at ASC, id ASC LIMIT 1
	`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// ListPseudoAgents lists all pseudo-agent records.
func (s *PostgresStore) ListPseudoAgents(ctx context.Context) ([]models.PseudoAgent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, model_type, user_id, username, is_enabled, created_at
		FROM pseudo_agents ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PseudoAgent
	for rows.Next() {
		agent := models.PseudoAgent{}
		if err := rows.Scan(&agent.ID, &agent.Name, &agent.ModelType, &agent.Metadata.UserID,
			&agent.Metadata.Username, &agent.Metadata.IsEnabled, &agent.CreatedAt); err != nil {
			return nil, err
		}
		agent.Metadata.IsUserAgent = true
		out = append(out, agent)
	}
	return out, rows.Err()
}
