// Package useragent maps external human user identifiers to disabled
// pseudo-agent records, so humans participate in the room abstraction
// with the same identifier scheme as AI agents.
package useragent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/atrium-chat/atrium/internal/identity"
	"github.com/atrium-chat/atrium/internal/models"
	"github.com/atrium-chat/atrium/internal/registry"
)

// Bridge resolves human users to pseudo-agent ids: cache first, then the
// persisted records, creating a disabled pseudo-agent on a full miss.
// Shared by every router in a deployment.
type Bridge struct {
	store  registry.Store
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]uuid.UUID
}

// NewBridge creates a bridge over the registry's pseudo-agent records.
func NewBridge(store registry.Store, logger zerolog.Logger) *Bridge {
	return &Bridge{
		store:  store,
		logger: logger,
		cache:  make(map[string]uuid.UUID),
	}
}

// GetOrCreateUserAgent returns the pseudo-agent id for a human user,
// creating the record on first sight. Concurrent calls for one user may
// race into creating two records; whichever is read back afterwards wins
// the cache, and pseudo-agents carry no reasoning state that could
// diverge.
func (b *Bridge) GetOrCreateUserAgent(ctx context.Context, userID, displayName string) (uuid.UUID, error) {
	if strings.TrimSpace(userID) == "" {
		return uuid.Nil, fmt.Errorf("user id is required")
	}

	b.mu.RLock()
	id, ok := b.cache[userID]
	b.mu.RUnlock()
	if ok {
		return id, nil
	}

	existing, err := b.store.GetPseudoAgentByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		b.remember(userID, existing.ID)
		return existing.ID, nil
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "user-" + userID
	}
	agent := &models.PseudoAgent{
		ID:        identity.New(),
		Name:      name,
		ModelType: "none",
		Metadata: models.PseudoAgentMetadata{
			IsUserAgent: true,
			UserID:      userID,
			Username:    name,
			IsEnabled:   false,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := b.store.CreatePseudoAgent(ctx, agent); err != nil {
		return uuid.Nil, err
	}

	// Read back after creating: if a concurrent creation won, adopt it.
	created, err := b.store.GetPseudoAgentByUserID(ctx, userID)
	if err != nil || created == nil {
		b.remember(userID, agent.ID)
		return agent.ID, nil
	}

	b.remember(userID, created.ID)
	b.logger.Info().
		Str("user_id", userID).
		Str("pseudo_agent_id", created.ID.String()).
		Msg("pseudo-agent ready for user")
	return created.ID, nil
}

// IsUserAgent reports whether agentID is a pseudo-agent standing in for
// a human.
func (b *Bridge) IsUserAgent(ctx context.Context, agentID uuid.UUID) (bool, error) {
	b.mu.RLock()
	for _, id := range b.cache {
		if id == agentID {
			b.mu.RUnlock()
			return true, nil
		}
	}
	b.mu.RUnlock()

	agent, err := b.store.GetPseudoAgent(ctx, agentID)
	if err != nil {
		return false, err
	}
	return agent != nil && agent.Metadata.IsUserAgent, nil
}

// GetUserAgentID returns the pseudo-agent id for a user without creating
// one; uuid.Nil and false when absent.
func (b *Bridge) GetUserAgentID(ctx context.Context, userID string) (uuid.UUID, bool, error) {
	b.mu.RLock()
	id, ok := b.cache[userID]
	b.mu.RUnlock()
	if ok {
		return id, true, nil
	}

	agent, err := b.store.GetPseudoAgentByUserID(ctx, userID)
	if err != nil {
		return uuid.Nil, false, err
	}
	if agent == nil {
		return uuid.Nil, false, nil
	}
	b.remember(userID, agent.ID)
	return agent.ID, true, nil
}

// UserAgentIDs lists the ids of all pseudo-agents.
func (b *Bridge) UserAgentIDs(ctx context.Context) ([]uuid.UUID, error) {
	agents, err := b.store.ListPseudoAgents(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (b *Bridge) remember(userID string, id uuid.UUID) {
	b.mu.Lock()
	b.cache[userID] = id
	b.mu.Unlock()
}
