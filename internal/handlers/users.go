package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ResolveUserRequest represents the user-to-pseudo-agent resolution
// request.
type ResolveUserRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// ResolveUserResponse carries the pseudo-agent id for a human user.
type ResolveUserResponse struct {
	UserID        string `json:"user_id"`
	PseudoAgentID string `json:"pseudo_agent_id"`
}

// ResolveUser returns the pseudo-agent standing in for a human user,
// creating the record on first sight.
func (h *Handler) ResolveUser(w http.ResponseWriter, r *http.Request) {
	var req ResolveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		h.Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	id, err := h.bridge.GetOrCreateUserAgent(r.Context(), req.UserID, sanitizeName(req.DisplayName))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to resolve user")
		return
	}

	h.JSON(w, http.StatusOK, ResolveUserResponse{
		UserID:        req.UserID,
		PseudoAgentID: id.String(),
	})
}

// ListUserAgents lists the ids of all pseudo-agents.
func (h *Handler) ListUserAgents(w http.ResponseWriter, r *http.Request) {
	ids, err := h.bridge.UserAgentIDs(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list user agents")
		return
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	h.JSON(w, http.StatusOK, map[string][]string{"user_agents": out})
}
