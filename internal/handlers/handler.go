// Package handlers implements the administrative HTTP API: conceptual
// room management, agent connections, and user-identity resolution.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/atrium-chat/atrium/internal/registry"
	"github.com/atrium-chat/atrium/internal/router"
	"github.com/atrium-chat/atrium/internal/useragent"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	registry *registry.Service
	store    registry.Store
	fleet    *router.Fleet
	bridge   *useragent.Bridge
}

// NewHandler creates a new Handler with the given services.
func NewHandler(reg *registry.Service, store registry.Store, fleet *router.Fleet, bridge *useragent.Bridge) *Handler {
	return &Handler{registry: reg, store: store, fleet: fleet, bridge: bridge}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
