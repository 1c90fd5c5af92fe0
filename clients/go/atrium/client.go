// Package atrium provides a client for the Atrium administrative API.
package atrium

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an Atrium admin API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Atrium client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("atrium error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// CreateRoomRequest is the request body for creating a conceptual room.
type CreateRoomRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	OwnerAgentID string `json:"owner_agent_id"`
}

// Room represents a conceptual room.
type Room struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	OwnerAgentID string `json:"owner_agent_id"`
	CreatedAt    string `json:"created_at"`
}

// CreateRoom creates a conceptual room.
func (c *Client) CreateRoom(name, roomType, ownerAgentID string) (*Room, error) {
	reqBody, _ := json.Marshal(CreateRoomRequest{Name: name, Type: roomType, OwnerAgentID: ownerAgentID})

	respBody, err := c.doRequest("POST", "/rooms", reqBody)
	if err != nil {
		return nil, err
	}

	var resp Room
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRoom fetches a conceptual room.
func (c *Client) GetRoom(roomID string) (*Room, error) {
	respBody, err := c.doRequest("GET", "/rooms/"+roomID, nil)
	if err != nil {
		return nil, err
	}

	var resp Room
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mapping represents a conceptual-room to agent-room association.
type Mapping struct {
	ConceptualRoomID string `json:"conceptual_room_id"`
	AgentID          string `json:"agent_id"`
	AgentRoomID      string `json:"agent_room_id"`
}

// MappingsResponse is the response from the mapping listing endpoints.
type MappingsResponse struct {
	Mappings []Mapping `json:"mappings"`
}

// GetRoomMappings lists every agent's mapping for a room.
func (c *Client) GetRoomMappings(roomID string) (*MappingsResponse, error) {
	respBody, err := c.doRequest("GET", "/rooms/"+roomID+"/mappings", nil)
	if err != nil {
		return nil, err
	}

	var resp MappingsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAgentMappings lists every room an agent is mapped into.
func (c *Client) GetAgentMappings(agentID string) (*MappingsResponse, error) {
	respBody, err := c.doRequest("GET", "/agents/"+agentID+"/mappings", nil)
	if err != nil {
		return nil, err
	}

	var resp MappingsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EnsureMapping fetches the mapping for a (room, agent) pair, creating
// the agent's mirrored room on first access.
func (c *Client) EnsureMapping(roomID, agentID string) (*Mapping, error) {
	respBody, err := c.doRequest("POST", "/rooms/"+roomID+"/mappings/"+agentID, nil)
	if err != nil {
		return nil, err
	}

	var resp Mapping
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConnectRequest is the request body for a direct two-agent connection.
type ConnectRequest struct {
	AgentAID   string `json:"agent_a_id"`
	AgentAName string `json:"agent_a_name,omitempty"`
	AgentBID   string `json:"agent_b_id"`
	AgentBName string `json:"agent_b_name,omitempty"`
}

// ConnectResponse is the response from a direct connection.
type ConnectResponse struct {
	RoomID    string `json:"room_id"`
	RoomAID   string `json:"agent_a_room_id"`
	RoomBID   string `json:"agent_b_room_id"`
	EntityAID string `json:"agent_a_entity_id"`
	EntityBID string `json:"agent_b_entity_id"`
}

// Connect establishes a direct connection between two agents.
func (c *Client) Connect(req ConnectRequest) (*ConnectResponse, error) {
	reqBody, _ := json.Marshal(req)

	respBody, err := c.doRequest("POST", "/connections", reqBody)
	if err != nil {
		return nil, err
	}

	var resp ConnectResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResolveUserResponse carries the pseudo-agent id for a human user.
type ResolveUserResponse struct {
	UserID        string `json:"user_id"`
	PseudoAgentID string `json:"pseudo_agent_id"`
}

// ResolveUser returns the pseudo-agent id for a human user, creating
// the record on first sight.
func (c *Client) ResolveUser(userID, displayName string) (*ResolveUserResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID, "display_name": displayName})

	respBody, err := c.doRequest("POST", "/users", reqBody)
	if err != nil {
		return nil, err
	}

	var resp ResolveUserResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Agents    []string               `json:"agents"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
