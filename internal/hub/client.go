// Package hub is the HTTP client side of the central hub: reply
// submission and the query endpoints the router consults.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every hub call so a hung hub cannot starve the
// router's concurrency pool.
const DefaultTimeout = 10 * time.Second

// SourceTypeAgentResponse marks messages submitted by an agent's router.
const SourceTypeAgentResponse = "agent_response"

// Client is a hub API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a hub client for a validated base URL. A zero
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// RawMessage is the reply body as produced by the reasoning engine.
type RawMessage struct {
	Text    string   `json:"text"`
	Thought string   `json:"thought,omitempty"`
	Actions []string `json:"actions,omitempty"`
}

// SubmitMetadata identifies the submitting agent and the channel shape.
type SubmitMetadata struct {
	AgentID     uuid.UUID `json:"agent_id"`
	AgentName   string    `json:"agentName"`
	Attachments []any     `json:"attachments,omitempty"`
	ChannelType string    `json:"channelType"`
	IsDM        bool      `json:"isDm"`
}

// SubmitRequest is the body of POST /messages/submit.
type SubmitRequest struct {
	ChannelID          uuid.UUID      `json:"channel_id"`
	ServerID           uuid.UUID      `json:"server_id"`
	AuthorID           uuid.UUID      `json:"author_id"`
	Content            string         `json:"content"`
	InReplyToMessageID *uuid.UUID     `json:"in_reply_to_message_id,omitempty"`
	SourceType         string         `json:"source_type"`
	RawMessage         RawMessage     `json:"raw_message"`
	Metadata           SubmitMetadata `json:"metadata"`
}

// SubmitMessage pushes an agent reply to the hub. Any non-2xx status is
// an error; the caller treats submission as best-effort and does not
// retry.
func (c *Client) SubmitMessage(ctx context.Context, req SubmitRequest) error {
	if req.SourceType == "" {
		req.SourceType = SourceTypeAgentResponse
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = c.doRequest(ctx, http.MethodPost, "/messages/submit", body)
	return err
}

// GetAgentServers fetches the set of servers an agent is subscribed to.
func (c *Client) GetAgentServers(ctx context.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/agents/%s/servers", agentID), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Servers []uuid.UUID `json:"servers"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Servers, nil
}

// GetChannelParticipants fetches the agents currently listed as
// participants of a channel.
func (c *Client) GetChannelParticipants(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/channels/%s/participants", channelID), nil)
	if err != nil {
		return nil, err
	}

	var participants []uuid.UUID
	if err := json.Unmarshal(respBody, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

// doRequest performs an HTTP request against the hub.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
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
		return nil, fmt.Errorf("hub error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}
