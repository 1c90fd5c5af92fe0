package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSubmitMessageDefaultsSourceType(t *testing.T) {
	var received SubmitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/messages/submit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	err := c.SubmitMessage(context.Background(), SubmitRequest{
		ChannelID: uuid.New(),
		ServerID:  uuid.New(),
		AuthorID:  uuid.New(),
		Content:   "hello",
		RawMessage: RawMessage{
			Text: "hello",
		},
	})
	require.NoError(t, err)
	require.Equal(t, SourceTypeAgentResponse, received.SourceType)
	require.Equal(t, "hello", received.RawMessage.Text)
}

func TestSubmitMessageSurfacesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"hub on fire"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	err := c.SubmitMessage(context.Background(), SubmitRequest{Content: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "hub on fire")
}

func TestGetAgentServers(t *testing.T) {
	agentID := uuid.New()
	serverID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agents/"+agentID.String()+"/servers", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]uuid.UUID{"servers": {serverID}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	servers, err := c.GetAgentServers(context.Background(), agentID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{serverID}, servers)
}

func TestGetChannelParticipants(t *testing.T) {
	channelID := uuid.New()
	a, b := uuid.New(), uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/channels/"+channelID.String()+"/participants", r.URL.Path)
		json.NewEncoder(w).Encode([]uuid.UUID{a, b})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	participants, err := c.GetChannelParticipants(context.Background(), channelID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{a, b}, participants)
}
