package bus

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atrium-chat/atrium/internal/models"
)

func TestEncodeDecodePreservesVariant(t *testing.T) {
	msgID := uuid.New()
	events := []Event{
		NewMessage{Message: models.HubMessage{ID: msgID, Content: "hi"}},
		MessageDeleted{MessageID: msgID},
		ChannelCleared{ChannelID: uuid.New()},
		ServerAgentUpdate{AgentID: uuid.New(), ServerID: uuid.New(), Type: AgentAddedToServer},
	}

	for _, ev := range events {
		data, err := Encode(ev)
		require.NoError(t, err)

		decoded, err := Decode(data)
		require.NoError(t, err)
		require.Equal(t, ev.Kind(), decoded.Kind())
		require.Equal(t, ev, decoded)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"id":"x","kind":"mystery","payload":{}}`))
	require.Error(t, err)
}

func TestLocalDeliversToAllSubscribers(t *testing.T) {
	l := NewLocal()
	defer l.Close()

	got := make(chan Event, 2)
	h := func(ctx context.Context, ev Event) { got <- ev }
	cancelA := l.Subscribe(h)
	defer cancelA()
	cancelB := l.Subscribe(h)
	defer cancelB()

	ev := ChannelCleared{ChannelID: uuid.New()}
	require.NoError(t, l.Publish(context.Background(), ev))

	for i := 0; i < 2; i++ {
		select {
		case received := <-got:
			require.Equal(t, ev, received)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
}

func TestLocalUnsubscribeStopsDelivery(t *testing.T) {
	l := NewLocal()
	defer l.Close()

	got := make(chan Event, 8)
	cancel := l.Subscribe(func(ctx context.Context, ev Event) { got <- ev })

	require.NoError(t, l.Publish(context.Background(), MessageDeleted{MessageID: uuid.New()}))
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first delivery")
	}

	cancel()
	require.NoError(t, l.Publish(context.Background(), MessageDeleted{MessageID: uuid.New()}))

	select {
	case ev := <-got:
		t.Fatalf("received event after unsubscribe: %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLocalPublishAfterCloseIsSafe(t *testing.T) {
	l := NewLocal()
	l.Subscribe(func(ctx context.Context, ev Event) {})
	l.Close()
	l.Close()

	require.NoError(t, l.Publish(context.Background(), ChannelCleared{ChannelID: uuid.New()}))
}
