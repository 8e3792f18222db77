package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/market-escrow/internal/events"
)

func TestHub_PublishDeliversToUserClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	userID := uuid.New()
	client := NewClient(nil, hub, userID)
	other := NewClient(nil, hub, uuid.New())
	require.True(t, hub.Register(client))
	require.True(t, hub.Register(other))
	require.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, time.Second, 5*time.Millisecond)

	err := hub.Publish(ctx, userID, events.Event{
		Type:    events.EventOrderPaid,
		Payload: map[string]any{"order_id": "42"},
	})
	require.NoError(t, err)

	select {
	case raw := <-client.send:
		var msg struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, events.EventOrderPaid, msg.Type)
		assert.Equal(t, "42", msg.Data["order_id"])
	case <-time.After(time.Second):
		t.Fatal("сообщение не доставлено")
	}

	assert.Empty(t, other.send)
}

func TestHub_DeliverFromEnvelope(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	userID := uuid.New()
	client := NewClient(nil, hub, userID)
	require.True(t, hub.Register(client))

	hub.Deliver(events.Envelope{UserID: userID, Event: events.Event{Type: events.EventDisputeOpened}})

	select {
	case raw := <-client.send:
		assert.Contains(t, string(raw), events.EventDisputeOpened)
	case <-time.After(time.Second):
		t.Fatal("сообщение не доставлено")
	}
}

func TestHub_PublishDoesNotBlockWhenQueueIsFull(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	for i := 0; i < cap(hub.broadcast); i++ {
		require.NoError(t, hub.Publish(context.Background(), userID, events.Event{Type: events.EventOrderCreated}))
	}

	err := hub.Publish(context.Background(), userID, events.Event{Type: events.EventOrderCreated})
	assert.Error(t, err)
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	client := NewClient(nil, hub, uuid.New())
	require.True(t, hub.Register(client))
	cancel()

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("канал клиента не закрыт")
	}
	assert.False(t, hub.Register(NewClient(nil, hub, uuid.New())))
}
