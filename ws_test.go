package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeClient(userID int) *wsClient {
	return &wsClient{userID: userID, send: make(chan serverEvent, 4)}
}

func drain(c *wsClient) []serverEvent {
	var evts []serverEvent
	for {
		select {
		case evt := <-c.send:
			evts = append(evts, evt)
		default:
			return evts
		}
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := newHub()
	a := newFakeClient(1)
	b := newFakeClient(2)
	stranger := newFakeClient(3)

	hub.join("42", a)
	hub.join("42", b)
	hub.join("other", stranger)

	t.Run("group delivery includes the sender when asked", func(t *testing.T) {
		hub.broadcast("42", serverEvent{Type: "message_created"}, nil)

		require.Len(t, drain(a), 1)
		require.Len(t, drain(b), 1)
		assert.Empty(t, drain(stranger), "other groups must not receive the event")
	})

	t.Run("except skips exactly one client", func(t *testing.T) {
		hub.broadcast("42", serverEvent{Type: "user_typing"}, a)

		assert.Empty(t, drain(a))
		evts := drain(b)
		require.Len(t, evts, 1)
		assert.Equal(t, "user_typing", evts[0].Type)
	})

	t.Run("leave removes only that membership", func(t *testing.T) {
		hub.leave("42", b)
		hub.broadcast("42", serverEvent{Type: "message_created"}, nil)

		require.Len(t, drain(a), 1)
		assert.Empty(t, drain(b))
		assert.True(t, hub.inRoom("42", a))
		assert.False(t, hub.inRoom("42", b))
	})

	t.Run("drop clears every joined group", func(t *testing.T) {
		hub.join("42", b)
		hub.join("other", b)
		hub.drop(b)

		hub.broadcast("42", serverEvent{Type: "message_created"}, nil)
		hub.broadcast("other", serverEvent{Type: "message_created"}, nil)
		assert.Empty(t, drain(b))
		require.Len(t, drain(stranger), 1)
	})

	t.Run("full client buffer drops instead of blocking", func(t *testing.T) {
		slow := &wsClient{userID: 9, send: make(chan serverEvent)} // unbuffered, nobody reading
		hub.join("42", slow)

		// Must return immediately, dropping the event for the slow client.
		hub.broadcast("42", serverEvent{Type: "message_created"}, nil)
		require.Len(t, drain(a), 1)
		assert.Empty(t, drain(slow))
		hub.drop(slow)
	})
}
