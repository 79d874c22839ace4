package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func TestHub_NotifyNoticeReachesClients(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	a := &ClientConnection{ID: "a", Send: make(chan LiveMessage, 4)}
	b := &ClientConnection{ID: "b", Send: make(chan LiveMessage, 4)}
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.NotifyNotice()

	for _, c := range []*ClientConnection{a, b} {
		select {
		case msg := <-c.Send:
			assert.Equal(t, MessageNotice, msg.Type)
			assert.False(t, msg.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := &ClientConnection{ID: "a", Send: make(chan LiveMessage, 1)}
	hub.Register(c)
	hub.Unregister("a")

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestHub_StopClosesClientsAndRejectsNew(t *testing.T) {
	hub, cancel := runHub(t)

	c := &ClientConnection{ID: "a", Send: make(chan LiveMessage, 1)}
	hub.Register(c)
	cancel()

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed on stop")
	}

	late := &ClientConnection{ID: "late", Send: make(chan LiveMessage, 1)}
	hub.Register(late)
	_, ok := <-late.Send
	assert.False(t, ok)
	hub.Unregister("late")
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	slow := &ClientConnection{ID: "slow", Send: make(chan LiveMessage)}
	fast := &ClientConnection{ID: "fast", Send: make(chan LiveMessage, 4)}
	hub.Register(slow)
	hub.Register(fast)

	hub.NotifyNotice()

	select {
	case msg := <-fast.Send:
		assert.Equal(t, MessageNotice, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("fast client blocked by slow client")
	}
}

func TestHub_ReplyOnlyToRegistered(t *testing.T) {
	hub, cancel := runHub(t)
	defer cancel()

	c := &ClientConnection{ID: "a", Send: make(chan LiveMessage, 1)}
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, hub.Reply("a", LiveMessage{Type: MessagePong}))
	assert.Equal(t, MessagePong, (<-c.Send).Type)
	assert.False(t, hub.Reply("missing", LiveMessage{Type: MessagePong}))
}
