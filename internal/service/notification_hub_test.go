package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *NotificationHub, userID uint, buffer int) *Client {
	return &Client{
		Hub:    hub,
		Send:   make(chan []byte, buffer),
		UserID: userID,
	}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHub_RoomMembership(t *testing.T) {
	hub := NewNotificationHub(nil)
	go hub.Run()

	c1 := newTestClient(hub, 7, 4)
	c2 := newTestClient(hub, 7, 4)

	hub.subscribe <- c1
	hub.subscribe <- c2
	require.Eventually(t, func() bool { return hub.IsUserOnline(7) }, time.Second, 10*time.Millisecond)

	hub.unsubscribe <- c1
	// 还有一个会话在线
	require.Eventually(t, func() bool {
		s := hub.getShard(7)
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.rooms[7]) == 1
	}, time.Second, 10*time.Millisecond)
	assert.True(t, hub.IsUserOnline(7))

	hub.unsubscribe <- c2
	require.Eventually(t, func() bool { return !hub.IsUserOnline(7) }, time.Second, 10*time.Millisecond)
}

func TestHub_MultiSessionBroadcast(t *testing.T) {
	hub := NewNotificationHub(nil)
	go hub.Run()

	c1 := newTestClient(hub, 3, 4)
	c2 := newTestClient(hub, 3, 4)
	other := newTestClient(hub, 4, 4)

	hub.subscribe <- c1
	hub.subscribe <- c2
	hub.subscribe <- other
	require.Eventually(t, func() bool { return hub.IsUserOnline(3) && hub.IsUserOnline(4) }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.PublishToUser(3, WSMessage{Type: "new_notification", Data: "hello"}))

	for _, c := range []*Client{c1, c2} {
		var msg WSMessage
		require.NoError(t, json.Unmarshal(receive(t, c), &msg))
		assert.Equal(t, "new_notification", msg.Type)
		assert.Equal(t, "hello", msg.Data)
	}

	// 房间按用户隔离，其他用户收不到
	select {
	case msg := <-other.Send:
		t.Fatalf("unexpected message for other user: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishToAbsentRoomIsNoop(t *testing.T) {
	hub := NewNotificationHub(nil)
	go hub.Run()

	require.NoError(t, hub.PublishToUser(42, WSMessage{Type: "new_notification"}))
	assert.False(t, hub.IsUserOnline(42))
}

func TestHub_SlowConsumerDropped(t *testing.T) {
	hub := NewNotificationHub(nil)
	go hub.Run()

	slow := newTestClient(hub, 9, 1)
	hub.subscribe <- slow
	require.Eventually(t, func() bool { return hub.IsUserOnline(9) }, time.Second, 10*time.Millisecond)

	// 填满发送缓冲后继续推送不阻塞，溢出消息被丢弃
	require.NoError(t, hub.PublishToUser(9, WSMessage{Type: "new_notification", Data: "first"}))
	require.Eventually(t, func() bool { return len(slow.Send) == 1 }, time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = hub.PublishToUser(9, WSMessage{Type: "new_notification", Data: "dropped"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow consumer")
	}

	var msg WSMessage
	require.NoError(t, json.Unmarshal(receive(t, slow), &msg))
	assert.Equal(t, "first", msg.Data)
	assert.Empty(t, slow.Send)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewNotificationHub(nil)
	go hub.Run()

	c := newTestClient(hub, 11, 4)
	hub.subscribe <- c
	require.Eventually(t, func() bool { return hub.IsUserOnline(11) }, time.Second, 10*time.Millisecond)

	hub.Stop()

	_, open := <-c.Send
	assert.False(t, open)
	assert.False(t, hub.IsUserOnline(11))
}
