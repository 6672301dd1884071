package presence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// recvMessage 从客户端通道读取下一条消息，超时报错
func recvMessage(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed unexpectedly")
		var msg WSMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return WSMessage{}
	}
}

func waitOnline(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.OnlineCount() == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubSendsOnlineListOnConnect(t *testing.T) {
	hub := startHub(t)

	alice := NewClient(hub, nil, "alice")
	waitOnline(t, hub, 1)

	msg := recvMessage(t, alice)
	require.Equal(t, MsgTypeOnlineList, msg.Type)

	var list OnlineListData
	require.NoError(t, json.Unmarshal(msg.Data, &list))
	assert.Equal(t, ActivityIdle, list.Users["alice"])

	msg = recvMessage(t, alice)
	assert.Equal(t, MsgTypeOnline, msg.Type)
	assert.Equal(t, "alice", msg.UserID)
}

func TestHubBroadcastsPresenceChanges(t *testing.T) {
	hub := startHub(t)

	alice := NewClient(hub, nil, "alice")
	waitOnline(t, hub, 1)
	recvMessage(t, alice) // online_list
	recvMessage(t, alice) // 自己上线的广播

	bob := NewClient(hub, nil, "bob")
	waitOnline(t, hub, 2)

	msg := recvMessage(t, alice)
	require.Equal(t, MsgTypeOnline, msg.Type)
	assert.Equal(t, "bob", msg.UserID)

	hub.UpdateActivity("bob", ActivityData{Activity: "playing s1", SongID: "s1"})

	msg = recvMessage(t, alice)
	require.Equal(t, MsgTypeActivity, msg.Type)
	assert.Equal(t, "bob", msg.UserID)
	var act ActivityData
	require.NoError(t, json.Unmarshal(msg.Data, &act))
	assert.Equal(t, "playing s1", act.Activity)
	assert.Equal(t, "s1", act.SongID)

	hub.unregister <- bob
	waitOnline(t, hub, 1)

	msg = recvMessage(t, alice)
	require.Equal(t, MsgTypeOffline, msg.Type)
	assert.Equal(t, "bob", msg.UserID)
}

func TestHubKicksDuplicateConnection(t *testing.T) {
	hub := startHub(t)

	first := NewClient(hub, nil, "alice")
	waitOnline(t, hub, 1)

	NewClient(hub, nil, "alice")

	// 旧连接收到下线信号，同一用户只保留最新连接
	select {
	case <-first.done:
	case <-time.After(2 * time.Second):
		t.Fatal("kicked client never received done signal")
	}
	assert.Equal(t, 1, hub.OnlineCount())
}

func TestKickedClientCanStillSendSafely(t *testing.T) {
	hub := startHub(t)

	first := NewClient(hub, nil, "alice")
	waitOnline(t, hub, 1)

	NewClient(hub, nil, "alice")
	select {
	case <-first.done:
	case <-time.After(2 * time.Second):
		t.Fatal("kicked client never received done signal")
	}

	// 被踢连接的读循环可能还在处理在途消息，
	// 心跳响应走 trySend 必须安静地丢弃而不是panic
	raw, err := marshalMessage(MsgTypePong, "", nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		first.trySend(raw)
	})
}

func TestUnregisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := NewClient(hub, nil, "alice")
	waitOnline(t, hub, 1)

	hub.Stop()

	// 读循环收尾走 Unregister，Hub 停止后必须立即返回
	finished := make(chan struct{})
	go func() {
		hub.Unregister(alice)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Unregister blocked after hub stop")
	}
}

func TestUpdateActivityIgnoresOfflineUsers(t *testing.T) {
	hub := startHub(t)

	alice := NewClient(hub, nil, "alice")
	waitOnline(t, hub, 1)
	recvMessage(t, alice) // online_list
	recvMessage(t, alice) // user_online

	hub.UpdateActivity("ghost", ActivityData{Activity: "playing s9"})

	select {
	case raw := <-alice.Send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		t.Fatalf("unexpected broadcast: %s", msg.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUpdateActivityDefaultsToIdle(t *testing.T) {
	hub := startHub(t)

	alice := NewClient(hub, nil, "alice")
	waitOnline(t, hub, 1)
	recvMessage(t, alice)
	recvMessage(t, alice)

	hub.UpdateActivity("alice", ActivityData{})

	msg := recvMessage(t, alice)
	require.Equal(t, MsgTypeActivity, msg.Type)
	var act ActivityData
	require.NoError(t, json.Unmarshal(msg.Data, &act))
	assert.Equal(t, ActivityIdle, act.Activity)
}
