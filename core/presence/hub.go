// Package presence implements the realtime listening-status channel.
// 每个在线用户维护一个 WebSocket 连接，活动变化（播放/空闲）广播给所有人。
package presence

import (
	"encoding/json"
	"sync"
	"time"

	"Melodex/logger"
)

// MessageType 消息类型
type MessageType string

const (
	MsgTypeOnline     MessageType = "user_online"      // 用户上线
	MsgTypeOffline    MessageType = "user_offline"     // 用户下线
	MsgTypeOnlineList MessageType = "online_list"      // 在线用户列表（连接建立时下发）
	MsgTypeActivity   MessageType = "activity_update"  // 活动状态变化
	MsgTypePing       MessageType = "ping"             // 心跳
	MsgTypePong       MessageType = "pong"             // 心跳响应
)

// ActivityIdle 空闲状态
const ActivityIdle = "idle"

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`
	UserID    string          `json:"userId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ActivityData 活动状态数据
type ActivityData struct {
	Activity string `json:"activity"` // "idle" 或 "playing <songId>"
	SongID   string `json:"songId,omitempty"`
}

// OnlineListData 在线用户及各自活动
type OnlineListData struct {
	Users map[string]string `json:"users"` // userID -> activity
}

// Hub 在线状态管理中心
type Hub struct {
	clients    map[string]*Client // userID -> client，同一用户只保留最新连接
	activities map[string]string  // userID -> activity

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu   sync.RWMutex
	done chan struct{}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		activities: make(map[string]string),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastAll(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// Unregister 将客户端移出 Hub
// Hub 已停止时直接返回，读循环的收尾不会卡在无人消费的通道上
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()

	// 同一用户重复连接时踢掉旧连接
	// 只关闭 done 信号，Send 通道从不关闭，旧连接在途的写入不会panic
	if old, exists := h.clients[client.UserID]; exists {
		close(old.done)
	}
	h.clients[client.UserID] = client
	h.activities[client.UserID] = ActivityIdle

	snapshot := make(map[string]string, len(h.activities))
	for id, act := range h.activities {
		snapshot[id] = act
	}
	h.mu.Unlock()

	// 给新连接下发当前在线列表
	if raw, err := marshalMessage(MsgTypeOnlineList, "", OnlineListData{Users: snapshot}); err == nil {
		client.trySend(raw)
	}

	h.announce(MsgTypeOnline, client.UserID, nil)
	logger.Debug("[Presence] 用户上线", logger.String("userId", client.UserID))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current, exists := h.clients[client.UserID]
	if exists && current == client {
		delete(h.clients, client.UserID)
		delete(h.activities, client.UserID)
		close(client.done)
	}
	h.mu.Unlock()

	if exists && current == client {
		h.announce(MsgTypeOffline, client.UserID, nil)
		logger.Debug("[Presence] 用户下线", logger.String("userId", client.UserID))
	}
}

// UpdateActivity 更新用户活动并广播
func (h *Hub) UpdateActivity(userID string, data ActivityData) {
	activity := data.Activity
	if activity == "" {
		activity = ActivityIdle
	}

	h.mu.Lock()
	if _, online := h.clients[userID]; !online {
		h.mu.Unlock()
		return
	}
	h.activities[userID] = activity
	h.mu.Unlock()

	h.announce(MsgTypeActivity, userID, ActivityData{Activity: activity, SongID: data.SongID})
}

func (h *Hub) announce(msgType MessageType, userID string, data interface{}) {
	raw, err := marshalMessage(msgType, userID, data)
	if err != nil {
		logger.Error("[Presence] 序列化广播消息失败", logger.ErrorField(err))
		return
	}

	select {
	case h.broadcast <- raw:
	default:
		logger.Warn("[Presence] 广播通道已满，丢弃消息", logger.String("type", string(msgType)))
	}
}

func (h *Hub) broadcastAll(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.Send <- msg:
		default:
			// 发送缓冲已满的客户端视为失活，由读循环负责清理
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.done)
		delete(h.clients, id)
		delete(h.activities, id)
	}
}

// OnlineCount 当前在线用户数
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func marshalMessage(msgType MessageType, userID string, data interface{}) ([]byte, error) {
	msg := WSMessage{
		Type:      msgType,
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}
