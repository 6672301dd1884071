package presence

import (
	"encoding/json"
	"time"

	"Melodex/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client 单个用户的 WebSocket 连接
// Send 只在这里写入、在 WritePump 消费，任何一方都不关闭它；
// 下线信号通过 done 传递，避免向已关闭通道写入。
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string

	// done 由 Hub 在客户端下线（主动断开或被新连接踢掉）时关闭
	done chan struct{}
}

// NewClient 创建客户端并注册到 Hub
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	client := &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		UserID: userID,
		done:   make(chan struct{}),
	}
	hub.register <- client
	return client
}

// trySend 向发送缓冲写入一条消息
// 客户端已下线或缓冲已满时直接丢弃，永远不会阻塞或panic
func (c *Client) trySend(raw []byte) {
	select {
	case <-c.done:
	case c.Send <- raw:
	default:
	}
}

// ReadPump 从连接读取消息并分发给 Hub
// 每个连接在独立的goroutine中运行
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("[Presence] 连接异常关闭",
					logger.String("userId", c.UserID),
					logger.ErrorField(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn("[Presence] 无法解析消息", logger.ErrorField(err))
			continue
		}

		switch msg.Type {
		case MsgTypeActivity:
			var data ActivityData
			if msg.Data != nil {
				if err := json.Unmarshal(msg.Data, &data); err != nil {
					logger.Warn("[Presence] 无法解析活动数据", logger.ErrorField(err))
					continue
				}
			}
			c.Hub.UpdateActivity(c.UserID, data)

		case MsgTypePing:
			if raw, err := marshalMessage(MsgTypePong, "", nil); err == nil {
				c.trySend(raw)
			}
		}
	}
}

// WritePump 将消息写回连接并维持心跳
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			// Hub 已将该客户端下线，通知对端后收尾
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
