package server

import (
	"net/http"

	"Melodex/core/auth"
	"Melodex/core/presence"
	"Melodex/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 前端与后端不同源，鉴权靠 token 而不是 Origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler 将连接升级为 WebSocket 并接入在线状态 Hub
// token 通过查询参数传递，浏览器的 WebSocket API 不支持自定义请求头
func (h *APIHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized - missing token")
		return
	}

	claims, err := auth.ParseToken(token)
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized - invalid token")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[WS] 升级连接失败", logger.ErrorField(err))
		return
	}

	client := presence.NewClient(h.hub, conn, claims.UserID)
	go client.WritePump()
	go client.ReadPump()
}
