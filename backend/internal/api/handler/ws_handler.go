package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"valve-vault/backend/pkg/notify"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WSHandler 变更通知推送
// 客户端只收到 "某条记录变了" 的提示，需回源读取最新状态
type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler 创建 WSHandler，allowOrigins 为空时只允许同源
func NewWSHandler(hub *notify.Hub, allowOrigins []string, logger *zap.Logger) *WSHandler {
	h := &WSHandler{hub: hub, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowOrigins))
		for _, o := range allowOrigins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return h
}

// Subscribe 订阅变更
// GET /api/v1/ws?topics=code_requests,inventory_counts:<id>
func (h *WSHandler) Subscribe(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var keys []string
	for _, k := range strings.Split(c.Query("topics"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写入错误响应
		h.logger.Debug("WebSocket 升级失败", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe(keys...)
	h.logger.Debug("WebSocket 已连接",
		zap.String("user_id", actor.ID),
		zap.Strings("topics", keys),
	)

	go h.readLoop(conn, sub)
	h.writeLoop(conn, sub)
}

// readLoop 只处理控制帧；连接断开时关闭订阅
func (h *WSHandler) readLoop(conn *websocket.Conn, sub *notify.Subscription) {
	defer sub.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *notify.Subscription) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case e, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
