// Package ws streams completions over a websocket connection.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// Message types sent to the client.
const (
	TypeConnected = "connected"
	TypeDelta     = "delta"
	TypeDone      = "done"
	TypeError     = "error"
)

// Handler WebSocket流式对话处理器
type Handler struct {
	gateway  *gateway.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(gw *gateway.Service) *Handler {
	return &Handler{
		gateway: gw,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// Outgoing is the envelope of every server frame.
type Outgoing struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	send(conn, TypeConnected, map[string]any{"providers": h.gateway.Providers()})

	// 每个连接同一时间只处理一个请求，流结束后才读取下一帧
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		var req completion.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			send(conn, TypeError, map[string]string{"message": "invalid request payload"})
			continue
		}

		h.handleRequest(ctx, conn, req)
		conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

func (h *Handler) handleRequest(ctx context.Context, conn *websocket.Conn, req completion.Request) {
	text, err := h.gateway.Stream(ctx, req, func(content string) error {
		return send(conn, TypeDelta, completion.Delta{Content: content})
	})
	if err != nil {
		log.Printf("[websocket] stream failed: %v", err)
		send(conn, TypeError, map[string]string{"message": err.Error()})
		return
	}

	send(conn, TypeDone, map[string]string{"content": text})
}

// send 只在读循环所在的 goroutine 中调用；ping 使用可并发的 WriteControl
func send(conn *websocket.Conn, msgType string, data any) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(Outgoing{Type: msgType, Data: data, Timestamp: time.Now().Unix()})
	if err != nil {
		log.Printf("[websocket] write %s failed: %v", msgType, err)
	}
	return err
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
