package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

// Hub holds the latest strategy result and streams each new one to connected
// websocket clients. It implements jobs.Publisher and handlers.ResultSource.
// ⭐ SSOT: 策略结果的实时分发只在这里
type Hub struct {
	mu     sync.RWMutex
	conns  map[*websocket.Conn]bool
	latest *contracts.StrategyResult

	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 只读推送接口，跨域直接放行
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// Publish stores the result and pushes it to every connected client.
func (h *Hub) Publish(result *contracts.StrategyResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = result

	for conn := range h.conns {
		if err := conn.WriteJSON(result); err != nil {
			h.logger.WithError(err).Debug("Dropping dead websocket client")
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Latest returns the most recent result, nil before the first cycle.
func (h *Hub) Latest() *contracts.StrategyResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// HandleWS upgrades the connection and registers the client. A new client
// immediately receives the latest result if one exists.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	// gorilla 的连接同一时刻只允许一个写入者，
	// 回放必须在注册之前完成，否则会和 Publish 的广播写交错
	h.mu.Lock()
	if h.latest != nil {
		if err := conn.WriteJSON(h.latest); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.conns[conn] = true
	h.mu.Unlock()

	h.logger.WithField("clients", h.ClientCount()).Debug("Websocket client connected")

	// Reader loop only detects disconnects; clients never send anything.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.conns, conn)
}
