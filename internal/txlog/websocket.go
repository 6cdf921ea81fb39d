package txlog

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler streams newly recorded transactions to connected
// clients.
type WebSocketHandler struct {
	service  *Service
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(service *Service, log *logrus.Logger) *WebSocketHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WebSocketHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Admin surface only
			},
		},
	}
}

// ServeHTTP handles WebSocket upgrade and streaming
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	subID, txChan := h.service.Subscribe()
	defer h.service.Unsubscribe(subID)

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Reader goroutine detects client close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case tx, ok := <-txChan:
			if !ok {
				return
			}

			data, err := json.Marshal(tx)
			if err != nil {
				h.log.WithError(err).Warn("failed to marshal transaction")
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
