package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"montage/logger"
)

// EventType tags outbound player events.
type EventType string

const (
	EvtTimeUpdate EventType = "timeupdate" // playhead moved
	EvtEnded      EventType = "ended"      // playback reached duration
	EvtError      EventType = "error"      // render/decode failure
	EvtGains      EventType = "gains"      // per-clip gain fan-out
	EvtSequence   EventType = "sequence"   // sequence replaced
)

// Event is one websocket message to the UI shell.
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventHub broadcasts player events to every connected UI client.
// Broadcast-only: clients never send commands over the socket, the
// HTTP surface does that.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan Event
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*websocket.Conn]chan Event)}
}

// Broadcast queues an event for every client. A client that cannot
// keep up has its oldest events dropped rather than blocking playback.
func (h *EventHub) Broadcast(evtType EventType, data interface{}) {
	evt := Event{Type: evtType, Data: data, Timestamp: time.Now().UnixMilli()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the connection and streams events until the
// client goes away.
func (h *EventHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	ch := make(chan Event, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	logger.Info("event client connected", logger.Int("clients", h.ClientCount()))

	go h.writeLoop(conn, ch)
	h.readLoop(conn)
}

func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	conn.Close()
}

// readLoop only services pongs and detects disconnect.
func (h *EventHub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) writeLoop(conn *websocket.Conn, ch chan Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(conn)
	}()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload, err := json.Marshal(evt)
			if err != nil {
				logger.Warn("event marshal failed", logger.ErrorField(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
