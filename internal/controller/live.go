package controller

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TreeHub fans tree snapshots out to websocket viewers, keyed by agent.
type TreeHub struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewTreeHub() *TreeHub {
	return &TreeHub{subs: make(map[string]map[chan []byte]struct{})}
}

func (h *TreeHub) subscribe(agentID string) chan []byte {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[agentID] == nil {
		h.subs[agentID] = make(map[chan []byte]struct{})
	}
	h.subs[agentID][ch] = struct{}{}
	return ch
}

func (h *TreeHub) unsubscribe(agentID string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[agentID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, agentID)
		}
	}
}

func (h *TreeHub) Publish(agentID string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[agentID] {
		select {
		case ch <- msg:
		default:
			// Viewer is not keeping up, drop the frame.
		}
	}
}

// HandleLive upgrades /api/live/<agent_id> to a websocket and streams
// tree snapshots for that agent as they arrive over MQTT.
func (c *Controller) HandleLive(w http.ResponseWriter, r *http.Request) {
	agentID, err := parseTailFromPath(r.URL.Path, "/api/live/")
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	ch := c.Live.subscribe(agentID)
	defer c.Live.unsubscribe(agentID, ch)

	// Drain client frames so pings and close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case msg := <-ch:
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
