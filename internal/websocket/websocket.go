package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"recruitpro/internal/countdown"
	"recruitpro/internal/types"
)

const writeWait = 5 * time.Second

// TargetFunc resolves a countdown target name to its time
type TargetFunc func(name string) (time.Time, bool)

// Hub pushes countdown ticks to connected browsers
type Hub struct {
	targets  TargetFunc
	now      func() time.Time
	upgrader websocket.Upgrader

	clients      map[*types.WSClient]bool
	clientsMutex sync.RWMutex
}

// NewHub returns a hub resolving targets through targets
func NewHub(targets TargetFunc) *Hub {
	return &Hub{
		targets: targets,
		now:     time.Now,
		clients: make(map[*types.WSClient]bool),
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// WSHandler handles WebSocket connections at /ws/countdown?target=
func (h *Hub) WSHandler(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		target = types.TargetLaunch
	}
	if _, ok := h.targets(target); !ok {
		http.Error(w, "unknown countdown target", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &types.WSClient{
		Conn:   conn,
		Target: target,
	}

	h.addClient(client)
	defer h.removeClient(client)

	logrus.WithField("target", target).Info("New countdown client connected")

	// Send the current countdown immediately
	if err := h.send(client, h.tick(target)); err != nil {
		return
	}

	// Drain client messages until the browser goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).Error("WebSocket error")
			}
			break
		}
	}

	logrus.WithField("target", target).Info("Countdown client disconnected")
}

// Run broadcasts a tick every interval until ctx is done
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.WithField("interval", interval).Info("Countdown hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logrus.Info("Countdown hub stopped")
			return
		case <-ticker.C:
			h.BroadcastTicks()
		}
	}
}

// BroadcastTicks sends each client the countdown for its target
func (h *Hub) BroadcastTicks() {
	h.clientsMutex.RLock()
	clients := make([]*types.WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMutex.RUnlock()

	if len(clients) == 0 {
		return
	}

	msgs := make(map[string]types.WSMessage)
	for _, c := range clients {
		msg, ok := msgs[c.Target]
		if !ok {
			msg = h.tick(c.Target)
			msgs[c.Target] = msg
		}
		if err := h.send(c, msg); err != nil {
			logrus.WithError(err).Debug("Dropping countdown client after failed write")
			h.removeClient(c)
		}
	}
}

func (h *Hub) tick(target string) types.WSMessage {
	at := h.now()
	t, _ := h.targets(target)
	units := countdown.Compute(t, at)
	msgType := "tick"
	if units.Expired {
		msgType = "expired"
	}
	return types.WSMessage{
		Type:   msgType,
		Target: target,
		Units:  &units,
		At:     at.UTC(),
	}
}

// send writes msg to c. A client that already received "expired" gets
// nothing more.
func (h *Hub) send(c *types.WSClient, msg types.WSMessage) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if c.Finished {
		return nil
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteJSON(msg); err != nil {
		return err
	}
	if msg.Type == "expired" {
		c.Finished = true
	}
	return nil
}

func (h *Hub) addClient(c *types.WSClient) {
	h.clientsMutex.Lock()
	h.clients[c] = true
	h.clientsMutex.Unlock()
}

func (h *Hub) removeClient(c *types.WSClient) {
	h.clientsMutex.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.clientsMutex.Unlock()
	if ok {
		_ = c.Conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.clientsMutex.Lock()
	clients := h.clients
	h.clients = make(map[*types.WSClient]bool)
	h.clientsMutex.Unlock()

	for c := range clients {
		c.Mu.Lock()
		_ = c.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.Mu.Unlock()
		_ = c.Conn.Close()
	}
}
