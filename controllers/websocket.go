package controllers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"examwatch/models"
	"examwatch/presence"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// writeWait bounds every outbound write. A session that cannot take a
// probe within this window is treated as dead rather than allowed to
// stall the broadcast.
const writeWait = time.Second

// Client is one live websocket session bound to a student identity.
// The mutex serializes writes; gorilla connections allow only one
// concurrent writer.
type Client struct {
	identity string
	conn     *websocket.Conn
	mu       sync.Mutex
}

func (c *Client) write(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *Client) close() {
	c.mu.Lock()
	c.conn.Close()
	c.mu.Unlock()
}

// Hub owns the identity-to-session binding. It is the monitor's
// Transport: probes fan out through it and offline identities are
// kicked through it. All registry mutation triggered by session
// lifecycle goes through the hub so teardown is uniform.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Client
	registry *presence.Registry
}

// NewHub returns a hub forwarding lifecycle events to registry.
func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		sessions: make(map[string]*Client),
		registry: registry,
	}
}

// Registry exposes the presence registry for the read-side handlers.
func (h *Hub) Registry() *presence.Registry {
	return h.registry
}

// bind installs c as the session for its identity, returning any
// displaced session. A reconnect replaces the stale binding atomically;
// the stale session's teardown then finds itself unbound and leaves the
// newcomer alone.
func (h *Hub) bind(c *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.sessions[c.identity]
	h.sessions[c.identity] = c
	return old
}

// unbind removes the binding only if it still points at c.
func (h *Hub) unbind(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[c.identity] == c {
		delete(h.sessions, c.identity)
		return true
	}
	return false
}

// sessionEnd is the single teardown path for every way a session dies:
// read error, client close, probe write failure, monitor kick. The
// binding is removed before the registry is touched, and the forced
// offline only happens if this session still owned the identity.
func (h *Hub) sessionEnd(c *Client) {
	wasBound := h.unbind(c)
	c.close()
	if wasBound {
		h.registry.ForceOffline(c.identity)
		log.Info().Str("identity", c.identity).Msg("session ended")
	}
}

// BroadcastProbe sends a probe to every bound session. Writes happen
// outside the hub lock; a failed write is an immediate implicit
// disconnect for that session and never delays the others.
func (h *Hub) BroadcastProbe() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for _, c := range h.sessions {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(models.MsgProbe); err != nil {
			log.Warn().Err(err).Str("identity", c.identity).Msg("probe send failed, dropping session")
			h.sessionEnd(c)
		}
	}
}

// Kick forcibly terminates the session bound to identity, if any.
// Called by the monitor after it logged an OFFLINE transition for a
// client whose transport silently died. Kicking an unbound identity is
// a no-op. A client that reconnected between the evaluation and the
// kick is back inside the liveness window, so its fresh session is
// spared rather than closed on a stale verdict.
func (h *Hub) Kick(identity string) {
	h.mu.Lock()
	c := h.sessions[identity]
	h.mu.Unlock()

	if c == nil || h.registry.Online(identity) {
		return
	}

	if h.unbind(c) {
		c.close()
		log.Info().Str("identity", identity).Msg("kicked offline session")
	}
}

// CloseAll tears down every session; used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for _, c := range h.sessions {
		clients = append(clients, c)
	}
	h.sessions = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// WebSocketHandler upgrades GET /ws?name=<identity>. A connection
// without a name is rejected before any registry mutation. After the
// handshake the loop forwards every ack to the registry until the
// session dies, then funnels into sessionEnd.
func WebSocketHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.Query("name"))
		if name == "" {
			log.Warn().Str("remote", c.ClientIP()).Msg("rejected connection without identity")
			c.String(http.StatusBadRequest, models.ErrRejectedConnection.Error())
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := &Client{identity: name, conn: conn}
		if old := hub.bind(client); old != nil {
			// Reconnect: the new session owns the identity from here on.
			old.close()
		}
		hub.registry.Register(name)
		log.Info().Str("identity", name).Msg("client connected")

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if string(msg) != models.MsgAck {
				continue
			}
			if err := hub.registry.Heartbeat(name); err != nil {
				log.Warn().Str("identity", name).Msg("ignoring ack for unregistered identity")
			}
		}

		hub.sessionEnd(client)
	}
}
