package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"rentledger/internal/auth"
	"rentledger/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin is enforced by CORS on the token endpoints; the socket itself needs a valid token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Authenticator turns a raw access token into an identity, rejecting revoked tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
}

// UserLoader reads the current state of a user.
type UserLoader interface {
	CurrentUser(ctx context.Context, id auth.Identity) (*model.User, error)
}

// Client is one connected socket, bound to a user and that user's organization at connect time.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	orgID  *uuid.UUID
}

type delivery struct {
	userID  *uuid.UUID
	orgID   *uuid.UUID
	payload []byte
}

// Hub tracks connected clients and routes notifications to them.
type Hub struct {
	clients    map[*Client]bool
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		deliver:    make(chan delivery, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Run dispatches hub events until ctx is done. All client bookkeeping happens on this goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug("websocket client connected", zap.String("user_id", client.userID.String()))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Debug("websocket client disconnected", zap.String("user_id", client.userID.String()))
			}
		case d := <-h.deliver:
			for client := range h.clients {
				if !d.matches(client) {
					continue
				}
				select {
				case client.send <- d.payload:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// matches reports whether the client is a recipient. A delivery with a user goes to that
// user only, one with an organization to every client of it, and one with neither to everyone.
func (d delivery) matches(c *Client) bool {
	switch {
	case d.userID != nil:
		return c.userID == *d.userID
	case d.orgID != nil:
		return c.orgID != nil && *c.orgID == *d.orgID
	default:
		return true
	}
}

// Notify queues n for its recipients. It never blocks the caller; when the queue is full
// the push is dropped and the notification stays readable through the API.
func (h *Hub) Notify(n model.Notification) {
	payload, err := json.Marshal(gin.H{"type": "notification", "data": n})
	if err != nil {
		h.log.Error("failed to encode notification", zap.Error(err))
		return
	}
	select {
	case h.deliver <- delivery{userID: n.UserID, orgID: n.OrganizationID, payload: payload}:
	default:
		h.log.Warn("notification push dropped", zap.String("id", n.ID.String()))
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		n := len(c.send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump only watches for the peer going away.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

// ServeWs upgrades an authenticated request. The token comes from the "token" query
// parameter, since browsers cannot set headers on a socket handshake, or the access_token cookie.
func ServeWs(hub *Hub, c *gin.Context, authn Authenticator, users UserLoader) {
	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString, _ = c.Cookie("access_token")
	}
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, err := authn.Authenticate(c.Request.Context(), tokenString)
	if err != nil {
		hub.log.Debug("websocket connection rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	user, err := users.CurrentUser(c.Request.Context(), *id)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), userID: user.ID, orgID: user.OrganizationID}
	select {
	case hub.register <- client:
	case <-hub.done:
		// hub stopped; no pump will ever be served
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
