package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pklive-backend/internal/models"
	"pklive-backend/internal/services"
)

const (
	writeWait = 10 * time.Second

	// pingInterval is the server-initiated liveness cycle. A client
	// that misses one full cycle is terminated.
	pingInterval = 30 * time.Second
	pongWait     = pingInterval + 10*time.Second

	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub owns the room subscriber sets and fans events out to them. It
// is constructed and injected rather than living in a package-level
// variable, so tests can run independent instances.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	join       chan subscription
	leave      chan subscription
	identify   chan identity
	broadcast  chan roomFrame
	unicast    chan userFrame

	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	users   map[int64]map[*Client]struct{}

	logger zerolog.Logger
}

type subscription struct {
	client *Client
	roomID string
	user   *models.User
}

type identity struct {
	client *Client
	userID int64
}

type roomFrame struct {
	roomID  string
	data    []byte
	exclude *Client
}

type userFrame struct {
	userID int64
	data   []byte
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// userID is zero until the connection authenticates. Written and
	// read only from this connection's readPump.
	userID   int64
	username string

	rooms map[string]struct{}

	// identifiedAs is the user index key this client is filed under.
	// Touched only from the hub goroutine.
	identifiedAs int64
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		leave:      make(chan subscription),
		identify:   make(chan identity),
		broadcast:  make(chan roomFrame, 256),
		unicast:    make(chan userFrame, 256),
		rooms:      make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		users:      make(map[int64]map[*Client]struct{}),
		logger:     logger,
	}
}

var _ services.Publisher = (*Hub)(nil)

// Publish implements services.Publisher. Best-effort: an encode
// failure is logged and the event dropped.
func (h *Hub) Publish(roomID string, event models.ServerEvent) {
	data, err := event.Encode()
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to encode event")
		return
	}
	h.broadcast <- roomFrame{roomID: roomID, data: data}
}

// PublishToUser implements services.Publisher. The event reaches every
// authenticated connection of the user, or nobody if none is online.
func (h *Hub) PublishToUser(userID int64, event models.ServerEvent) {
	data, err := event.Encode()
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to encode event")
		return
	}
	h.unicast <- userFrame{userID: userID, data: data}
}

func (h *Hub) ViewerCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, client)
			h.removeFromUserIndex(client)
			counts := make(map[string]int)
			for roomID := range client.rooms {
				h.removeFromRoom(client, roomID)
				counts[roomID] = len(h.rooms[roomID])
			}
			h.mu.Unlock()
			close(client.send)

			for roomID, count := range counts {
				h.broadcastFrame(models.ServerEvent{
					Type: models.EventViewerCount,
					Data: models.ViewerCountPayload{StreamID: roomID, ViewerCount: count},
				}, roomID, nil)
			}

		case sub := <-h.join:
			h.mu.Lock()
			if h.rooms[sub.roomID] == nil {
				h.rooms[sub.roomID] = make(map[*Client]struct{})
			}
			h.rooms[sub.roomID][sub.client] = struct{}{}
			sub.client.rooms[sub.roomID] = struct{}{}
			count := len(h.rooms[sub.roomID])
			h.mu.Unlock()

			h.broadcastFrame(models.ServerEvent{
				Type: models.EventJoined,
				Data: models.JoinedPayload{StreamID: sub.roomID, User: sub.user, ViewerCount: count},
			}, sub.roomID, nil)

		case sub := <-h.leave:
			h.mu.Lock()
			h.removeFromRoom(sub.client, sub.roomID)
			delete(sub.client.rooms, sub.roomID)
			count := len(h.rooms[sub.roomID])
			h.mu.Unlock()

			h.broadcastFrame(models.ServerEvent{
				Type: models.EventViewerCount,
				Data: models.ViewerCountPayload{StreamID: sub.roomID, ViewerCount: count},
			}, sub.roomID, nil)

		case id := <-h.identify:
			h.mu.Lock()
			if _, ok := h.clients[id.client]; ok {
				h.removeFromUserIndex(id.client)
				if h.users[id.userID] == nil {
					h.users[id.userID] = make(map[*Client]struct{})
				}
				h.users[id.userID][id.client] = struct{}{}
				id.client.identifiedAs = id.userID
			}
			h.mu.Unlock()

		case frame := <-h.broadcast:
			h.deliver(frame)

		case frame := <-h.unicast:
			h.deliverUser(frame)
		}
	}
}

// removeFromUserIndex must be called with h.mu held.
func (h *Hub) removeFromUserIndex(client *Client) {
	if client.identifiedAs == 0 {
		return
	}
	if set, ok := h.users[client.identifiedAs]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.users, client.identifiedAs)
		}
	}
	client.identifiedAs = 0
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(client *Client, roomID string) {
	if room, ok := h.rooms[roomID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) broadcastFrame(event models.ServerEvent, roomID string, exclude *Client) {
	data, err := event.Encode()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode event")
		return
	}
	h.deliver(roomFrame{roomID: roomID, data: data, exclude: exclude})
}

// deliver pushes a frame to every subscriber of a room. A subscriber
// whose send buffer is full just misses this frame; one slow
// connection never blocks the rest of the room.
func (h *Hub) deliver(frame roomFrame) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[frame.roomID]))
	for client := range h.rooms[frame.roomID] {
		if client == frame.exclude {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- frame.data:
		default:
			h.logger.Warn().
				Str("room_id", frame.roomID).
				Msg("dropping frame for slow connection")
		}
	}
}

func (h *Hub) deliverUser(frame userFrame) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[frame.userID]))
	for client := range h.users[frame.userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- frame.data:
		default:
		}
	}
}

type WebSocketHandler struct {
	hub          *Hub
	jwtService   *services.JWTService
	users        services.UserDirectory
	battleEngine *services.BattleEngine
	logger       zerolog.Logger
}

func NewWebSocketHandler(hub *Hub, jwtService *services.JWTService, users services.UserDirectory, battleEngine *services.BattleEngine, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		jwtService:   jwtService,
		users:        users,
		battleEngine: battleEngine,
		logger:       logger,
	}
}

// HandleWebSocket upgrades the connection. Connections start
// anonymous; a token may be supplied up front via ?token= or later
// through an AUTH event.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		hub:   h.hub,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]struct{}),
	}

	if token := c.Query("token"); token != "" {
		if claims, err := h.jwtService.ValidateToken(token); err == nil {
			client.userID = claims.UserID
			client.username = claims.Username
		}
	}

	h.hub.register <- client
	if client.userID != 0 {
		h.hub.identify <- identity{client: client, userID: client.userID}
	}

	go client.writePump()
	h.readPump(client)
}

func (h *WebSocketHandler) readPump(c *Client) {
	defer func() {
		h.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Int64("user_id", c.userID).Msg("websocket closed")
			}
			break
		}

		event, err := models.DecodeClientEvent(raw)
		if err != nil {
			c.enqueue(models.NewErrorEvent("VALIDATION", err.Error()))
			continue
		}

		h.handleEvent(c, event)
	}
}

func (h *WebSocketHandler) handleEvent(c *Client, event *models.ClientEvent) {
	switch event.Type {
	case models.EventAuth:
		claims, err := h.jwtService.ValidateToken(event.Auth.Token)
		if err != nil {
			c.enqueue(models.NewErrorEvent("UNAUTHORIZED", "invalid or expired token"))
			return
		}
		c.userID = claims.UserID
		c.username = claims.Username
		c.hub.identify <- identity{client: c, userID: claims.UserID}
		c.enqueue(models.ServerEvent{Type: models.EventAuthAck, Data: gin.H{"user_id": claims.UserID}})

	case models.EventJoinStream:
		// Anonymous viewers may watch; they just cannot send.
		h.hub.join <- subscription{client: c, roomID: event.Join.StreamID, user: h.profile(c)}

	case models.EventLeaveStream:
		h.hub.leave <- subscription{client: c, roomID: event.Leave.StreamID}

	case models.EventChatMessage:
		if c.userID == 0 {
			c.enqueue(models.NewErrorEvent("UNAUTHORIZED", "authenticate before sending messages"))
			return
		}
		h.hub.Publish(event.Chat.StreamID, models.ServerEvent{
			Type: models.EventChatMessage,
			Data: models.ChatBroadcastPayload{
				StreamID:  event.Chat.StreamID,
				User:      h.profile(c),
				Text:      event.Chat.Text,
				Timestamp: time.Now().Unix(),
			},
		})

	case models.EventHeartTap:
		if c.userID == 0 {
			c.enqueue(models.NewErrorEvent("UNAUTHORIZED", "authenticate before sending hearts"))
			return
		}
		if err := h.battleEngine.HeartTap(event.Heart.BattleID, event.Heart.Side); err != nil {
			c.enqueue(models.NewErrorEvent(errorCode(err), err.Error()))
		}
	}
}

func (h *WebSocketHandler) profile(c *Client) *models.User {
	if c.userID == 0 {
		return nil
	}
	if h.users != nil {
		if user, err := h.users.GetUser(context.Background(), c.userID); err == nil {
			return user
		}
	}
	return &models.User{ID: c.userID, Username: c.username}
}

// enqueue unicasts an event to this connection, dropping it if the
// connection cannot keep up.
func (c *Client) enqueue(event models.ServerEvent) {
	data, err := event.Encode()
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, models.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, models.ErrBattleNotStarted):
		return "BATTLE_NOT_STARTED"
	case errors.Is(err, models.ErrBattleEnded):
		return "BATTLE_ENDED"
	case errors.Is(err, models.ErrValidation):
		return "VALIDATION"
	default:
		return "INTERNAL"
	}
}
