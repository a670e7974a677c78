package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientEvent is what a connected client sends over the socket.
type clientEvent struct {
	Type   string `json:"type"` // "join_channel" | "message" | "typing" | "stop_typing" | "leave_channel"
	ChatID string `json:"chatChannelId"`
	Text   string `json:"text,omitempty"`
}

// serverEvent is what the relay pushes back.
type serverEvent struct {
	Type string `json:"type"` // "message_created" | "user_typing" | "user_stopped_typing" | "info" | "error"
	Data any    `json:"data,omitempty"`
}

func errorEvent(msg string) serverEvent {
	return serverEvent{Type: "error", Data: map[string]string{"message": msg}}
}

// wsClient represents one authenticated WebSocket connection.
type wsClient struct {
	userID int
	conn   *websocket.Conn
	send   chan serverEvent
}

// Hub owns the chat-channel broadcast groups. One Hub per process,
// constructed in main and handed to the handler; broadcast is
// process-local, so a multi-process deployment needs a shared fabric
// behind the same methods.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*wsClient]bool
}

func newHub() *Hub {
	return &Hub{rooms: make(map[string]map[*wsClient]bool)}
}

func (h *Hub) join(chatID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*wsClient]bool)
	}
	h.rooms[chatID][c] = true
}

func (h *Hub) leave(chatID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[chatID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

// drop removes the client from every group it joined (disconnect path).
func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for chatID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

func (h *Hub) inRoom(chatID string, c *wsClient) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[chatID][c]
}

// broadcast sends evt to every member of the group. except skips one
// client (nil means everyone). Slow consumers are dropped-from, never
// blocked on.
func (h *Hub) broadcast(chatID string, evt serverEvent, except *wsClient) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[chatID] {
		if c == except {
			continue
		}
		select {
		case c.send <- evt:
		default:
			// Drop event if the client's buffer is full
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// For development: allow the frontend dev origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /ws/chat
// The bearer credential is resolved once at the handshake; a connection
// that cannot be resolved to a user is rejected before any events run.
func wsChatHandler(db *sql.DB, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := getUserIDFromRequest(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WS upgrade error for user %d: %v", userID, err)
			return
		}

		client := &wsClient{
			userID: userID,
			conn:   conn,
			send:   make(chan serverEvent, 16),
		}

		// Announce connection to this client
		client.send <- serverEvent{Type: "info", Data: "connected"}

		// Start writer
		go clientWriter(client)
		// Start reader (blocks)
		clientReader(db, hub, client)
	}
}

// channelMember reports whether userID belongs to the match that owns
// chatID.
func channelMember(db *sql.DB, chatID string, userID int) (bool, error) {
	match, err := getMatchByChatID(db, chatID)
	if err == errNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return match.hasMember(userID), nil
}

func clientReader(db *sql.DB, hub *Hub, c *wsClient) {
	defer func() {
		hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var evt clientEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			c.send <- errorEvent("invalid message format")
			continue
		}

		switch evt.Type {
		case "join_channel":
			ok, err := channelMember(db, evt.ChatID, c.userID)
			if err != nil {
				log.Printf("WS join check failed for user %d: %v", c.userID, err)
				c.send <- errorEvent("cannot join channel")
				continue
			}
			if !ok {
				c.send <- errorEvent("not a member of this channel")
				continue
			}
			hub.join(evt.ChatID, c)

		case "message":
			ok, err := channelMember(db, evt.ChatID, c.userID)
			if err != nil || !ok {
				c.send <- errorEvent("cannot send message")
				continue
			}
			msg, err := saveChatMessage(db, evt.ChatID, c.userID, evt.Text)
			if err != nil {
				c.send <- errorEvent("cannot send message")
				continue
			}
			// The whole group gets the persisted message, the sender
			// included; clients de-duplicate their own optimistic echo.
			hub.broadcast(evt.ChatID, serverEvent{Type: "message_created", Data: msg}, nil)

		case "typing", "stop_typing":
			if !hub.inRoom(evt.ChatID, c) {
				c.send <- errorEvent("not in channel")
				continue
			}
			out := "user_typing"
			if evt.Type == "stop_typing" {
				out = "user_stopped_typing"
			}
			// Ephemeral: relayed to everyone but the sender, never stored.
			hub.broadcast(evt.ChatID, serverEvent{Type: out, Data: map[string]int{"userId": c.userID}}, c)

		case "leave_channel":
			hub.leave(evt.ChatID, c)

		default:
			c.send <- errorEvent("unknown message type")
		}
	}
}

func clientWriter(c *wsClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			// ping to keep the connection alive
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
