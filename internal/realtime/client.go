package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/parksafe/parksafe/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Tables clients may subscribe to
var subscribable = map[string]bool{
	model.TableMessages: true,
	model.TableAlerts:   true,
	model.TableProfiles: true,
}

// Client represents a single WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID uuid.UUID

	// table -> accepted event kinds; an empty set accepts every kind
	subs   map[string]map[model.ChangeKind]bool
	subsMu sync.RWMutex
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		UserID: userID,
		subs:   make(map[string]map[model.ChangeKind]bool),
	}
}

func (c *Client) subscribe(table string, kinds []model.ChangeKind) {
	set := make(map[model.ChangeKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}

	c.subsMu.Lock()
	c.subs[table] = set
	c.subsMu.Unlock()
}

func (c *Client) unsubscribe(table string) {
	c.subsMu.Lock()
	delete(c.subs, table)
	c.subsMu.Unlock()
}

func (c *Client) subscribed(table string, kind model.ChangeKind) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	kinds, ok := c.subs[table]
	if !ok {
		return false
	}
	return len(kinds) == 0 || kinds[kind]
}

// reply queues a frame for this connection only. The hub lock guards
// against sending on a channel the hub already closed.
func (c *Client) reply(event model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c.UserID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// handle applies one frame received from the peer
func (c *Client) handle(event model.WSEvent) {
	switch event.Type {
	case model.WSEventSubscribe, model.WSEventUnsubscribe:
		payloadBytes, _ := json.Marshal(event.Payload)
		var payload model.SubscribePayload
		if err := json.Unmarshal(payloadBytes, &payload); err != nil || !subscribable[payload.Table] {
			c.reply(model.WSEvent{Type: model.WSEventError, Payload: "unknown table"})
			return
		}
		if event.Type == model.WSEventSubscribe {
			c.subscribe(payload.Table, payload.Events)
			c.reply(model.WSEvent{Type: model.WSEventSubscribed, Payload: model.SubscribePayload{Table: payload.Table}})
		} else {
			c.unsubscribe(payload.Table)
			c.reply(model.WSEvent{Type: model.WSEventUnsubscribed, Payload: model.SubscribePayload{Table: payload.Table}})
		}

	case model.WSEventPing:
		c.reply(model.WSEvent{Type: model.WSEventPong})

	default:
		log.Printf("Unknown WebSocket event type: %s", event.Type)
	}
}

// ReadPump pumps frames from the WebSocket connection into the client
// Runs in a per-client goroutine
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var event model.WSEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Error parsing WebSocket message: %v", err)
			continue
		}
		c.handle(event)
	}
}

// WritePump pumps frames from the hub to the WebSocket connection.
// Each frame is written as its own websocket message.
// Runs in a per-client goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
