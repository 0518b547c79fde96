package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/metrics"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "parksafe:changes"

// Hub fans stored row changes out to websocket clients.
// Changes travel through Redis Pub/Sub so every instance delivers to its own clients.
type Hub struct {
	// userID -> set of connections (one user can have several devices)
	clients map[uuid.UUID]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	// nil means single-instance mode: changes are delivered locally
	rdb *redis.Client
}

// NewHub creates a new Hub
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	metrics.RealtimeConnections.Inc()
	log.Printf("✅ Client connected: %s (total connections: %d)", client.UserID, len(h.clients[client.UserID]))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	metrics.RealtimeConnections.Dec()

	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
	log.Printf("❌ Client disconnected: %s", client.UserID)
}

// ConnectedUsers returns the users with at least one connection on this instance
func (h *Hub) ConnectedUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userIDs := make([]uuid.UUID, 0, len(h.clients))
	for userID := range h.clients {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}

// ========== Change fan-out ==========

// envelope is what crosses instances on the Redis channel
type envelope struct {
	Audience model.Audience  `json:"audience"`
	Change   json.RawMessage `json:"change"`
}

// Publish sends a change to every subscribed client in the audience
func (h *Hub) Publish(event model.ChangeEvent, audience model.Audience) {
	change, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling change: %v", err)
		return
	}
	env := envelope{Audience: audience, Change: change}

	if h.rdb == nil {
		h.deliver(env)
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("Error marshaling for Redis: %v", err)
		return
	}
	if err := h.rdb.Publish(context.Background(), redisChannel, data).Err(); err != nil {
		log.Printf("Error publishing to Redis: %v", err)
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("Error unmarshaling Redis message: %v", err)
				continue
			}
			h.deliver(env)
		}
	}
}

// deliver writes a change to the local clients that are in the audience and
// subscribed to the table and event kind
func (h *Hub) deliver(env envelope) {
	var change model.ChangePayload
	if err := json.Unmarshal(env.Change, &change); err != nil {
		log.Printf("Error decoding change: %v", err)
		return
	}

	data, err := json.Marshal(model.WSEvent{Type: model.WSEventChange, Payload: change})
	if err != nil {
		log.Printf("Error marshaling change frame: %v", err)
		return
	}

	var slow []*Client

	h.mu.RLock()
	for userID, clients := range h.clients {
		if !env.Audience.Allows(userID) {
			continue
		}
		for client := range clients {
			if !client.subscribed(change.Table, change.Event) {
				continue
			}
			select {
			case client.send <- data:
				metrics.ChangesDelivered.WithLabelValues(change.Table).Inc()
			default:
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	// Clients whose send buffer is full are dropped; they resync on reconnect
	for _, client := range slow {
		h.removeClient(client)
	}
}
