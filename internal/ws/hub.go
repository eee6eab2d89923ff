package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	pkglogger "github.com/condovia/condovia-backend/pkg/logger"
)

const redisPubSubChannel = "chat:events"

var (
	sessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_sessions",
		Help: "Number of currently joined chat sessions",
	})

	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_ws_broadcasts_total",
		Help: "Total number of events broadcast to chat rooms",
	}, []string{"event"})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_ws_dropped_total",
		Help: "Events dropped because a session's send buffer was full",
	})
)

// Hub is the room broadcaster: it maps each conversation to the set of
// currently joined sessions and fans events out to them. Rooms are only
// mutated by the Run loop, so broadcast order within a conversation follows
// the order Broadcast was called.
type Hub struct {
	// Joined sessions grouped by conversation ID
	rooms map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent

	mu          sync.RWMutex
	instanceID  string
	redisClient *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
}

// roomEvent targets one conversation's room, optionally excluding the
// originating session.
type roomEvent struct {
	ConversationID uint
	Event          *Event
	ExcludeSession string
}

// NewHub creates a new Hub. redisClient may be nil for single-instance
// deployments; when set, events are also published to a Redis channel so
// other instances deliver them to their local rooms.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:       make(map[uint]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *roomEvent, 256),
		instanceID:  uuid.New().String(),
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a session to its conversation's room
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a session from its conversation's room
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.conversationID] == nil {
				h.rooms[client.conversationID] = make(map[*Client]bool)
			}
			h.rooms[client.conversationID][client] = true
			h.mu.Unlock()
			sessionsGauge.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.conversationID]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					sessionsGauge.Dec()
					if len(room) == 0 {
						delete(h.rooms, client.conversationID)
					}
				}
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.deliverLocal(ev)

		case <-h.ctx.Done():
			return
		}
	}
}

// deliverLocal fans an event out to the local room. A session whose send
// buffer is full misses the event instead of blocking the room; the client
// is expected to reconnect and refetch history.
func (h *Hub) deliverLocal(ev *roomEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[ev.ConversationID]
	if !ok {
		return
	}

	data, err := json.Marshal(ev.Event)
	if err != nil {
		return
	}

	broadcastsTotal.WithLabelValues(ev.Event.Type).Inc()
	for client := range room {
		if ev.ExcludeSession != "" && client.sessionID == ev.ExcludeSession {
			continue
		}
		select {
		case client.send <- data:
		default:
			droppedTotal.Inc()
		}
	}
}

// Broadcast delivers an event to every joined session of the conversation,
// except the excluded session when excludeSession is non-empty. Local
// delivery and the Redis publish preserve the caller's order.
func (h *Hub) Broadcast(conversationID uint, event *Event, excludeSession string) {
	h.broadcast <- &roomEvent{
		ConversationID: conversationID,
		Event:          event,
		ExcludeSession: excludeSession,
	}

	if h.redisClient != nil {
		msg := &redisEnvelope{
			InstanceID:     h.instanceID,
			ConversationID: conversationID,
			Event:          event,
			ExcludeSession: excludeSession,
		}
		data, err := json.Marshal(msg)
		if err == nil {
			h.redisClient.Publish(h.ctx, redisPubSubChannel, data) //nolint:errcheck
		}
	}
}

// RoomSize reports the number of joined sessions for a conversation
func (h *Hub) RoomSize(conversationID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// redisEnvelope is the cross-instance fan-out message. InstanceID lets the
// publishing instance skip its own messages, which it already delivered
// locally.
type redisEnvelope struct {
	InstanceID     string `json:"instance_id"`
	ConversationID uint   `json:"conversation_id"`
	Event          *Event `json:"event"`
	ExcludeSession string `json:"exclude_session,omitempty"`
}

// subscribeRedis re-broadcasts events published by other instances to the
// local rooms.
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				pkglogger.GetLogger().Warn().Err(err).Msg("malformed chat pubsub payload")
				continue
			}
			if env.InstanceID == h.instanceID {
				continue
			}
			h.broadcast <- &roomEvent{
				ConversationID: env.ConversationID,
				Event:          env.Event,
				ExcludeSession: env.ExcludeSession,
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
