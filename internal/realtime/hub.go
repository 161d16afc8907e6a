package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/gtw-tools/internal/messenger"
)

// Heartbeat timing for progress connections.
const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// AllRuns is the topic that receives events of every bulk send.
const AllRuns = "all"

// Events pushed to dashboards.
const (
	EventSendProgress  = "send_progress"
	EventSendCompleted = "send_completed"
)

// Publisher fans events out to other server instances.
type Publisher interface {
	PublishProgressEvent(topic, event string, payload []byte) error
}

// Subscriber delivers events published by any instance for a topic.
type Subscriber interface {
	SubscribeProgress(topic string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains topic -> set of connections and broadcasts bulk-send progress.
// A topic is a run id or AllRuns. With a Publisher configured, events go through it and
// every instance (this one included) broadcasts what its Subscriber receives.
type Hub struct {
	topics map[string]map[string]*Client
	subs   map[string]*subscription
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// subscription is a topic's Subscriber registration. cancel is nil while it is being set up.
type subscription struct {
	cancel func()
}

func (s *subscription) stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewHub creates a hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics: make(map[string]map[string]*Client),
		subs:   make(map[string]*subscription),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to its topic. The first client of a topic subscribes to it; the
// subscription call runs without holding the hub lock.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	clients, ok := h.topics[c.Topic]
	if !ok {
		clients = make(map[string]*Client)
		h.topics[c.Topic] = clients
	}
	clients[c.ID] = c
	var pending *subscription
	if h.sub != nil && h.subs[c.Topic] == nil {
		pending = &subscription{}
		h.subs[c.Topic] = pending
	}
	h.mu.Unlock()

	h.logger.Debug("progress client joined", zap.String("client_id", c.ID), zap.String("topic", c.Topic))
	if pending != nil {
		h.subscribe(c.Topic, pending)
	}
}

// subscribe completes a pending subscription. If the subscription failed, the topic's clients
// are disconnected so that reconnecting retries it.
func (h *Hub) subscribe(topic string, pending *subscription) {
	cancel, err := h.sub.SubscribeProgress(topic, func(event string, payload []byte) {
		h.Broadcast(topic, event, json.RawMessage(payload))
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] != pending {
		// every client left while subscribing
		if err == nil {
			cancel()
		}
		return
	}
	if err != nil {
		h.logger.Warn("progress subscribe failed", zap.String("topic", topic), zap.Error(err))
		delete(h.subs, topic)
		for _, c := range h.topics[topic] {
			close(c.send)
		}
		delete(h.topics, topic)
		return
	}
	pending.cancel = cancel
}

// Unregister removes a client and closes its send queue. The topic subscription ends with its last client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.topics[c.Topic]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; !ok {
		return
	}
	delete(m, c.ID)
	close(c.send)
	if len(m) == 0 {
		delete(h.topics, c.Topic)
		if s, ok := h.subs[c.Topic]; ok {
			s.stop()
			delete(h.subs, c.Topic)
		}
	}
	h.logger.Debug("progress client left", zap.String("client_id", c.ID), zap.String("topic", c.Topic))
}

// Broadcast sends an event to local clients of topic. Slow clients miss events rather than block.
func (h *Hub) Broadcast(topic, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Error("encode progress event", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.topics[topic] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("progress client buffer full", zap.String("client_id", c.ID))
		}
	}
}

// Publish delivers an event to topic on every instance.
func (h *Hub) Publish(topic, event string, payload interface{}) {
	if h.pub == nil {
		h.Broadcast(topic, event, payload)
		return
	}
	data, err := encode(payload)
	if err != nil {
		h.logger.Error("encode progress event", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.pub.PublishProgressEvent(topic, event, data); err != nil {
		h.logger.Warn("publish progress event failed, broadcasting locally", zap.String("topic", topic), zap.Error(err))
		h.Broadcast(topic, event, json.RawMessage(data))
	}
}

// ClientCount returns the number of local clients watching topic.
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// SendProgress implements messenger.Observer.
func (h *Hub) SendProgress(p messenger.Progress) {
	h.Publish(AllRuns, EventSendProgress, p)
	h.Publish(p.RunID, EventSendProgress, p)
}

// SendCompleted implements messenger.Observer.
func (h *Hub) SendCompleted(s messenger.Summary) {
	h.Publish(AllRuns, EventSendCompleted, s)
	h.Publish(s.RunID, EventSendCompleted, s)
}

// Close stops all topic subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, s := range h.subs {
		s.stop()
		delete(h.subs, topic)
	}
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}
