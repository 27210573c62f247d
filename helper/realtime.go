package helper

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"parking_manager/model"
)

const SlotChannel = "parking:slots"

// Subscriber is a live connection that receives slot events.
type Subscriber interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SlotHub fans slot events out to websocket subscribers. With a redis
// client, events go through a pub/sub channel so every instance sees them.
type SlotHub struct {
	mu      sync.Mutex
	clients map[Subscriber]bool

	redis *redis.Client
	log   logrus.FieldLogger
}

func NewSlotHub(rdb *redis.Client, log logrus.FieldLogger) *SlotHub {
	return &SlotHub{
		clients: make(map[Subscriber]bool),
		redis:   rdb,
		log:     log.WithField("component", "slot_hub"),
	}
}

// Join sends s the payload built by snapshot, when given, and registers it.
// Broadcasts wait while this runs, so every event committed after the
// snapshot reaches s after it. snapshot must not publish to the hub.
func (h *SlotHub) Join(s Subscriber, snapshot func() ([]byte, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if snapshot != nil {
		payload, err := snapshot()
		if err != nil {
			return err
		}
		if err := s.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
	}
	h.clients[s] = true
	return nil
}

func (h *SlotHub) Unregister(s Subscriber) {
	h.mu.Lock()
	delete(h.clients, s)
	h.mu.Unlock()
}

func (h *SlotHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements the engine's notifier.
func (h *SlotHub) Publish(ctx context.Context, ev model.SlotEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("encode slot event")
		return
	}
	if h.redis != nil {
		err := h.redis.Publish(ctx, SlotChannel, payload).Err()
		if err == nil {
			return
		}
		h.log.WithError(err).Warn("redis publish failed, broadcasting locally")
	}
	h.Broadcast(payload)
}

// Broadcast writes payload to every subscriber, dropping the ones that fail.
func (h *SlotHub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Run relays the redis channel to local subscribers until ctx is done.
// Without redis it just waits.
func (h *SlotHub) Run(ctx context.Context) {
	if h.redis == nil {
		<-ctx.Done()
		return
	}

	pubsub := h.redis.Subscribe(ctx, SlotChannel)
	defer pubsub.Close()

	channel := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-channel:
			if !ok {
				return
			}
			h.Broadcast([]byte(msg.Payload))
		}
	}
}
