package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
)

// Subscription receives the messages of one room until closed.
type Subscription struct {
	room string
	ch   chan Message
	hub  *Hub
	once sync.Once
}

func (s *Subscription) C() <-chan Message { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub is the in-process room registry behind the SSE stream endpoint.
// Slow subscribers lose messages instead of blocking broadcasters.
type Hub struct {
	mu sync.RWMutex
	rooms   map[string]map[*Subscription]struct{}
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewHub(log *zap.SugaredLogger, m *metrics.Metrics) *Hub {
	return &Hub{
		rooms:   map[string]map[*Subscription]struct{}{},
		log:     logger.OrNop(log),
		metrics: metrics.OrNew(m),
	}
}

func (h *Hub) Subscribe(room string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{room: room, ch: make(chan Message, buffer), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = map[*Subscription]struct{}{}
	}
	h.rooms[room][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[sub.room]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.rooms, sub.room)
		}
	}
	close(sub.ch)
}

func (h *Hub) Broadcast(_ context.Context, room string, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[room] {
		select {
		case sub.ch <- msg:
		default:
			h.metrics.BroadcastFailures.Add(1)
			h.log.Debugw("[REALTIME] dropped message for slow subscriber", "room", room, "type", msg.Type)
		}
	}
	return nil
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
