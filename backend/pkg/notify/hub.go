package notify

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "valve_vault_notify_dropped_total",
	Help: "Change events dropped because a subscriber buffer was full",
})

// Hub 进程内事件分发
// 发布不阻塞：订阅者缓冲区满时直接丢弃该事件
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	logger *zap.Logger
}

// NewHub 创建 Hub，buffer 为每个订阅者的缓冲区大小
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Subscription 一个订阅
type Subscription struct {
	id     uint64
	keys   map[string]struct{}
	events chan Event
	hub    *Hub
	once   sync.Once
}

// Subscribe 按主题或单条记录订阅
// keys 为空时接收全部事件；"code_requests" 订阅集合，"code_requests:<id>" 订阅单条记录
func (h *Hub) Subscribe(keys ...string) *Subscription {
	s := &Subscription{
		keys:   make(map[string]struct{}, len(keys)),
		events: make(chan Event, h.buffer),
		hub:    h,
	}
	for _, k := range keys {
		if k != "" {
			s.keys[k] = struct{}{}
		}
	}

	h.mu.Lock()
	h.nextID++
	s.id = h.nextID
	h.subs[s.id] = s
	h.mu.Unlock()

	return s
}

// Events 事件通道，订阅关闭后通道关闭
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close 取消订阅，可重复调用
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
		close(s.events)
	})
}

func (s *Subscription) matches(e Event) bool {
	if len(s.keys) == 0 {
		return true
	}
	if _, ok := s.keys[e.Topic]; ok {
		return true
	}
	_, ok := s.keys[e.Key()]
	return ok
}

// Publish 实现 Notifier
func (h *Hub) Publish(_ context.Context, e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		if !s.matches(e) {
			continue
		}
		select {
		case s.events <- e:
		default:
			droppedEvents.Inc()
			h.logger.Debug("订阅者缓冲区已满，丢弃事件",
				zap.Uint64("subscription", s.id),
				zap.String("key", e.Key()),
			)
		}
	}
}

// Len 当前订阅数
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
