package board

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/metrics"
	"github.com/mmeshcher/nightbite/internal/model"
)

const subscriberBuffer = 16

// Listener описывает источник уведомлений о новых заказах. Listen блокируется,
// пока не отменён контекст или не разорвано соединение.
type Listener interface {
	ListenOrderInserts(ctx context.Context, fn func(model.Order)) error
}

// Subscription описывает подписку на новые заказы. Cancel можно вызывать повторно.
type Subscription struct {
	C <-chan model.Order

	ch   chan model.Order
	hub  *Hub
	once sync.Once
}

// Cancel отписывается от уведомлений и закрывает канал C.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub раздаёт уведомления о новых заказах всем подписчикам.
type Hub struct {
	listener Listener
	logger   *zap.Logger
	delays   []time.Duration

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewHub создаёт хаб уведомлений поверх listener.
func NewHub(listener Listener, logger *zap.Logger) *Hub {
	return &Hub{
		listener: listener,
		logger:   logger,
		delays:   []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
		subs:     make(map[*Subscription]struct{}),
	}
}

// Subscribe регистрирует нового подписчика.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan model.Order, subscriberBuffer)
	s := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Publish отправляет заказ всем подписчикам. Медленные подписчики пропускают событие.
func (h *Hub) Publish(o model.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		select {
		case s.ch <- o:
		default:
			metrics.RealtimeDropped.Inc()
			h.logger.Warn("realtime subscriber is full, event dropped", zap.String("orderID", o.ID.String()))
		}
	}
}

// Subscribers возвращает число активных подписчиков.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Run слушает уведомления до отмены контекста, переподключаясь после ошибок.
// Пауза растёт с каждой неудачной попыткой и сбрасывается, если соединение успело доставить заказ.
func (h *Hub) Run(ctx context.Context) error {
	attempt := 0
	for {
		var delivered atomic.Bool
		err := h.listener.ListenOrderInserts(ctx, func(o model.Order) {
			delivered.Store(true)
			h.Publish(o)
		})
		if ctx.Err() != nil {
			h.closeAll()
			return nil
		}
		if err == nil {
			err = errors.New("listener returned without error")
		}

		if delivered.Load() {
			attempt = 0
		}
		delay := h.delays[len(h.delays)-1]
		if attempt < len(h.delays) {
			delay = h.delays[attempt]
		}
		attempt++
		h.logger.Warn("order listener stopped, reconnecting", zap.Error(err), zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			h.closeAll()
			return nil
		case <-timer.C:
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}
