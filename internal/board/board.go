package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/metrics"
	"github.com/mmeshcher/nightbite/internal/model"
)

var (
	// ErrOrderNotFound возвращается, если заказа нет на панели.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatus возвращается для неизвестного статуса заказа.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrBoardClosed возвращается при обращении к закрытой панели.
	ErrBoardClosed = errors.New("board closed")
)

// Ledger описывает хранилище заказов, используемое панелью администратора.
type Ledger interface {
	GetAllOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
}

// Board хранит панель одного администратора. Состояние меняется только через Apply.
type Board struct {
	adminID string
	ledger  Ledger
	logger  *zap.Logger
	sub     *Subscription
	now     func() time.Time

	mu       sync.Mutex
	state    State
	writes   uint64
	lastUsed time.Time
	closed   bool
	done     chan struct{}
}

func newBoard(adminID string, ledger Ledger, hub *Hub, logger *zap.Logger, now func() time.Time) *Board {
	b := &Board{
		adminID:  adminID,
		ledger:   ledger,
		logger:   logger.With(zap.String("adminID", adminID)),
		now:      now,
		lastUsed: now(),
		done:     make(chan struct{}),
	}
	if hub != nil {
		b.sub = hub.Subscribe()
		go b.consume()
	} else {
		close(b.done)
	}
	return b
}

func (b *Board) consume() {
	defer close(b.done)
	for o := range b.sub.C {
		b.dispatch(Inserted{Order: o})
		b.logger.Info("new order received",
			zap.String("orderID", o.ID.String()),
			zap.String("email", o.Email),
		)
	}
}

func (b *Board) dispatch(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Apply(b.state, e)
}

func (b *Board) touch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBoardClosed
	}
	b.lastUsed = b.now()
	return nil
}

// Refresh перечитывает все заказы из хранилища.
func (b *Board) Refresh(ctx context.Context) error {
	if err := b.touch(); err != nil {
		return err
	}

	b.mu.Lock()
	seq := b.writes
	b.mu.Unlock()

	orders, err := b.ledger.GetAllOrders(ctx)
	if err != nil {
		b.logger.Error("load orders error", zap.Error(err))
		return fmt.Errorf("load orders: %w", err)
	}

	b.dispatch(Snapshot{Orders: orders, Seq: seq})
	return nil
}

// View возвращает отфильтрованный и отсортированный список заказов.
func (b *Board) View(status, query string) (View, error) {
	if err := b.touch(); err != nil {
		return View{}, err
	}
	if !ValidFilter(status) {
		return View{}, ErrInvalidStatus
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return Render(b.state, status, query), nil
}

// MarkSeen сбрасывает счётчик новых заказов.
func (b *Board) MarkSeen() error {
	if err := b.touch(); err != nil {
		return err
	}
	b.dispatch(Seen{})
	return nil
}

// UpdateStatus меняет статус заказа сначала локально, затем в хранилище.
// При ошибке записи локальный статус откатывается. Снимок, полученный во время записи,
// не затирает локальный статус.
func (b *Board) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if err := b.touch(); err != nil {
		return err
	}

	next, ok := model.ParseOrderStatus(status)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	b.mu.Lock()
	prev, found := findStatus(b.state.Orders, id)
	if !found {
		b.mu.Unlock()
		return ErrOrderNotFound
	}
	b.state = Apply(b.state, StatusSet{ID: id, Status: next})
	b.mu.Unlock()

	if err := b.ledger.UpdateOrderStatus(ctx, id, next); err != nil {
		b.dispatch(StatusReverted{ID: id, Status: prev})
		metrics.StatusUpdates.WithLabelValues(string(next), "failed").Inc()
		b.logger.Error("update order status error",
			zap.Error(err),
			zap.String("orderID", id.String()),
			zap.String("status", string(next)),
		)
		return fmt.Errorf("update order status: %w", err)
	}

	b.mu.Lock()
	b.writes++
	b.state = Apply(b.state, StatusConfirmed{ID: id, Status: next, Seq: b.writes})
	b.mu.Unlock()

	metrics.StatusUpdates.WithLabelValues(string(next), "ok").Inc()
	return nil
}

func findStatus(orders []model.Order, id uuid.UUID) (model.OrderStatus, bool) {
	for _, o := range orders {
		if o.ID == id {
			return o.Status, true
		}
	}
	return "", false
}

func (b *Board) idleSince(t time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.lastUsed.After(t)
}

// Close освобождает подписку панели. Повторный вызов безопасен.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	if b.sub != nil {
		b.sub.Cancel()
	}
	<-b.done
}
