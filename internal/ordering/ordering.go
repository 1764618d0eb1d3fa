// Package ordering реализует оформление заказа из корзины покупателя.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/cart"
	"github.com/mmeshcher/nightbite/internal/metrics"
	"github.com/mmeshcher/nightbite/internal/model"
)

var (
	// ErrNotAuthenticated возвращается, если заказ оформляет неаутентифицированный пользователь.
	ErrNotAuthenticated = errors.New("you must be logged in to order")
	// ErrEmptyCart возвращается при попытке оформить пустую корзину.
	ErrEmptyCart = errors.New("your cart is empty")
	// ErrSubmissionInFlight возвращается, если предыдущий заказ пользователя ещё оформляется.
	ErrSubmissionInFlight = errors.New("order submission already in progress")
)

// NoticeTTL определяет, сколько времени показывается сообщение об оформленном заказе.
const NoticeTTL = 5 * time.Second

const (
	noticePlaced = "Thank you! Your order was placed. Please wait for the seller's response."
	noticeFailed = "Failed to place order. Please try again."
)

// Ledger описывает хранилище заказов, используемое при оформлении.
type Ledger interface {
	InsertOrder(ctx context.Context, order model.Order) error
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
}

// Notice описывает сообщение пользователю о результате оформления заказа.
type Notice struct {
	Text      string    `json:"text"`
	Success   bool      `json:"success"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service оформляет заказы и хранит сообщения о результате.
type Service struct {
	ledger Ledger
	carts  *cart.Store
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
	notices  map[string]Notice
}

// NewService создаёт сервис оформления заказов.
func NewService(ledger Ledger, carts *cart.Store, logger *zap.Logger) *Service {
	return &Service{
		ledger:   ledger,
		carts:    carts,
		logger:   logger,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
		notices:  make(map[string]Notice),
	}
}

// Submit оформляет заказ из корзины пользователя. После успешной записи из корзины
// убираются только оформленные позиции.
func (s *Service) Submit(ctx context.Context, p model.Principal) (model.Order, error) {
	if !p.SignedIn || p.ID == "" {
		return model.Order{}, ErrNotAuthenticated
	}

	if !s.acquire(p.ID) {
		return model.Order{}, ErrSubmissionInFlight
	}
	defer s.release(p.ID)

	totals := s.carts.Totals(p.ID)
	if totals.Count == 0 {
		return model.Order{}, ErrEmptyCart
	}

	order := newOrder(p, totals, s.now())

	if err := s.ledger.InsertOrder(ctx, order); err != nil {
		s.setNotice(p.ID, Notice{Text: noticeFailed})
		metrics.OrdersFailed.Inc()
		s.logger.Error("insert order error", zap.Error(err), zap.String("userID", p.ID))
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}

	s.carts.Update(p.ID, func(c *cart.Cart) {
		c.Subtract(totals.Lines)
	})
	s.setNotice(p.ID, Notice{Text: noticePlaced, Success: true})
	metrics.OrdersPlaced.Inc()
	s.logger.Info("order placed",
		zap.String("orderID", order.ID.String()),
		zap.String("userID", p.ID),
		zap.String("total", order.Total.String()),
	)

	return order, nil
}

func newOrder(p model.Principal, totals cart.Totals, now time.Time) model.Order {
	items := make([]model.OrderItem, 0, len(totals.Lines))
	for _, l := range totals.Lines {
		items = append(items, model.OrderItem{
			ID:       l.ID,
			Name:     l.Name,
			Price:    l.Price,
			Quantity: l.Quantity,
		})
	}

	return model.Order{
		ID:          uuid.New(),
		UserID:      p.ID,
		Email:       p.Email,
		Items:       items,
		Subtotal:    totals.Subtotal,
		DeliveryFee: totals.DeliveryFee,
		PlatformFee: totals.PlatformFee,
		Total:       totals.Total,
		Status:      model.OrderStatusPending,
		OrderTime:   now,
		CreatedAt:   now,
	}
}

func (s *Service) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *Service) release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}

func (s *Service) setNotice(userID string, n Notice) {
	n.ExpiresAt = s.now().Add(NoticeTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices[userID] = n
}

// Notice возвращает актуальное сообщение о последнем оформлении заказа.
func (s *Service) Notice(userID string) (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notices[userID]
	if !ok {
		return Notice{}, false
	}
	if !s.now().Before(n.ExpiresAt) {
		delete(s.notices, userID)
		return Notice{}, false
	}
	return n, true
}

// History возвращает заказы пользователя, начиная с последнего.
func (s *Service) History(ctx context.Context, p model.Principal) ([]model.Order, error) {
	if !p.SignedIn || p.ID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.ledger.GetOrdersByUser(ctx, p.ID)
}
