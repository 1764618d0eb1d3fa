package board

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/metrics"
)

// Sessions хранит открытые панели администраторов.
type Sessions struct {
	ledger Ledger
	hub    *Hub
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	boards map[string]*Board
}

// NewSessions создаёт реестр панелей. Панели, неактивные дольше ttl, закрываются фоновым процессом.
func NewSessions(ledger Ledger, hub *Hub, logger *zap.Logger, ttl time.Duration) *Sessions {
	return &Sessions{
		ledger: ledger,
		hub:    hub,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
		boards: make(map[string]*Board),
	}
}

// Open возвращает панель администратора, создавая и загружая её при первом обращении.
func (s *Sessions) Open(ctx context.Context, adminID string) (*Board, error) {
	s.mu.Lock()
	if b, ok := s.boards[adminID]; ok {
		s.mu.Unlock()
		return b, nil
	}
	s.mu.Unlock()

	b := newBoard(adminID, s.ledger, s.hub, s.logger, s.now)
	if err := b.Refresh(ctx); err != nil {
		b.Close()
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.boards[adminID]; ok {
		s.mu.Unlock()
		b.Close()
		return existing, nil
	}
	s.boards[adminID] = b
	metrics.BoardSessions.Set(float64(len(s.boards)))
	s.mu.Unlock()

	s.logger.Info("admin board opened", zap.String("adminID", adminID))
	return b, nil
}

// Close закрывает панель администратора и освобождает её подписку.
func (s *Sessions) Close(adminID string) {
	s.mu.Lock()
	b, ok := s.boards[adminID]
	if ok {
		delete(s.boards, adminID)
		metrics.BoardSessions.Set(float64(len(s.boards)))
	}
	s.mu.Unlock()

	if ok {
		s.closeBoard(b)
	}
}

func (s *Sessions) closeBoard(b *Board) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("close board panic", zap.Any("panic", r), zap.String("adminID", b.adminID))
		}
	}()
	b.Close()
	s.logger.Info("admin board closed", zap.String("adminID", b.adminID))
}

// Sweep закрывает панели, к которым не обращались дольше ttl.
func (s *Sessions) Sweep() int {
	deadline := s.now().Add(-s.ttl)

	s.mu.Lock()
	var idle []*Board
	for id, b := range s.boards {
		if b.idleSince(deadline) {
			idle = append(idle, b)
			delete(s.boards, id)
		}
	}
	metrics.BoardSessions.Set(float64(len(s.boards)))
	s.mu.Unlock()

	for _, b := range idle {
		s.closeBoard(b)
	}
	return len(idle)
}

// Run периодически закрывает неактивные панели, а при отмене контекста закрывает все.
func (s *Sessions) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("idle admin boards closed", zap.Int("count", n))
			}
		}
	}
}

func (s *Sessions) closeAll() {
	s.mu.Lock()
	boards := s.boards
	s.boards = make(map[string]*Board)
	metrics.BoardSessions.Set(0)
	s.mu.Unlock()

	for _, b := range boards {
		s.closeBoard(b)
	}
}
