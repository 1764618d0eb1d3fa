// Package handler содержит HTTP-обработчики API сервиса nightbite.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/board"
	"github.com/mmeshcher/nightbite/internal/cart"
	"github.com/mmeshcher/nightbite/internal/catalog"
	"github.com/mmeshcher/nightbite/internal/middleware"
	"github.com/mmeshcher/nightbite/internal/model"
	"github.com/mmeshcher/nightbite/internal/ordering"
	"github.com/mmeshcher/nightbite/internal/profile"
	"github.com/mmeshcher/nightbite/internal/repository"
)

// Catalog определяет операции над меню, используемые обработчиками.
type Catalog interface {
	Menu(ctx context.Context, category, query string) (*catalog.Menu, error)
	List(ctx context.Context) ([]model.MenuItem, error)
	Get(ctx context.Context, id int64) (*model.MenuItem, error)
	Create(ctx context.Context, d catalog.ItemDraft) ([]model.MenuItem, error)
	Update(ctx context.Context, id int64, d catalog.ItemDraft) ([]model.MenuItem, error)
	Delete(ctx context.Context, id int64, confirmed bool) ([]model.MenuItem, error)
}

// Carts определяет хранилище корзин пользователей.
type Carts interface {
	Update(userID string, fn func(c *cart.Cart)) cart.Totals
	Totals(userID string) cart.Totals
	Clear(userID string)
}

// Orders определяет оформление заказов и историю пользователя.
type Orders interface {
	Submit(ctx context.Context, p model.Principal) (model.Order, error)
	Notice(userID string) (ordering.Notice, bool)
	History(ctx context.Context, p model.Principal) ([]model.Order, error)
}

// Profiles определяет поиск и создание анкет.
type Profiles interface {
	Resolve(ctx context.Context, p model.Principal) (*model.Profile, error)
	Onboard(ctx context.Context, p model.Principal, f profile.Form) (*model.Profile, error)
}

// Boards определяет реестр панелей администраторов.
type Boards interface {
	Open(ctx context.Context, adminID string) (*board.Board, error)
	Close(adminID string)
}

// OrderFeed раздаёт новые заказы потоку событий.
type OrderFeed interface {
	Subscribe() *board.Subscription
}

// Services объединяет зависимости обработчиков.
type Services struct {
	Catalog  Catalog
	Carts    Carts
	Orders   Orders
	Profiles Profiles
	Boards   Boards
	Feed     OrderFeed
}

// Handler реализует HTTP-обработчики API сервиса nightbite.
type Handler struct {
	catalog  Catalog
	carts    Carts
	orders   Orders
	profiles Profiles
	boards   Boards
	feed     OrderFeed

	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Services, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		catalog:        s.Catalog,
		carts:          s.Carts,
		orders:         s.Orders,
		profiles:       s.Profiles,
		boards:         s.Boards,
		feed:           s.Feed,
		logger:         logger,
		authMiddleware: auth,
	}
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func statusFor(err error) int {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, profile.ErrInvalidForm),
		errors.Is(err, board.ErrInvalidStatus),
		errors.Is(err, ordering.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ordering.ErrNotAuthenticated),
		errors.Is(err, profile.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, profile.ErrOnboardingRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, catalog.ErrConfirmationRequired):
		return http.StatusPreconditionFailed
	case errors.Is(err, repository.ErrMenuItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, board.ErrOrderNotFound),
		errors.Is(err, board.ErrBoardClosed):
		return http.StatusNotFound
	case errors.Is(err, ordering.ErrSubmissionInFlight),
		errors.Is(err, repository.ErrProfileExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает кодом, соответствующим ошибке. Внутренние ошибки пишутся в журнал.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(status), status)
		return
	}

	resp := errorResponse{Error: err.Error()}
	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response error", zap.Error(err))
	}
}

func principal(w http.ResponseWriter, r *http.Request) (model.Principal, bool) {
	p, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return p, ok
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
