package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type stubCatalog struct {
	items []model.MenuItem
	err   error
}

func (s *stubCatalog) Menu(ctx context.Context, category, query string) (*catalog.Menu, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.Menu{
		Items:      catalog.Filter(s.items, category, query),
		Categories: catalog.Categories(s.items),
		Category:   category,
		Query:      query,
	}, nil
}

func (s *stubCatalog) List(ctx context.Context) ([]model.MenuItem, error) {
	return s.items, s.err
}

func (s *stubCatalog) Get(ctx context.Context, id int64) (*model.MenuItem, error) {
	for _, it := range s.items {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, repository.ErrMenuItemNotFound
}

func (s *stubCatalog) Create(ctx context.Context, d catalog.ItemDraft) ([]model.MenuItem, error) {
	item, err := d.Item(int64(len(s.items) + 1))
	if err != nil {
		return nil, err
	}
	s.items = append(s.items, item)
	return s.items, nil
}

func (s *stubCatalog) Update(ctx context.Context, id int64, d catalog.ItemDraft) ([]model.MenuItem, error) {
	return s.items, s.err
}

func (s *stubCatalog) Delete(ctx context.Context, id int64, confirmed bool) ([]model.MenuItem, error) {
	if !confirmed {
		return nil, catalog.ErrConfirmationRequired
	}
	return s.items, s.err
}

type stubOrders struct {
	submitted model.Order
	submitErr error
	history   []model.Order
	notice    *ordering.Notice
}

func (s *stubOrders) Submit(ctx context.Context, p model.Principal) (model.Order, error) {
	return s.submitted, s.submitErr
}

func (s *stubOrders) Notice(userID string) (ordering.Notice, bool) {
	if s.notice == nil {
		return ordering.Notice{}, false
	}
	return *s.notice, true
}

func (s *stubOrders) History(ctx context.Context, p model.Principal) ([]model.Order, error) {
	return s.history, nil
}

type stubProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
}

func (s *stubProfiles) Resolve(ctx context.Context, p model.Principal) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prof, ok := s.profiles[p.ID]
	if !ok {
		return nil, profile.ErrOnboardingRequired
	}
	return prof, nil
}

func (s *stubProfiles) Onboard(ctx context.Context, p model.Principal, f profile.Form) (*model.Profile, error) {
	if strings.TrimSpace(f.FullName) == "" {
		return nil, profile.ErrInvalidForm
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return nil, repository.ErrProfileExists
	}
	prof := &model.Profile{ID: p.ID, Email: p.Email, FullName: f.FullName}
	s.profiles[p.ID] = prof
	return prof, nil
}

type stubBoardLedger struct {
	mu        sync.Mutex
	orders    []model.Order
	updateErr error
}

func (s *stubBoardLedger) GetAllOrders(ctx context.Context) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}

func (s *stubBoardLedger) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	return s.updateErr
}

type testEnv struct {
	router  http.Handler
	auth    *middleware.AuthMiddleware
	catalog *stubCatalog
	orders  *stubOrders
	ledger  *stubBoardLedger
	hub     *board.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	auth := middleware.NewAuthMiddleware("test-secret")

	env := &testEnv{
		auth: auth,
		catalog: &stubCatalog{items: []model.MenuItem{
			{ID: 1, Name: "Maggi", Price: decimal.NewFromInt(20), Category: "Noodles"},
			{ID: 2, Name: "Cold Coffee", Price: decimal.NewFromInt(40), Category: "Drinks"},
		}},
		orders: &stubOrders{},
		ledger: &stubBoardLedger{},
	}
	env.hub = board.NewHub(nil, logger)

	profiles := &stubProfiles{profiles: map[string]*model.Profile{
		"customer": {ID: "customer", FullName: "Night Owl"},
		"admin":    {ID: "admin", FullName: "Kitchen", IsAdmin: true},
	}}
	sessions := board.NewSessions(env.ledger, env.hub, logger, time.Minute)
	t.Cleanup(func() {
		sessions.Close("admin")
	})

	h := NewHandler(Services{
		Catalog:  env.catalog,
		Carts:    cart.NewStore(),
		Orders:   env.orders,
		Profiles: profiles,
		Boards:   sessions,
		Feed:     env.hub,
	}, logger, auth)
	env.router = h.SetupRouter()

	return env
}

func (e *testEnv) do(t *testing.T, userID, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if userID != "" {
		token, err := e.auth.IssueToken(userID, userID+"@campus.example", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.auth.IssueToken("customer", "Customer@Campus.example", time.Hour)
	require.NoError(t, err)

	w := env.do(t, "", http.MethodPost, "/api/session", signInRequest{Token: token})
	require.Equal(t, http.StatusOK, w.Code)

	var resp sessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "customer", resp.ID)
	assert.Equal(t, "customer@campus.example", resp.Email)
	assert.NotEmpty(t, w.Result().Cookies())

	w = env.do(t, "", http.MethodPost, "/api/session", signInRequest{Token: "forged"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "", http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGates(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		userID string
		method string
		target string
		want   int
	}{
		{name: "anonymous menu", method: http.MethodGet, target: "/api/menu", want: http.StatusUnauthorized},
		{name: "no profile menu", userID: "newcomer", method: http.MethodGet, target: "/api/menu", want: http.StatusPreconditionRequired},
		{name: "no profile reads own profile", userID: "newcomer", method: http.MethodGet, target: "/api/profile", want: http.StatusPreconditionRequired},
		{name: "customer menu", userID: "customer", method: http.MethodGet, target: "/api/menu?category=Drinks", want: http.StatusOK},
		{name: "customer admin board", userID: "customer", method: http.MethodGet, target: "/api/admin/board", want: http.StatusForbidden},
		{name: "admin board", userID: "admin", method: http.MethodGet, target: "/api/admin/board", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.userID, tt.method, tt.target, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestOnboarding(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "newcomer", http.MethodPost, "/api/profile", profile.Form{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, "newcomer", http.MethodPost, "/api/profile", profile.Form{FullName: "New Comer"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, "newcomer", http.MethodGet, "/api/menu", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "newcomer", http.MethodPost, "/api/profile", profile.Form{FullName: "New Comer"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)

	decodeTotals := func(t *testing.T, w *httptest.ResponseRecorder) cart.Totals {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code)
		var totals cart.Totals
		require.NoError(t, json.NewDecoder(w.Body).Decode(&totals))
		return totals
	}

	env.do(t, "customer", http.MethodPost, "/api/cart/items/1", nil)
	env.do(t, "customer", http.MethodPost, "/api/cart/items/1", nil)
	totals := decodeTotals(t, env.do(t, "customer", http.MethodPost, "/api/cart/items/2", nil))
	assert.Equal(t, 3, totals.Count)
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(80)), totals.Subtotal.String())
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(105)), totals.Total.String())

	totals = decodeTotals(t, env.do(t, "customer", http.MethodDelete, "/api/cart/items/1", nil))
	assert.Equal(t, 2, totals.Count)

	totals = decodeTotals(t, env.do(t, "customer", http.MethodDelete, "/api/cart/items/2?all=true", nil))
	assert.Equal(t, 1, totals.Count)
	require.Len(t, totals.Lines, 1)
	assert.Equal(t, int64(1), totals.Lines[0].ID)

	totals = decodeTotals(t, env.do(t, "admin", http.MethodGet, "/api/cart", nil))
	assert.Equal(t, 0, totals.Count, "carts are per principal")

	totals = decodeTotals(t, env.do(t, "customer", http.MethodDelete, "/api/cart", nil))
	assert.Equal(t, 0, totals.Count)
	assert.True(t, totals.Total.IsZero())

	w := env.do(t, "customer", http.MethodPost, "/api/cart/items/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "customer", http.MethodPost, "/api/cart/items/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrder(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "placed", want: http.StatusCreated},
		{name: "empty cart", err: ordering.ErrEmptyCart, want: http.StatusUnprocessableEntity},
		{name: "in flight", err: ordering.ErrSubmissionInFlight, want: http.StatusConflict},
		{name: "ledger failure", err: errors.New("insert order: db down"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.orders.submitErr = tt.err
			env.orders.submitted = model.Order{ID: uuid.New(), UserID: "customer", Status: model.OrderStatusPending}

			w := env.do(t, "customer", http.MethodPost, "/api/orders", nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestOrdersAndNotice(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "customer", http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "customer", http.MethodGet, "/api/orders/notice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	env.orders.history = []model.Order{{ID: uuid.New(), UserID: "customer"}}
	env.orders.notice = &ordering.Notice{Text: "Thank you!", Success: true}

	w = env.do(t, "customer", http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "customer", http.MethodGet, "/api/orders/notice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you!")
}

func TestAdminBoard(t *testing.T) {
	env := newTestEnv(t)

	pendingID := uuid.New()
	completedID := uuid.New()
	env.ledger.orders = []model.Order{
		{ID: completedID, Email: "b@campus.example", Status: model.OrderStatusCompleted},
		{ID: pendingID, Email: "a@campus.example", Status: model.OrderStatusPending},
	}

	w := env.do(t, "admin", http.MethodGet, "/api/admin/board", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view board.View
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	require.Len(t, view.Orders, 2)
	assert.Equal(t, pendingID, view.Orders[0].ID)
	assert.Equal(t, 1, view.Counts["pending"])

	w = env.do(t, "admin", http.MethodGet, "/api/admin/board?status=unknown", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, "admin", http.MethodPatch, "/api/admin/orders/not-a-uuid/status", statusRequest{Status: "accepted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "admin", http.MethodPatch, "/api/admin/orders/"+pendingID.String()+"/status", statusRequest{Status: "shipped"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, "admin", http.MethodPatch, "/api/admin/orders/"+uuid.NewString()+"/status", statusRequest{Status: "accepted"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "admin", http.MethodPatch, "/api/admin/orders/"+pendingID.String()+"/status", statusRequest{Status: "Accepted"})
	require.Equal(t, http.StatusOK, w.Code)
	view = board.View{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, 1, view.Counts["accepted"])

	env.ledger.updateErr = errors.New("db down")
	w = env.do(t, "admin", http.MethodPatch, "/api/admin/orders/"+pendingID.String()+"/status", statusRequest{Status: "completed"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = env.do(t, "admin", http.MethodGet, "/api/admin/board?status=accepted", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view = board.View{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	require.Len(t, view.Orders, 1, "failed update is rolled back")
	assert.Equal(t, pendingID, view.Orders[0].ID)

	w = env.do(t, "admin", http.MethodDelete, "/api/admin/board", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminItems(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "admin", http.MethodPost, "/api/admin/items", map[string]any{"name": "", "price": 10})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Fields)

	w = env.do(t, "admin", http.MethodPost, "/api/admin/items", map[string]any{
		"name": "Momos", "price": "60", "originalPrice": 80, "category": "Snacks",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, env.catalog.items, 3)

	w = env.do(t, "admin", http.MethodDelete, "/api/admin/items/3", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = env.do(t, "admin", http.MethodDelete, "/api/admin/items/3?confirm=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "customer", http.MethodPost, "/api/admin/items", map[string]any{"name": "Hack"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStreamOrders(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.auth.IssueToken("admin", "admin@campus.example", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.router.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool {
		return env.hub.Subscribers() == 1
	}, time.Second, 10*time.Millisecond)

	order := model.Order{ID: uuid.New(), Email: "late@campus.example", Status: model.OrderStatusPending}
	env.hub.Publish(order)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 0, env.hub.Subscribers(), "subscription is released on disconnect")
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event: order")
	assert.Contains(t, w.Body.String(), order.ID.String())
}
