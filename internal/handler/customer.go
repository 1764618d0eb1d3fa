package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/cart"
	"github.com/mmeshcher/nightbite/internal/middleware"
	"github.com/mmeshcher/nightbite/internal/profile"
)

type signInRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignIn проверяет токен провайдера идентификации и сохраняет его в cookie.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		req.Token = middleware.BearerToken(r)
	}

	p, err := h.authMiddleware.ParseToken(req.Token)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.authMiddleware.SetAuthCookie(w, req.Token)
	h.writeJSON(w, http.StatusOK, sessionResponse{ID: p.ID, Email: p.Email})
}

// SignOut удаляет cookie авторизации. Корзина сохраняется до следующего входа.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	middleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// GetMenu возвращает позиции меню с фильтром по категории и названию.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	menu, err := h.catalog.Menu(r.Context(), q.Get("category"), q.Get("q"))
	if err != nil {
		h.writeError(w, err, "get menu error")
		return
	}
	h.writeJSON(w, http.StatusOK, menu)
}

// GetCart возвращает содержимое корзины и суммы.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.carts.Totals(p.ID))
}

// AddToCart добавляет в корзину одну единицу позиции меню.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	item, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get menu item error", zap.Int64("itemID", id))
		return
	}

	totals := h.carts.Update(p.ID, func(c *cart.Cart) {
		c.Add(*item)
	})
	h.writeJSON(w, http.StatusOK, totals)
}

// RemoveFromCart убирает одну единицу позиции, а с all=true удаляет всю строку.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	all := r.URL.Query().Get("all") == "true"
	totals := h.carts.Update(p.ID, func(c *cart.Cart) {
		if all {
			c.RemoveCompletely(id)
			return
		}
		c.Remove(id)
	})
	h.writeJSON(w, http.StatusOK, totals)
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.carts.Clear(p.ID)
	h.writeJSON(w, http.StatusOK, h.carts.Totals(p.ID))
}

// PlaceOrder оформляет заказ из текущей корзины.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Submit(r.Context(), p)
	if err != nil {
		h.writeError(w, err, "place order error", zap.String("userID", p.ID))
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

// GetOrders возвращает заказы текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.History(r.Context(), p)
	if err != nil {
		h.writeError(w, err, "get orders error", zap.String("userID", p.ID))
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// GetNotice возвращает сообщение о результате последнего оформления, пока оно не истекло.
func (h *Handler) GetNotice(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	n, ok := h.orders.Notice(p.ID)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, n)
}

// GetProfile возвращает анкету текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	prof, err := h.profiles.Resolve(r.Context(), p)
	if err != nil {
		h.writeError(w, err, "resolve profile error", zap.String("userID", p.ID))
		return
	}
	h.writeJSON(w, http.StatusOK, prof)
}

// Onboard создаёт анкету текущего пользователя.
func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var form profile.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	prof, err := h.profiles.Onboard(r.Context(), p, form)
	if err != nil {
		h.writeError(w, err, "onboard profile error", zap.String("userID", p.ID))
		return
	}
	h.writeJSON(w, http.StatusCreated, prof)
}
