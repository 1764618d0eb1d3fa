package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/nightbite/internal/board"
	"github.com/mmeshcher/nightbite/internal/catalog"
)

func (h *Handler) openBoard(w http.ResponseWriter, r *http.Request) (*board.Board, string, bool) {
	p, ok := principal(w, r)
	if !ok {
		return nil, "", false
	}

	b, err := h.boards.Open(r.Context(), p.ID)
	if err != nil {
		h.writeError(w, err, "open board error", zap.String("adminID", p.ID))
		return nil, "", false
	}
	return b, p.ID, true
}

func (h *Handler) writeBoardView(w http.ResponseWriter, r *http.Request, b *board.Board, adminID string) {
	q := r.URL.Query()
	status := q.Get("status")
	if status == "" {
		status = board.FilterAll
	}

	view, err := b.View(status, q.Get("q"))
	if err != nil {
		h.writeError(w, err, "board view error", zap.String("adminID", adminID))
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// GetBoard открывает панель администратора при первом обращении и возвращает её вид.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, adminID, ok := h.openBoard(w, r)
	if !ok {
		return
	}
	h.writeBoardView(w, r, b, adminID)
}

// RefreshBoard перечитывает заказы из хранилища.
func (h *Handler) RefreshBoard(w http.ResponseWriter, r *http.Request) {
	b, adminID, ok := h.openBoard(w, r)
	if !ok {
		return
	}
	if err := b.Refresh(r.Context()); err != nil {
		h.writeError(w, err, "refresh board error", zap.String("adminID", adminID))
		return
	}
	h.writeBoardView(w, r, b, adminID)
}

// MarkBoardSeen сбрасывает счётчик непрочитанных заказов.
func (h *Handler) MarkBoardSeen(w http.ResponseWriter, r *http.Request) {
	b, adminID, ok := h.openBoard(w, r)
	if !ok {
		return
	}
	if err := b.MarkSeen(); err != nil {
		h.writeError(w, err, "mark board seen error", zap.String("adminID", adminID))
		return
	}
	h.writeBoardView(w, r, b, adminID)
}

// CloseBoard закрывает панель и её подписку на новые заказы.
func (h *Handler) CloseBoard(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	h.boards.Close(p.ID)
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus меняет статус заказа. При ошибке записи панель возвращает прежний статус.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	b, adminID, ok := h.openBoard(w, r)
	if !ok {
		return
	}

	if err := b.UpdateStatus(r.Context(), id, req.Status); err != nil {
		h.writeError(w, err, "update order status error",
			zap.String("adminID", adminID),
			zap.String("orderID", id.String()),
			zap.String("status", req.Status),
		)
		return
	}
	h.writeBoardView(w, r, b, adminID)
}

// ListItems возвращает все позиции меню для редактирования.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeError(w, err, "list menu items error")
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// CreateItem добавляет позицию меню.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var d catalog.ItemDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	items, err := h.catalog.Create(r.Context(), d)
	if err != nil {
		h.writeError(w, err, "create menu item error", zap.String("name", d.Name))
		return
	}
	h.writeJSON(w, http.StatusCreated, items)
}

// UpdateItem сохраняет изменения позиции меню.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var d catalog.ItemDraft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	items, err := h.catalog.Update(r.Context(), id, d)
	if err != nil {
		h.writeError(w, err, "update menu item error", zap.Int64("itemID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// DeleteItem удаляет позицию меню. Без confirm=true удаление не выполняется.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	items, err := h.catalog.Delete(r.Context(), id, confirmed)
	if err != nil {
		h.writeError(w, err, "delete menu item error", zap.Int64("itemID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}
