package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const streamKeepAlive = 15 * time.Second

// StreamOrders отправляет администратору новые заказы в формате server-sent events.
// Подписка снимается при закрытии соединения.
func (h *Handler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := h.feed.Subscribe()
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case order, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(order)
			if err != nil {
				h.logger.Warn("encode order event error", zap.Error(err), zap.String("orderID", order.ID.String()))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: order\nid: %s\ndata: %s\n\n", order.ID, data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
