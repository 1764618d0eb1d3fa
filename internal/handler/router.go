package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/nightbite/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса nightbite.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.SignIn)
		r.Delete("/session", h.SignOut)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/profile", h.GetProfile)
			r.Post("/profile", h.Onboard)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireProfile(h.profiles, h.logger))

				r.Get("/menu", h.GetMenu)

				r.Get("/cart", h.GetCart)
				r.Delete("/cart", h.ClearCart)
				r.Post("/cart/items/{id}", h.AddToCart)
				r.Delete("/cart/items/{id}", h.RemoveFromCart)

				r.Post("/orders", h.PlaceOrder)
				r.Get("/orders", h.GetOrders)
				r.Get("/orders/notice", h.GetNotice)

				r.Route("/admin", func(r chi.Router) {
					r.Use(custommiddleware.RequireAdmin)

					r.Post("/board", h.GetBoard)
					r.Get("/board", h.GetBoard)
					r.Delete("/board", h.CloseBoard)
					r.Post("/board/refresh", h.RefreshBoard)
					r.Post("/board/seen", h.MarkBoardSeen)

					r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
					r.Get("/orders/stream", h.StreamOrders)

					r.Get("/items", h.ListItems)
					r.Post("/items", h.CreateItem)
					r.Put("/items/{id}", h.UpdateItem)
					r.Delete("/items/{id}", h.DeleteItem)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
