// Package metrics содержит метрики Prometheus сервиса nightbite.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// OrdersPlaced считает успешно оформленные заказы.
	OrdersPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nightbite_orders_placed_total",
		Help: "Total number of orders written to the ledger",
	})

	// OrdersFailed считает заказы, которые не удалось записать.
	OrdersFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nightbite_orders_failed_total",
		Help: "Total number of order submissions rejected by the ledger",
	})

	// StatusUpdates считает смены статуса заказа администратором с разбивкой по статусу и исходу записи.
	StatusUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightbite_order_status_updates_total",
		Help: "Admin status updates by target status and outcome",
	}, []string{"status", "outcome"})

	// BoardSessions показывает число открытых панелей администраторов.
	BoardSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nightbite_board_sessions",
		Help: "Number of open admin board sessions",
	})

	// RealtimeDropped считает уведомления о новых заказах, не доставленные медленным подписчикам.
	RealtimeDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nightbite_realtime_dropped_total",
		Help: "Order insert events dropped for slow subscribers",
	})
)

// Init регистрирует метрики в реестре по умолчанию.
func Init() {
	prometheus.MustRegister(
		OrdersPlaced,
		OrdersFailed,
		StatusUpdates,
		BoardSessions,
		RealtimeDropped,
	)
}
